// Command seed creates the first admin account and, optionally, a starter menu.
// Running it again leaves an existing admin untouched.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/canteen/internal/database"
	"github.com/MikeMC777/canteen/internal/menu"
	"github.com/MikeMC777/canteen/internal/user"
)

var sampleMenu = []menu.Item{
	{Name: "Masala Dosa", Category: "South Indian", Description: "With sambar and chutney", Price: decimal.RequireFromString("60.00"), Stock: 40},
	{Name: "Idli Vada", Category: "South Indian", Price: decimal.RequireFromString("45.00"), Stock: 40},
	{Name: "Veg Thali", Category: "Meals", Description: "Rice, two sabzi, dal, roti", Price: decimal.RequireFromString("90.00"), Stock: 25},
	{Name: "Paneer Roll", Category: "Snacks", Price: decimal.RequireFromString("70.00"), Stock: 20},
	{Name: "Samosa", Category: "Snacks", Price: decimal.RequireFromString("15.00"), Stock: 60},
	{Name: "Masala Chai", Category: "Beverages", Price: decimal.RequireFromString("12.00"), Unlimited: true},
	{Name: "Filter Coffee", Category: "Beverages", Price: decimal.RequireFromString("20.00"), Unlimited: true},
}

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("POSTGRES_DSN"), "postgres connection string (default $POSTGRES_DSN)")
	email := flag.String("admin-email", "", "admin email")
	password := flag.String("admin-password", "", "admin password, at least 8 characters")
	name := flag.String("admin-name", "Canteen Admin", "admin display name")
	withMenu := flag.Bool("sample-menu", false, "insert a starter menu")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("[seed] -dsn or POSTGRES_DSN is required")
	}
	if *email == "" && !*withMenu {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.Open(ctx, *dsn)
	if err != nil {
		log.Fatalf("[seed] connect: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("[seed] migrate: %v", err)
	}

	if *email != "" {
		if len(*password) < 8 {
			log.Fatal("[seed] -admin-password must be at least 8 characters")
		}
		svc := user.NewService(user.NewPGRepo(pool))
		u, created, err := svc.EnsureAdmin(ctx, *email, *password, *name)
		if err != nil {
			log.Fatalf("[seed] admin: %v", err)
		}
		if created {
			log.Printf("[seed] created admin %s (%s)", u.Email, u.ID)
		} else {
			log.Printf("[seed] %s already registered, admin and active flags set", u.Email)
		}
	}

	if *withMenu {
		repo := menu.NewPGRepo(pool)
		existing, err := repo.List(ctx, menu.Query{Limit: 1})
		if err != nil {
			log.Fatalf("[seed] menu: %v", err)
		}
		if len(existing) > 0 {
			log.Printf("[seed] menu already has items, skipping sample menu")
			return
		}
		for _, it := range sampleMenu {
			it := it
			it.ID = uuid.NewString()
			it.Available = true
			if err := repo.Create(ctx, &it); err != nil {
				log.Fatalf("[seed] insert %s: %v", it.Name, err)
			}
		}
		log.Printf("[seed] inserted %d menu items", len(sampleMenu))
	}
}
