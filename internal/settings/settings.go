// Package settings stores admin-editable key/value configuration such as the
// UPI payee and SMTP credentials. Values are loaded per request and handed to
// the workflows that need them.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	KeyUPIID           = "upi_id"
	KeyPayeeName       = "payee_name"
	KeySMTPHost        = "smtp_host"
	KeySMTPPort        = "smtp_port"
	KeySMTPUser        = "smtp_user"
	KeySMTPPassword    = "smtp_password"
	KeySMTPFrom        = "smtp_from"
	KeyReportRecipient = "report_recipient"
)

// Known lists every key the admin UI may write.
var Known = []string{
	KeyUPIID, KeyPayeeName,
	KeySMTPHost, KeySMTPPort, KeySMTPUser, KeySMTPPassword, KeySMTPFrom,
	KeyReportRecipient,
}

var ErrInvalid = errors.New("invalid setting")

var secret = map[string]bool{KeySMTPPassword: true}

func isKnown(k string) bool {
	for _, x := range Known {
		if x == k {
			return true
		}
	}
	return false
}

// Values is an immutable snapshot of the settings table.
type Values map[string]string

func (v Values) Get(k, def string) string {
	if s, ok := v[k]; ok && s != "" {
		return s
	}
	return def
}

func (v Values) Int(k string, def int) int {
	n, err := strconv.Atoi(v.Get(k, ""))
	if err != nil {
		return def
	}
	return n
}

// Redacted returns a copy safe to send to clients.
func (v Values) Redacted() Values {
	out := make(Values, len(v))
	for k, s := range v {
		if secret[k] && s != "" {
			s = "********"
		}
		out[k] = s
	}
	return out
}

type Repository interface {
	Load(ctx context.Context) (Values, error)
	Save(ctx context.Context, in map[string]string) error
}

// Validate rejects unknown keys before anything is written.
func Validate(in map[string]string) error {
	for k := range in {
		if !isKnown(k) {
			return fmt.Errorf("%w: unknown key %q", ErrInvalid, k)
		}
	}
	if p, ok := in[KeySMTPPort]; ok && p != "" {
		if n, err := strconv.Atoi(p); err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("%w: smtp_port must be a port number", ErrInvalid)
		}
	}
	return nil
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Load(ctx context.Context) (Values, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := Values{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Save upserts all pairs in one transaction.
func (r *PGRepo) Save(ctx context.Context, in map[string]string) error {
	if err := Validate(in); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for k, v := range in {
		if _, err := tx.Exec(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES ($1,$2,NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, k, v); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
