// Package health reports database reachability over the standard gRPC health
// protocol and to the HTTP /healthz probe.
package health

import (
	"context"
	"log"
	"net"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name checked by clients asking about the ordering API.
const Service = "canteen.Orders"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	db       Pinger
	hs       *health.Server
	interval time.Duration
	ready    atomic.Bool
}

func NewChecker(db Pinger, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	c := &Checker{db: db, hs: health.NewServer(), interval: interval}
	c.set(false)
	return c
}

func (c *Checker) Ready() bool { return c.ready.Load() }

func (c *Checker) set(ok bool) {
	was := c.ready.Swap(ok)
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	c.hs.SetServingStatus("", st)
	c.hs.SetServingStatus(Service, st)
	if was != ok {
		log.Printf("[health] %s", st)
	}
}

// Check pings the database once and publishes the result.
func (c *Checker) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := c.db.Ping(ctx)
	if err != nil {
		log.Printf("[health] ping: %v", err)
	}
	c.set(err == nil)
	return err == nil
}

// Run checks on every interval until ctx is done, then reports not serving.
func (c *Checker) Run(ctx context.Context) error {
	c.Check(ctx)
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.hs.Shutdown()
			return nil
		case <-t.C:
			c.Check(ctx)
		}
	}
}

// Serve exposes the health service on addr until ctx is done.
func (c *Checker) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, c.hs)

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	log.Printf("[health] gRPC health listening on %s", addr)
	if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}
