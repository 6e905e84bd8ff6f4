// Package db opens the relational connection pool shared by every store
// operation.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/dialect"
)

// Options configures the pool.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open creates the pool, checks connectivity and returns the matching
// dialect. It is called once at startup; the pool lives until the process
// exits.
func Open(ctx context.Context, o Options) (*sql.DB, dialect.Dialect, error) {
	d, err := dialect.ForDriver(o.Driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(o.Driver, o.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db: open %s: %w", o.Driver, err)
	}
	if d.Name() == "sqlite" && strings.Contains(o.DSN, ":memory:") {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if o.MaxOpenConns > 0 {
		db.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		db.SetMaxIdleConns(o.MaxIdleConns)
	}
	if o.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(o.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("db: ping %s: %w", o.Driver, err)
	}
	log.Printf("Connected to %s (max open conns: %d)", o.Driver, db.Stats().MaxOpenConnections)
	return db, d, nil
}

// Status describes the pool for the server-info endpoint.
type Status struct {
	Driver      string `json:"driver"`
	Connected   bool   `json:"connected"`
	Error       string `json:"error,omitempty"`
	OpenConns   int    `json:"openConnections"`
	InUse       int    `json:"inUse"`
	Idle        int    `json:"idle"`
	MaxOpen     int    `json:"maxOpenConnections"`
	WaitCount   int64  `json:"waitCount"`
	CheckedAtMS int64  `json:"checkedAt"`
}

// Check pings the pool and reports its statistics.
func Check(ctx context.Context, db *sql.DB, driver string) Status {
	st := db.Stats()
	s := Status{
		Driver:      driver,
		Connected:   true,
		OpenConns:   st.OpenConnections,
		InUse:       st.InUse,
		Idle:        st.Idle,
		MaxOpen:     st.MaxOpenConnections,
		WaitCount:   st.WaitCount,
		CheckedAtMS: time.Now().UnixMilli(),
	}
	if err := db.PingContext(ctx); err != nil {
		s.Connected = false
		s.Error = err.Error()
	}
	return s
}
