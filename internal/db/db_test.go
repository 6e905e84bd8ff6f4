package db

import (
	"context"
	"testing"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db, d, err := Open(context.Background(), Options{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 10})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if d.Name() != "sqlite" {
		t.Fatalf("dialect = %s", d.Name())
	}
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("in-memory pool must hold one connection, got %d", got)
	}
	st := Check(context.Background(), db, "sqlite")
	if !st.Connected || st.Driver != "sqlite" {
		t.Fatalf("status = %+v", st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, _, err := Open(context.Background(), Options{Driver: "mysql"}); err == nil {
		t.Fatal("expected error")
	}
}
