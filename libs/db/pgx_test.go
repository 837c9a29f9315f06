package db

import (
	"context"
	"testing"
	"time"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{MaxConns: 4}.withDefaults()
	if o.MaxConns != 4 || o.MinConns != 1 || o.MaxConnLifetime != 30*time.Minute || o.MaxConnIdleTime != 5*time.Minute {
		t.Fatalf("unexpected options: %+v", o)
	}
}

func TestReadyCheckWithoutPool(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error for missing pool")
	}
}

func TestOpenRejectsBadURL(t *testing.T) {
	if _, err := Open(context.Background(), "postgres://user@%zz/db", Options{}); err == nil {
		t.Fatal("expected parse error")
	}
}
