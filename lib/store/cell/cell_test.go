package cell

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/db/engines/maple"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/lib/store/codec"
)

type address struct {
	Endpoint string
	Shard    uint64
}

func TestCell(t *testing.T) {
	c := New[address]("peer", maple.NewMapleDB(nil), codec.JSON[address]{})

	if _, err := c.Get(); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected NotFound for unset cell, got %v", err)
	}

	want := address{Endpoint: "localhost:8080", Shard: 100}
	if err := c.Set(want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get()
	if err != nil || got != want {
		t.Fatalf("Get = %+v, %v; want %+v", got, err, want)
	}

	if err := c.Set(address{Endpoint: "other:1", Shard: 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, _ := c.Get(); got.Endpoint != "other:1" {
		t.Errorf("expected Set to replace the value, got %+v", got)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := c.Get(); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected NotFound after Clear, got %v", err)
	}
	// clearing an unset cell is fine
	if err := c.Clear(); err != nil {
		t.Errorf("Clear of unset cell failed: %v", err)
	}
}
