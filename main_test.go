package main

import (
	"testing"

	"github.com/jongan69/threadiverse/internal/db"
	"github.com/jongan69/threadiverse/internal/store"
)

func TestNewDraftStoreSelection(t *testing.T) {
	database := db.NewSQLite(":memory:")
	if err := database.Init(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer database.Close()

	if _, ok := newDraftStore("", database).(*store.MemoryDraftStore); !ok {
		t.Error("Expected the in-memory store for an empty database path")
	}
	if _, ok := newDraftStore("./threadiverse.db", database).(*store.SQLiteDraftStore); !ok {
		t.Error("Expected the SQLite store for a configured database path")
	}
}
