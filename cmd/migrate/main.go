// Command migrate imports a directory of draft JSON files into the local
// drafts database, assigning them to one owner.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jongan69/threadiverse/internal/db"
	"github.com/jongan69/threadiverse/internal/model"
	"github.com/jongan69/threadiverse/internal/store"
)

func main() {
	path := flag.String("path", "", "Path to the directory containing draft .json files")
	owner := flag.String("owner", "", "Wallet address that will own the imported drafts")
	dbPath := flag.String("db", "./threadiverse.db", "Path of the drafts database")
	flag.Parse()

	if *path == "" || *owner == "" {
		log.Fatal("Both --path and --owner flags are required")
	}

	database := db.NewSQLite(*dbPath)
	if err := database.Init(); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer database.Close()

	drafts := store.NewSQLiteDraftStore(database)

	files, err := os.ReadDir(*path)
	if err != nil {
		log.Fatalf("Error reading directory %s: %v", *path, err)
	}

	imported := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		if err := importFile(filepath.Join(*path, file.Name()), drafts, model.UserID(*owner)); err != nil {
			log.Printf("Error processing file %s: %v", file.Name(), err)
			continue
		}
		imported++
	}

	log.Printf("Imported %d drafts for %s", imported, *owner)
}

func importFile(path string, drafts *store.SQLiteDraftStore, owner model.UserID) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var draft model.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return err
	}

	now := time.Now().UTC()
	if draft.ID == "" {
		draft.ID = model.NewDraftID()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}

	return drafts.Save(context.Background(), owner, &draft)
}
