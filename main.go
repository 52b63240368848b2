package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/crawlersick/go-mysqlx/core/catalog"
	"github.com/crawlersick/go-mysqlx/sqlbridge"
)

const dbFileName = "demo.db"

func main() {
	// Remove the database file if it already exists to start fresh
	if err := os.Remove(dbFileName); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing database file %s: %v", dbFileName, err)
	}
	fmt.Printf("Starting fresh: removed existing %s (if any).\n", dbFileName)

	db, err := sql.Open("sqlite3", dbFileName)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer func() {
		if cErr := db.Close(); cErr != nil {
			log.Printf("Error closing database connection: %v", cErr)
		}
		fmt.Println("Database connection closed.")
	}()

	ctx := context.Background()
	bridge := sqlbridge.New(db)
	schema := catalog.NewSchema(bridge, "main")
	fmt.Println("Initialized schema handle.")

	// --- Document mode ---
	people, err := schema.CreateCollection(ctx, "people", false)
	if err != nil {
		log.Fatalf("Failed to create collection 'people': %v", err)
	}
	fmt.Println("Collection 'people' created.")

	people.Watch(catalog.DocumentRemoveSuccess, func(_ context.Context, event catalog.CollectionEvent) error {
		fmt.Printf("Document removed from collection '%s'\n", event.Collection)
		return nil
	})

	added, err := people.Add(
		map[string]any{"name": "Fred", "age": 35, "address": map[string]any{"city": "Bedrock"}},
		map[string]any{"name": "Wilma", "age": 33},
		map[string]any{"name": "Barney", "age": 34},
	).Execute(ctx)
	if err != nil {
		log.Fatalf("Failed to add documents: %v", err)
	}
	fmt.Printf("Added %d documents: %v\n", added.AffectedItems, added.DocumentIDs)

	found, err := people.Find("age > :min").
		Fields("name", "age").
		Sort("age DESC").
		Bind("min", 33).
		Execute(ctx)
	if err != nil {
		log.Fatalf("Failed to find documents: %v", err)
	}
	for _, row := range found.Rows {
		fmt.Printf("Found: name=%v age=%v\n", row["name"], row["age"])
	}

	modified, err := people.Modify("name = :n").
		Set("age", 36).
		ArrayAppend("nicknames", "Freddy").
		Bind("n", "Fred").
		Execute(ctx)
	if err != nil {
		log.Fatalf("Failed to modify document: %v", err)
	}
	fmt.Printf("Modified %d document(s).\n", modified.AffectedItems)

	if _, err := people.ReplaceOne(ctx, added.DocumentIDs[2], map[string]any{"name": "Betty", "age": 32}); err != nil {
		log.Fatalf("Failed to replace document: %v", err)
	}
	fmt.Println("Replaced one document.")

	if _, err := people.CreateIndex("idx_people_name", map[string]any{
		"fields": []map[string]any{{"field": "$.name", "type": "TEXT(64)"}},
	}).Execute(ctx); err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}
	fmt.Println("Index 'idx_people_name' created.")

	if _, err := people.RemoveOne(ctx, added.DocumentIDs[2]); err != nil {
		log.Fatalf("Failed to remove document: %v", err)
	}

	count, err := people.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count documents: %v", err)
	}
	fmt.Printf("Collection now holds %d document(s).\n", count)

	// --- Table mode ---
	if _, err := bridge.SendSQL(ctx, `CREATE TABLE "accounts" ("id" INTEGER PRIMARY KEY, "owner" TEXT, "balance" REAL)`); err != nil {
		log.Fatalf("Failed to create table 'accounts': %v", err)
	}
	accounts := schema.Table("accounts")

	if _, err := accounts.Insert("id", "owner", "balance").
		Values(1, "fred", 10.5).
		Values(2, "wilma", 20.0).
		Execute(ctx); err != nil {
		log.Fatalf("Failed to insert rows: %v", err)
	}

	rows, err := accounts.Select("owner", "balance").
		Where("balance > :min").
		OrderBy("balance DESC").
		Bind("min", 5).
		Execute(ctx)
	if err != nil {
		log.Fatalf("Failed to select rows: %v", err)
	}
	for _, row := range rows.Rows {
		fmt.Printf("Account: owner=%v balance=%v\n", row["owner"], row["balance"])
	}

	if _, err := accounts.Update().
		Where("id = :id").
		Set("balance", 42.0).
		Bind("id", 1).
		Execute(ctx); err != nil {
		log.Fatalf("Failed to update row: %v", err)
	}
	fmt.Println("Updated account balance.")

	tableCount, err := accounts.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count rows: %v", err)
	}
	fmt.Printf("Table 'accounts' holds %d row(s).\n", tableCount)
}
