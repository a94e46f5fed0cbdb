// Package store is the repository abstraction over the hosted backend.
//
// Backends exchange rows as JSON so the same Table[T] works on top of the
// PostgREST client, a direct Postgres connection and the in-memory backend.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Table names. Backends refuse anything else.
const (
	TableRestaurants       = "restaurants"
	TableRecipes           = "recipes"
	TableDrinks            = "drinks"
	TableLists             = "lists"
	TableCoupleRestaurants = "couple_restaurants"
	TableCuratedLists      = "curated_lists"
	TableDatePlans         = "date_plans"
	TableProfiles          = "profiles"
	TableMemories          = "memories"
	TableExpenses          = "expenses"
	TableReminders         = "reminders"
	TableHabits            = "habits"
	TableHabitEntries      = "habit_entries"
	TableMoodEntries       = "mood_entries"
	TableJobApplications   = "job_applications"
)

// Storage buckets.
const (
	BucketRecipeImages     = "recipe-images"
	BucketMemoryImages     = "memory-images"
	BucketRestaurantImages = "restaurant-images"
)

var knownTables = map[string]bool{
	TableRestaurants:       true,
	TableRecipes:           true,
	TableDrinks:            true,
	TableLists:             true,
	TableCoupleRestaurants: true,
	TableCuratedLists:      true,
	TableDatePlans:         true,
	TableProfiles:          true,
	TableMemories:          true,
	TableExpenses:          true,
	TableReminders:         true,
	TableHabits:            true,
	TableHabitEntries:      true,
	TableMoodEntries:       true,
	TableJobApplications:   true,
}

// Tables lists every known table name.
func Tables() []string {
	names := make([]string, 0, len(knownTables))
	for name := range knownTables {
		names = append(names, name)
	}
	return names
}

func CheckTable(table string) error {
	if !knownTables[table] {
		return &Error{Kind: KindInvalidInput, Op: "table", Table: table, Message: fmt.Sprintf("unknown table %q", table)}
	}
	return nil
}

// Backend is table-level CRUD. Every method returns the affected rows as a
// JSON array.
type Backend interface {
	Select(ctx context.Context, table string, q Query) ([]byte, error)
	Insert(ctx context.Context, table string, row any) ([]byte, error)
	Update(ctx context.Context, table string, q Query, patch map[string]any) ([]byte, error)
	// Upsert inserts row or, when a row with the same onConflict columns
	// exists, overwrites it.
	Upsert(ctx context.Context, table string, row any, onConflict string) ([]byte, error)
	Delete(ctx context.Context, table string, q Query) ([]byte, error)
}

// Blobs is object storage.
type Blobs interface {
	// Upload stores the object, overwriting any previous one, and returns its public URL.
	Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error)
	Remove(ctx context.Context, bucket string, paths []string) error
}

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent tells subscribers that a row of Table changed.
type ChangeEvent struct {
	Table  string          `json:"table"`
	Type   ChangeType      `json:"type"`
	Record json.RawMessage `json:"record"`
}

// Column reads a top-level column of the event record as a string.
func (e ChangeEvent) Column(name string) (string, bool) {
	var record map[string]any
	if err := json.Unmarshal(e.Record, &record); err != nil {
		return "", false
	}
	value, ok := record[name]
	if !ok || value == nil {
		return "", false
	}
	return stringify(value), true
}

type Publisher interface {
	Publish(event ChangeEvent)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ChangeEvent)

func (f PublisherFunc) Publish(event ChangeEvent) { f(event) }

func splitRows(data []byte) ([]json.RawMessage, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}
