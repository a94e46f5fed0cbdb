package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

type memoryRow = map[string]any

// MemoryBackend keeps tables as ordered slices of decoded JSON rows. It is
// used by tests and by STORE_BACKEND=memory for local development.
type MemoryBackend struct {
	mu       sync.RWMutex
	tables   map[string][]memoryRow
	failNext error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string][]memoryRow)}
}

// FailNextWrite makes the next Insert/Update/Upsert/Delete return err.
func (m *MemoryBackend) FailNextWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryBackend) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *MemoryBackend) Select(_ context.Context, table string, q Query) ([]byte, error) {
	if err := checkQuery("select", table, q); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []memoryRow
	for _, row := range m.tables[table] {
		if matchesAll(row, q.Filters) {
			rows = append(rows, row)
		}
	}
	sortRows(rows, q.Order)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return encodeRows(rows)
}

func (m *MemoryBackend) Insert(_ context.Context, table string, row any) ([]byte, error) {
	if err := CheckTable(table); err != nil {
		return nil, err
	}
	decoded, err := decodeRow(row)
	if err != nil {
		return nil, invalidInput("insert", table, "%v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, Classify("insert", table, err)
	}
	if id, ok := decoded["id"]; ok {
		for _, existing := range m.tables[table] {
			if stringify(existing["id"]) == stringify(id) {
				return nil, &Error{Kind: KindConflict, Op: "insert", Table: table, Message: "duplicate key value violates unique constraint"}
			}
		}
	}
	m.tables[table] = append(m.tables[table], decoded)
	return encodeRows([]memoryRow{decoded})
}

func (m *MemoryBackend) Update(_ context.Context, table string, q Query, patch map[string]any) ([]byte, error) {
	if err := checkQuery("update", table, q); err != nil {
		return nil, err
	}
	normalized, err := decodeRow(patch)
	if err != nil {
		return nil, invalidInput("update", table, "%v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, Classify("update", table, err)
	}
	var updated []memoryRow
	for i, row := range m.tables[table] {
		if !matchesAll(row, q.Filters) {
			continue
		}
		next := cloneRow(row)
		for column, value := range normalized {
			next[column] = value
		}
		m.tables[table][i] = next
		updated = append(updated, next)
	}
	return encodeRows(updated)
}

func (m *MemoryBackend) Upsert(_ context.Context, table string, row any, onConflict string) ([]byte, error) {
	if err := CheckTable(table); err != nil {
		return nil, err
	}
	decoded, err := decodeRow(row)
	if err != nil {
		return nil, invalidInput("upsert", table, "%v", err)
	}
	columns := conflictColumns(onConflict)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, Classify("upsert", table, err)
	}
	for i, existing := range m.tables[table] {
		if sameColumns(existing, decoded, columns) {
			merged := cloneRow(decoded)
			// the stored primary key survives a conflict on other columns
			merged["id"] = existing["id"]
			if created, ok := existing["created_at"]; ok {
				merged["created_at"] = created
			}
			m.tables[table][i] = merged
			return encodeRows([]memoryRow{merged})
		}
	}
	m.tables[table] = append(m.tables[table], decoded)
	return encodeRows([]memoryRow{decoded})
}

func (m *MemoryBackend) Delete(_ context.Context, table string, q Query) ([]byte, error) {
	if err := checkQuery("delete", table, q); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, Classify("delete", table, err)
	}
	var kept, deleted []memoryRow
	for _, row := range m.tables[table] {
		if matchesAll(row, q.Filters) {
			deleted = append(deleted, row)
		} else {
			kept = append(kept, row)
		}
	}
	m.tables[table] = kept
	return encodeRows(deleted)
}

func checkQuery(op, table string, q Query) error {
	if err := CheckTable(table); err != nil {
		return err
	}
	for _, f := range q.Filters {
		if !f.Op.Valid() {
			return invalidInput(op, table, "unknown operator %q", f.Op)
		}
	}
	return nil
}

func matchesAll(row memoryRow, filters []Filter) bool {
	for _, f := range filters {
		if !f.Matches(row) {
			return false
		}
	}
	return true
}

func sortRows(rows []memoryRow, order []Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			a, b := rows[i][o.Column], rows[j][o.Column]
			// nulls last in both directions
			if a == nil || b == nil {
				if a == nil && b == nil {
					continue
				}
				return b == nil
			}
			c := compareValues(stringify(a), stringify(b))
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func conflictColumns(onConflict string) []string {
	if onConflict == "" {
		return []string{"id"}
	}
	var columns []string
	for _, column := range strings.Split(onConflict, ",") {
		columns = append(columns, strings.TrimSpace(column))
	}
	return columns
}

func sameColumns(a, b memoryRow, columns []string) bool {
	for _, column := range columns {
		if stringify(a[column]) != stringify(b[column]) {
			return false
		}
	}
	return true
}

func decodeRow(v any) (memoryRow, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var row memoryRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("row must be a JSON object: %w", err)
	}
	return row, nil
}

func cloneRow(row memoryRow) memoryRow {
	out := make(memoryRow, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func encodeRows(rows []memoryRow) ([]byte, error) {
	if rows == nil {
		rows = []memoryRow{}
	}
	return json.Marshal(rows)
}

// MemoryBlobs keeps uploaded objects in memory and hands out fake public URLs.
type MemoryBlobs struct {
	mu      sync.RWMutex
	BaseURL string
	buckets map[string]map[string][]byte
}

// NewMemoryBlobs creates the store with the given buckets already present.
func NewMemoryBlobs(baseURL string, buckets ...string) *MemoryBlobs {
	b := &MemoryBlobs{BaseURL: baseURL, buckets: make(map[string]map[string][]byte)}
	for _, bucket := range buckets {
		b.buckets[bucket] = make(map[string][]byte)
	}
	return b
}

func (b *MemoryBlobs) Upload(_ context.Context, bucket, path string, data io.Reader, _ string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	objects, ok := b.buckets[bucket]
	if !ok {
		return "", &Error{Kind: KindBucketNotFound, Op: "upload", Table: bucket, Message: "Bucket not found"}
	}
	objects[path] = buf.Bytes()
	return b.BaseURL + "/" + bucket + "/" + path, nil
}

func (b *MemoryBlobs) Remove(_ context.Context, bucket string, paths []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	objects, ok := b.buckets[bucket]
	if !ok {
		return &Error{Kind: KindBucketNotFound, Op: "remove", Table: bucket, Message: "Bucket not found"}
	}
	for _, path := range paths {
		delete(objects, path)
	}
	return nil
}

// Object returns a stored object. The development server serves uploads
// from here.
func (b *MemoryBlobs) Object(bucket, path string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.buckets[bucket][path]
	return data, ok
}
