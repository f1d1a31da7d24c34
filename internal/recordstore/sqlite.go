package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout keeps fractional seconds fixed-width so lexicographic order in
// SQLite matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a single SQLite table with a JSON fields
// column, so new record shapes need no migration.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// records table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		fields TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection, created_at);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create stores a new record.
func (s *SQLiteStore) Create(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	record := Record{
		ID:        uuid.New().String(),
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO records (id, collection, fields, created_at) VALUES (?, ?, ?, ?)",
		record.ID, collection, string(encoded), record.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	return record, nil
}

// Get returns one record by ID.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, fields, created_at FROM records WHERE collection = ? AND id = ?",
		collection, id,
	)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query record: %w", err)
	}
	return record, nil
}

// Query returns matching records, newest first.
func (s *SQLiteStore) Query(ctx context.Context, collection string, filter map[string]any, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, fields, created_at FROM records WHERE collection = ? ORDER BY created_at DESC",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if !matches(record.Fields, filter) {
			continue
		}
		out = append(out, record)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

// Update merges fields into an existing record.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	record, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	if record.Fields == nil {
		record.Fields = make(map[string]any)
	}
	for k, v := range fields {
		record.Fields[k] = v
	}

	encoded, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE records SET fields = ? WHERE collection = ? AND id = ?",
		string(encoded), collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

// Count returns how many records match the filter.
func (s *SQLiteStore) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	if len(filter) == 0 {
		var n int64
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM records WHERE collection = ?", collection,
		).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("failed to count records: %w", err)
		}
		return n, nil
	}

	records, err := s.Query(ctx, collection, filter, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (Record, error) {
	var (
		record       Record
		encoded      string
		createdAtStr string
	)
	if err := row.Scan(&record.ID, &encoded, &createdAtStr); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(encoded), &record.Fields); err != nil {
		return Record{}, fmt.Errorf("failed to decode fields: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		createdAt, err = time.Parse("2006-01-02 15:04:05", createdAtStr)
		if err != nil {
			return Record{}, fmt.Errorf("failed to parse created_at: %w", err)
		}
	}
	record.CreatedAt = createdAt
	return record, nil
}

// matches reports whether every filter entry equals the corresponding field.
// Values are compared loosely since JSON round-trips change numeric types.
func matches(fields, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := fields[k]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) && !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
