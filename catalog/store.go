// Package catalog persists the tool catalog in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an update or delete targets a missing tool.
var ErrNotFound = errors.New("catalog: tool not found")

// Tool is one catalog entry.
type Tool struct {
	ID         string   `json:"id" yaml:"id,omitempty"`
	Name       string   `json:"name" yaml:"name"`
	URL        string   `json:"url" yaml:"url"`
	Summary    string   `json:"summary" yaml:"summary"`
	Categories []string `json:"categories" yaml:"categories"`
	// Embedding is an optional precomputed vector. Search does not read it.
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	CreatedAt int64     `json:"created_at" yaml:"-"`
	UpdatedAt int64     `json:"updated_at" yaml:"-"`
}

// Store wraps the catalog database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// NewID returns a time-ordered tool ID.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

const toolColumns = `id, name, url, summary, categories_json, embedding_json, created_at, updated_at`

// InsertTool stores t, assigning ID and timestamps when unset.
func (s *Store) InsertTool(ctx context.Context, t *Tool) error {
	now := time.Now().UnixMilli()
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = now
	}
	cats, emb, err := encode(t)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO tools (`+toolColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.URL, t.Summary, cats, emb, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tool: %w", err)
	}
	return nil
}

// GetTool returns the tool with id, or nil if absent.
func (s *Store) GetTool(ctx context.Context, id string) (*Tool, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+toolColumns+` FROM tools WHERE id = ?`, id)
	return scanTool(row)
}

// GetToolByURL returns the first tool stored under url, or nil.
func (s *Store) GetToolByURL(ctx context.Context, url string) (*Tool, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE url = ? ORDER BY created_at LIMIT 1`, url)
	return scanTool(row)
}

// FindToolByURLExcluding returns a tool stored under url whose ID is not
// id, or nil. Used to reject URL collisions on update.
func (s *Store) FindToolByURLExcluding(ctx context.Context, url, id string) (*Tool, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE url = ? AND id != ? LIMIT 1`, url, id)
	return scanTool(row)
}

// ListTools returns every tool, newest first.
func (s *Store) ListTools(ctx context.Context) ([]*Tool, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+toolColumns+` FROM tools ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []*Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

// UpdateTool overwrites name, url, summary, categories and embedding of the
// tool with t.ID. Returns ErrNotFound if no such tool exists.
func (s *Store) UpdateTool(ctx context.Context, t *Tool) error {
	t.UpdatedAt = time.Now().UnixMilli()
	cats, emb, err := encode(t)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE tools SET name = ?, url = ?, summary = ?, categories_json = ?, embedding_json = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.URL, t.Summary, cats, emb, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update tool: %w", err)
	}
	return expectOne(res, t.ID)
}

// DeleteTool removes the tool with id. Returns ErrNotFound if absent.
func (s *Store) DeleteTool(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tools WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tool: %w", err)
	}
	return expectOne(res, id)
}

// DeleteAll empties the catalog and returns how many tools were removed.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tools`)
	if err != nil {
		return 0, fmt.Errorf("delete all tools: %w", err)
	}
	return res.RowsAffected()
}

// CountTools returns the number of stored tools.
func (s *Store) CountTools(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tools`).Scan(&n)
	return n, err
}

// Replace atomically swaps the whole catalog for tools.
func (s *Store) Replace(ctx context.Context, tools []*Tool) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tools`); err != nil {
		return fmt.Errorf("replace: clear: %w", err)
	}
	now := time.Now().UnixMilli()
	for i, t := range tools {
		if t.ID == "" {
			t.ID = NewID()
		}
		if t.CreatedAt == 0 {
			t.CreatedAt = now + int64(i)
		}
		if t.UpdatedAt == 0 {
			t.UpdatedAt = t.CreatedAt
		}
		cats, emb, err := encode(t)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tools (`+toolColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.URL, t.Summary, cats, emb, t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("replace: insert %s: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTool(sc scanner) (*Tool, error) {
	var (
		t    Tool
		cats string
		emb  sql.NullString
	)
	err := sc.Scan(&t.ID, &t.Name, &t.URL, &t.Summary, &cats, &emb, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan tool: %w", err)
	}
	if err := json.Unmarshal([]byte(cats), &t.Categories); err != nil {
		return nil, fmt.Errorf("scan tool %s: categories: %w", t.ID, err)
	}
	if emb.Valid && emb.String != "" {
		if err := json.Unmarshal([]byte(emb.String), &t.Embedding); err != nil {
			return nil, fmt.Errorf("scan tool %s: embedding: %w", t.ID, err)
		}
	}
	return &t, nil
}

func encode(t *Tool) (cats string, emb sql.NullString, err error) {
	categories := t.Categories
	if categories == nil {
		categories = []string{}
	}
	b, err := json.Marshal(categories)
	if err != nil {
		return "", emb, fmt.Errorf("encode categories: %w", err)
	}
	if len(t.Embedding) > 0 {
		e, err := json.Marshal(t.Embedding)
		if err != nil {
			return "", emb, fmt.Errorf("encode embedding: %w", err)
		}
		emb = sql.NullString{String: string(e), Valid: true}
	}
	return string(b), emb, nil
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
