// Package history persists finished analyses in SQLite so users can
// revisit a listing later and see whether its risk moved. The store sits
// outside the request path: saving is best effort and never delays or
// fails an analysis response.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrAnalysisNotFound is returned when an id does not exist.
var ErrAnalysisNotFound = errors.New("analysis not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Record is one stored analysis.
type Record struct {
	ID           string          `json:"id"`
	URL          string          `json:"url"`
	Platform     string          `json:"platform"`
	Score        int             `json:"score"`
	RiskLevel    model.RiskLevel `json:"risk_level"`
	VerdictTitle string          `json:"verdict_title"`
	CreatedAt    int64           `json:"created_at"`
	ResultJSON   string          `json:"result_json"`
}

// DiffChunk is one changed span between two stored result documents.
// Equal spans are omitted.
type DiffChunk struct {
	Type    string `json:"type"` // "added" or "removed"
	Content string `json:"content"`
}

// Comparison reports how two stored analyses of (usually) the same URL
// differ.
type Comparison struct {
	A           *Record         `json:"a"`
	B           *Record         `json:"b"`
	ScoreDelta  int             `json:"score_delta"` // B relative to A
	RiskFrom    model.RiskLevel `json:"risk_from"`
	RiskTo      model.RiskLevel `json:"risk_to"`
	RiskChanged bool            `json:"risk_changed"`
	Changes     []DiffChunk     `json:"changes"`
}

// Store is the SQLite-backed analysis archive.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. The parent directory is created when missing.
func Open(path string, logger logging.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: db path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log := logger.With(logging.Field{Key: "component", Value: "history"})
	log.Info("history store opened", logging.Field{Key: "path", Value: path})
	return &Store{db: db, logger: log}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAnalysis inserts rec, assigning ID and CreatedAt when unset.
func (s *Store) SaveAnalysis(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("history: nil record")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, url, platform, score, risk_level, verdict_title, created_at, result_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.Platform, rec.Score, string(rec.RiskLevel), rec.VerdictTitle, rec.CreatedAt, rec.ResultJSON,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	s.logger.Debug("analysis saved",
		logging.Field{Key: "id", Value: rec.ID},
		logging.Field{Key: "url", Value: rec.URL},
		logging.Field{Key: "score", Value: rec.Score})
	return nil
}

// GetAnalysis returns the record with the given id.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, platform, score, risk_level, verdict_title, created_at, result_json
         FROM analyses
         WHERE id = ?
         LIMIT 1`,
		id,
	)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListAnalyses returns the most recent analyses, newest first. A non-empty
// url restricts the listing to that URL. limit falls back to 20 and is
// capped at 100.
func (s *Store) ListAnalyses(ctx context.Context, url string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT id, url, platform, score, risk_level, verdict_title, created_at, result_json
              FROM analyses`
	args := []any{}
	if url != "" {
		query += ` WHERE url = ?`
		args = append(args, url)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CompareAnalyses diffs two stored analyses. The diff runs over the stored
// result JSON with semantic cleanup; equal spans are dropped.
func (s *Store) CompareAnalyses(ctx context.Context, idA, idB string) (*Comparison, error) {
	a, err := s.GetAnalysis(ctx, idA)
	if err != nil {
		return nil, fmt.Errorf("analysis %s: %w", idA, err)
	}
	b, err := s.GetAnalysis(ctx, idB)
	if err != nil {
		return nil, fmt.Errorf("analysis %s: %w", idB, err)
	}

	cmp := &Comparison{
		A:           a,
		B:           b,
		ScoreDelta:  b.Score - a.Score,
		RiskFrom:    a.RiskLevel,
		RiskTo:      b.RiskLevel,
		RiskChanged: a.RiskLevel != b.RiskLevel,
		Changes:     []DiffChunk{},
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a.ResultJSON, b.ResultJSON, true)
	diffs = dmp.DiffCleanupSemantic(diffs)
	for _, d := range diffs {
		var chunkType string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			chunkType = "added"
		case diffmatchpatch.DiffDelete:
			chunkType = "removed"
		default:
			continue
		}
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		cmp.Changes = append(cmp.Changes, DiffChunk{Type: chunkType, Content: d.Text})
	}
	return cmp, nil
}

func scanRecord(scan func(dest ...any) error) (*Record, error) {
	var rec Record
	var risk string
	if err := scan(&rec.ID, &rec.URL, &rec.Platform, &rec.Score, &risk, &rec.VerdictTitle, &rec.CreatedAt, &rec.ResultJSON); err != nil {
		return nil, err
	}
	rec.RiskLevel = model.RiskLevel(risk)
	return &rec, nil
}
