// Package research researches markets via web search and caches results
package research

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Result is one market's research output
type Result struct {
	MarketID             string   `json:"market_id"`
	MarketTitle          string   `json:"market_title"`
	ResearchTime         string   `json:"research_time"`
	Summary              string   `json:"summary"`
	EstimatedProbability float64  `json:"estimated_probability"`
	Confidence           float64  `json:"confidence"`
	KeyFactors           []string `json:"key_factors"`
	Sources              []Source `json:"sources"`
}

// Source is one citation from web search
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ListEntry is the compact row returned by ListAll
type ListEntry struct {
	MarketID             string  `json:"market_id"`
	MarketTitle          string  `json:"market_title"`
	ResearchTime         string  `json:"research_time"`
	EstimatedProbability float64 `json:"estimated_probability"`
	Confidence           float64 `json:"confidence"`
}

// Store is the SQLite-backed research cache. Expiry is a read-time
// predicate: Get hides entries older than the TTL but ListAll shows
// everything, expired included. Writes are last-write-wins upserts.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenStore opens (and if needed creates) the cache database
func OpenStore(path string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open research db: %w", err)
	}

	s := &Store{db: db, ttl: ttl, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock overrides the time source. Used in tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS research (
			market_id TEXT PRIMARY KEY,
			market_title TEXT,
			research_time TEXT,
			summary TEXT,
			estimated_probability REAL,
			confidence REAL,
			key_factors TEXT,
			sources TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("init research db: %w", err)
	}
	return nil
}

// Get returns the cached result for a market, or nil when absent or
// older than the TTL. Expired rows are left in place.
func (s *Store) Get(ctx context.Context, marketID string) (*Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT market_id, market_title, research_time, summary,
		       estimated_probability, confidence, key_factors, sources
		FROM research WHERE market_id = ?
	`, marketID)

	var r Result
	var keyFactors, sources string
	err := row.Scan(&r.MarketID, &r.MarketTitle, &r.ResearchTime, &r.Summary,
		&r.EstimatedProbability, &r.Confidence, &keyFactors, &sources)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read research: %w", err)
	}

	researchTime, err := time.Parse(time.RFC3339, r.ResearchTime)
	if err != nil {
		return nil, fmt.Errorf("parse research time %q: %w", r.ResearchTime, err)
	}
	if s.now().UTC().Sub(researchTime) > s.ttl {
		return nil, nil
	}

	if keyFactors != "" {
		_ = json.Unmarshal([]byte(keyFactors), &r.KeyFactors)
	}
	if sources != "" {
		_ = json.Unmarshal([]byte(sources), &r.Sources)
	}
	return &r, nil
}

// Save upserts a research result, stamping it with the current time
func (s *Store) Save(ctx context.Context, r *Result) error {
	keyFactors, err := json.Marshal(r.KeyFactors)
	if err != nil {
		return err
	}
	sources, err := json.Marshal(r.Sources)
	if err != nil {
		return err
	}

	r.ResearchTime = s.now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO research
			(market_id, market_title, research_time, summary,
			 estimated_probability, confidence, key_factors, sources)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id) DO UPDATE SET
			market_title = excluded.market_title,
			research_time = excluded.research_time,
			summary = excluded.summary,
			estimated_probability = excluded.estimated_probability,
			confidence = excluded.confidence,
			key_factors = excluded.key_factors,
			sources = excluded.sources
	`, r.MarketID, r.MarketTitle, r.ResearchTime, r.Summary,
		r.EstimatedProbability, r.Confidence, string(keyFactors), string(sources))
	if err != nil {
		return fmt.Errorf("save research: %w", err)
	}
	return nil
}

// Delete removes a market's cached research
func (s *Store) Delete(ctx context.Context, marketID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM research WHERE market_id = ?", marketID)
	if err != nil {
		return fmt.Errorf("delete research: %w", err)
	}
	return nil
}

// ListAll returns every cached row regardless of age
func (s *Store) ListAll(ctx context.Context) ([]ListEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, market_title, research_time, estimated_probability, confidence
		FROM research
	`)
	if err != nil {
		return nil, fmt.Errorf("list research: %w", err)
	}
	defer rows.Close()

	var entries []ListEntry
	for rows.Next() {
		var e ListEntry
		if err := rows.Scan(&e.MarketID, &e.MarketTitle, &e.ResearchTime,
			&e.EstimatedProbability, &e.Confidence); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
