// Package catalog handles SQLite storage for game-file scan results.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"
)

// ErrFileNotFound indicates the requested file was never scanned
var ErrFileNotFound = errors.New("file not found in catalog")

// Status of a scanned file.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one scanned game file.
type Entry struct {
	Path   string
	Format string
	Size   int64
	Status string
	Error  string
}

// ProgramSummary captures what a decompiled script contains. Stored as a
// CBOR blob alongside the file entry.
type ProgramSummary struct {
	Revision     int `cbor:"revision"`
	Variables    int `cbor:"variables"`
	Strings      int `cbor:"strings"`
	Instructions int `cbor:"instructions"`
	Statements   int `cbor:"statements"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("catalog: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Catalog handles SQLite storage for scan results
type Catalog struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens a catalog database at the given path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		format TEXT NOT NULL,
		size INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		summary BLOB
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database connection
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Record persists a scan entry, replacing any earlier scan of the same
// path.
func (c *Catalog) Record(e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO files (path, format, size, status, error) VALUES (?, ?, ?, ?, ?)",
		e.Path, e.Format, e.Size, e.Status, e.Error,
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.Path, err)
	}
	return nil
}

// RecordProgram persists a successful script scan with its summary blob.
func (c *Catalog) RecordProgram(e Entry, sum *ProgramSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := cborEncMode.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encoding summary for %s: %w", e.Path, err)
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO files (path, format, size, status, error, summary) VALUES (?, ?, ?, ?, ?, ?)",
		e.Path, e.Format, e.Size, e.Status, e.Error, blob,
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.Path, err)
	}
	return nil
}

// Lookup returns the scan entry for a path.
func (c *Catalog) Lookup(path string) (Entry, error) {
	var e Entry
	err := c.db.QueryRow(
		"SELECT path, format, size, status, error FROM files WHERE path = ?", path,
	).Scan(&e.Path, &e.Format, &e.Size, &e.Status, &e.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrFileNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("querying %s: %w", path, err)
	}
	return e, nil
}

// Summary returns the stored program summary for a path, or nil when the
// entry has none.
func (c *Catalog) Summary(path string) (*ProgramSummary, error) {
	var blob []byte
	err := c.db.QueryRow("SELECT summary FROM files WHERE path = ?", path).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", path, err)
	}
	if blob == nil {
		return nil, nil
	}

	var sum ProgramSummary
	if err := cbor.Unmarshal(blob, &sum); err != nil {
		return nil, fmt.Errorf("decoding summary for %s: %w", path, err)
	}
	return &sum, nil
}

// FormatCounts returns how many scanned files carry each format.
func (c *Catalog) FormatCounts() (map[string]int, error) {
	rows, err := c.db.Query("SELECT format, COUNT(*) FROM files GROUP BY format")
	if err != nil {
		return nil, fmt.Errorf("counting formats: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var format string
		var n int
		if err := rows.Scan(&format, &n); err != nil {
			return nil, fmt.Errorf("scanning format row: %w", err)
		}
		counts[format] = n
	}
	return counts, rows.Err()
}

// Failures returns every entry whose scan failed, ordered by path.
func (c *Catalog) Failures() ([]Entry, error) {
	rows, err := c.db.Query(
		"SELECT path, format, size, status, error FROM files WHERE status = ? ORDER BY path", StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var failures []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Format, &e.Size, &e.Status, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning failure row: %w", err)
		}
		failures = append(failures, e)
	}
	return failures, rows.Err()
}
