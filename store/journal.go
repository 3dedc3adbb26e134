package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/lispik/compiler"
	"github.com/chazu/lispik/compiler/hash"
	"github.com/chazu/lispik/pkg/bytecode"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrHashMismatch indicates a journaled function whose source no longer
// hashes to the recorded value.
var ErrHashMismatch = errors.New("function hash mismatch")

// FunctionRecord is one journaled definition.
type FunctionRecord struct {
	SessionID string
	Name      string
	Hash      string
	Source    string
	CreatedAt time.Time
}

// Submission is one journaled evaluation.
type Submission struct {
	ID        string
	SessionID string
	Source    string
	Results   []bytecode.Literal
	Error     string
	CreatedAt time.Time
}

// Journal records session definitions and submissions in SQLite.
type Journal struct {
	db  *sql.DB
	mu  sync.Mutex
	log commonlog.Logger
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS functions (
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			hash TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (session_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			source TEXT NOT NULL,
			results BLOB,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS submissions_session ON submissions (session_id, seq)`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	return &Journal{db: db, log: commonlog.GetLogger("lispik.store")}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// RecordFunction stores a committed definition.
func (j *Journal) RecordFunction(sessionID, name, contentHash, source string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		"INSERT OR REPLACE INTO functions (session_id, name, hash, source, created_at) VALUES (?, ?, ?, ?, ?)",
		sessionID, name, contentHash, source, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving function %s: %w", name, err)
	}
	return nil
}

// Functions returns a session's definitions in the order they were recorded.
func (j *Journal) Functions(sessionID string) ([]FunctionRecord, error) {
	rows, err := j.db.Query(
		"SELECT session_id, name, hash, source, created_at FROM functions WHERE session_id = ? ORDER BY created_at, rowid",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying functions: %w", err)
	}
	defer rows.Close()

	var records []FunctionRecord
	for rows.Next() {
		var r FunctionRecord
		var created int64
		if err := rows.Scan(&r.SessionID, &r.Name, &r.Hash, &r.Source, &created); err != nil {
			return nil, fmt.Errorf("scanning function: %w", err)
		}
		r.CreatedAt = time.Unix(0, created)
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecordSubmission stores an evaluated submission with its results or error.
func (j *Journal) RecordSubmission(sessionID, source string, results []bytecode.Literal, evalErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var blob []byte
	var errText string
	if evalErr != nil {
		errText = evalErr.Error()
	} else {
		var err error
		if blob, err = EncodeResults(results); err != nil {
			return err
		}
	}

	_, err := j.db.Exec(
		`INSERT INTO submissions (id, seq, session_id, source, results, error, created_at)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM submissions WHERE session_id = ?), ?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, sessionID, source, blob, errText, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving submission: %w", err)
	}
	return nil
}

// Submissions returns a session's submissions, oldest first.
func (j *Journal) Submissions(sessionID string) ([]Submission, error) {
	rows, err := j.db.Query(
		"SELECT id, session_id, source, results, error, created_at FROM submissions WHERE session_id = ? ORDER BY seq",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var s Submission
		var blob []byte
		var created int64
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Source, &blob, &s.Error, &created); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		if len(blob) > 0 {
			if s.Results, err = DecodeResults(blob); err != nil {
				return nil, err
			}
		}
		s.CreatedAt = time.Unix(0, created)
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// LatestSession returns the id of the session with the most recent activity,
// or "" for an empty journal.
func (j *Journal) LatestSession() (string, error) {
	var id string
	err := j.db.QueryRow(`
		SELECT session_id FROM (
			SELECT session_id, created_at FROM functions
			UNION ALL
			SELECT session_id, created_at FROM submissions
		) ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying latest session: %w", err)
	}
	return id, nil
}

// VerifiedSources returns the sources of a session's functions after checking
// each against its recorded hash.
func (j *Journal) VerifiedSources(sessionID string) ([]string, error) {
	records, err := j.Functions(sessionID)
	if err != nil {
		return nil, err
	}
	sources := make([]string, 0, len(records))
	for _, r := range records {
		if err := VerifyFunction(r); err != nil {
			return nil, err
		}
		sources = append(sources, r.Source)
	}
	j.log.Debugf("verified %d functions for session %s", len(sources), sessionID)
	return sources, nil
}

// VerifyFunction parses a record's source and checks that it defines exactly
// the named function with the recorded content hash.
func VerifyFunction(r FunctionRecord) error {
	program, err := compiler.Parse(r.Source)
	if err != nil {
		return fmt.Errorf("store: parse %s: %w", r.Name, err)
	}
	if len(program.Functions) != 1 || len(program.Expressions) != 0 {
		return fmt.Errorf("store: source of %s is not a single definition", r.Name)
	}
	fn := program.Functions[0]
	if fn.Name != r.Name {
		return fmt.Errorf("store: source defines %s, recorded as %s", fn.Name, r.Name)
	}
	if computed := hash.Hex(fn); computed != r.Hash {
		return fmt.Errorf("store: %s: declared %s, computed %s: %w", r.Name, r.Hash, computed, ErrHashMismatch)
	}
	return nil
}
