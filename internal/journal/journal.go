// Package journal records every snapshot the client accepts in a SQLite
// file, so a session can be replayed, re-rendered and audited later.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexsettlers/internal/board"
)

const schemaVersion = "1"

// ErrNoSessions reports an empty journal.
var ErrNoSessions = errors.New("journal has no sessions")

// Journal wraps the SQLite connection.
type Journal struct {
	conn *sqlx.DB
}

// Open opens or creates a journal at path, creating its directory.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	j := &Journal{conn: conn}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		server TEXT NOT NULL,
		player TEXT NOT NULL,
		layout TEXT NOT NULL,
		started_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		seq INTEGER NOT NULL,
		received_at INTEGER NOT NULL,
		hash TEXT NOT NULL,
		raw_size INTEGER NOT NULL,
		body BLOB NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`
	if _, err := j.conn.Exec(schema); err != nil {
		return err
	}
	return j.SaveMeta("schema_version", schemaVersion)
}

// SaveMeta stores a key-value pair.
func (j *Journal) SaveMeta(key, value string) error {
	_, err := j.conn.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetMeta retrieves a metadata value.
func (j *Journal) GetMeta(key string) (string, error) {
	var value string
	err := j.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// Session describes one recorded connection.
type Session struct {
	ID        string `db:"id"`
	Server    string `db:"server"`
	Player    string `db:"player"`
	Layout    string `db:"layout"`
	StartedAt int64  `db:"started_at"`
	Snapshots int    `db:"snapshots"`
	Bytes     int64  `db:"bytes"`
}

// Started returns the session start time.
func (s Session) Started() time.Time { return time.UnixMilli(s.StartedAt) }

// Begin creates a session row and returns a recorder for it.
func (j *Journal) Begin(ctx context.Context, server string, player board.PlayerID, layout string) (*Recorder, error) {
	id := uuid.New()
	_, err := j.conn.ExecContext(ctx,
		"INSERT INTO sessions (id, server, player, layout, started_at) VALUES (?, ?, ?, ?, ?)",
		id.String(), server, string(player), layout, time.Now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	slog.Info("journal session started", "session", id, "player", player)
	return &Recorder{j: j, id: id}, nil
}

// Sessions lists recorded sessions, newest first.
func (j *Journal) Sessions(ctx context.Context) ([]Session, error) {
	var out []Session
	err := j.conn.SelectContext(ctx, &out, `
		SELECT s.id, s.server, s.player, s.layout, s.started_at,
		       COUNT(n.seq) AS snapshots, COALESCE(SUM(n.raw_size), 0) AS bytes
		FROM sessions s LEFT JOIN snapshots n ON n.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.id`)
	return out, err
}

// Latest returns the most recently started session.
func (j *Journal) Latest(ctx context.Context) (Session, error) {
	sessions, err := j.Sessions(ctx)
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, ErrNoSessions
	}
	return sessions[0], nil
}

// Recorder appends snapshots to one session. It is safe for concurrent use.
type Recorder struct {
	j  *Journal
	id uuid.UUID

	mu   sync.Mutex
	seq  int
	last string
}

// ID returns the session id.
func (r *Recorder) ID() uuid.UUID { return r.id }

// Record stores raw unless it is byte-identical to the previous snapshot of
// this session. It reports whether a row was written.
func (r *Recorder) Record(ctx context.Context, raw []byte) (bool, error) {
	sum := digest(raw)

	r.mu.Lock()
	defer r.mu.Unlock()
	if sum == r.last {
		return false, nil
	}
	body, err := compress(raw)
	if err != nil {
		return false, err
	}
	_, err = r.j.conn.ExecContext(ctx,
		"INSERT INTO snapshots (session_id, seq, received_at, hash, raw_size, body) VALUES (?, ?, ?, ?, ?, ?)",
		r.id.String(), r.seq, time.Now().UnixMilli(), sum, len(raw), body,
	)
	if err != nil {
		return false, fmt.Errorf("insert snapshot %d: %w", r.seq, err)
	}
	r.seq++
	r.last = sum
	return true, nil
}

// Entry is one stored snapshot.
type Entry struct {
	Seq        int
	ReceivedAt time.Time
	Hash       string
	Body       []byte
}

type entryRow struct {
	Seq        int    `db:"seq"`
	ReceivedAt int64  `db:"received_at"`
	Hash       string `db:"hash"`
	RawSize    int    `db:"raw_size"`
	Body       []byte `db:"body"`
}

// Snapshots returns a session's snapshots in order, decompressed.
func (j *Journal) Snapshots(ctx context.Context, session string) ([]Entry, error) {
	var rows []entryRow
	err := j.conn.SelectContext(ctx, &rows,
		"SELECT seq, received_at, hash, raw_size, body FROM snapshots WHERE session_id = ? ORDER BY seq",
		session,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		body, err := decompress(row.Body, row.RawSize)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", row.Seq, err)
		}
		if digest(body) != row.Hash {
			return nil, fmt.Errorf("snapshot %d: hash mismatch", row.Seq)
		}
		out = append(out, Entry{
			Seq:        row.Seq,
			ReceivedAt: time.UnixMilli(row.ReceivedAt),
			Hash:       row.Hash,
			Body:       body,
		})
	}
	return out, nil
}
