// Package auditlog records a queryable summary of each completed
// transaction to SQLite, independent of the in-memory response cache.
// It is grounded on the SQLiteCache pattern of storing structured rows
// under a single write mutex, retargeted from caching response bytes to
// logging transaction outcomes.
package auditlog

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/zerolog/log"
)

// Outcome classifies how a transaction ended, for the audit log's
// outcome column.
type Outcome string

const (
	OutcomeHit          Outcome = "hit"
	OutcomeAdmitted     Outcome = "admitted"
	OutcomeNotAdmitted  Outcome = "not-admitted"
	OutcomeBadRequest   Outcome = "bad-request"
	OutcomeNotImpl      Outcome = "not-implemented"
	OutcomeConnectError Outcome = "connect-error"
	OutcomeClientError  Outcome = "client-error"
)

// Entry is one summary record handed to the log by a transaction on
// DONE.
type Entry struct {
	TxID       string
	URI        string
	Outcome    Outcome
	Bytes      int
	StartedAt  time.Time
	DurationMS int64
}

// Log is an optional, asynchronous writer of Entry records. A nil *Log
// is valid and simply discards every entry, matching the teacher's
// "provider selects a no-op or real backend at startup" pattern.
type Log struct {
	db      *sql.DB
	writeMu sync.Mutex
	entries chan Entry
	done    chan struct{}
}

// Open creates (or opens) the SQLite file at path and starts the
// background writer goroutine. Passing an empty path is a programmer
// error; callers should use a nil *Log to disable auditing instead.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS transactions (
		txid TEXT PRIMARY KEY,
		uri TEXT,
		outcome TEXT,
		bytes INTEGER,
		started_at INTEGER,
		duration_ms INTEGER
	)`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	l := &Log{
		db:      db,
		entries: make(chan Entry, 256),
		done:    make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Record enqueues an entry for asynchronous writing. It never blocks
// the caller on disk I/O: if the internal buffer is full, the entry is
// dropped and a warning is logged, so a slow disk can never back up a
// transaction goroutine. Record is safe to call on a nil *Log.
func (l *Log) Record(e Entry) {
	if l == nil {
		return
	}
	select {
	case l.entries <- e:
	default:
		log.Warn().Str("txid", e.TxID).Msg("audit log buffer full, dropping entry")
	}
}

// Close stops the writer goroutine and closes the database. Safe to
// call on a nil *Log.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	close(l.entries)
	<-l.done
	return l.db.Close()
}

func (l *Log) run() {
	defer close(l.done)
	for e := range l.entries {
		if err := l.write(e); err != nil {
			log.Warn().Err(err).Str("txid", e.TxID).Msg("could not write audit log entry")
		}
	}
}

func (l *Log) write(e Entry) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_, err := l.db.Exec(
		`INSERT OR REPLACE INTO transactions
			(txid, uri, outcome, bytes, started_at, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?)`,
		e.TxID, e.URI, string(e.Outcome), e.Bytes, e.StartedAt.Unix(), e.DurationMS,
	)
	return err
}
