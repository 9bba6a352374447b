package runlog

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"covenant/internal/codec"
	"covenant/internal/logging"
)

// SQLiteLog persists the chain to a sqlite database so a run can be
// replayed long after the process that produced it is gone. The
// writer is mutex-guarded; the kernel is single-threaded but the CLI
// may read summaries while a run is appending.
type SQLiteLog struct {
	mu sync.Mutex
	db *sql.DB

	length   uint64
	lastHash codec.Digest
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq     INTEGER PRIMARY KEY,
	epoch   INTEGER NOT NULL,
	kind    TEXT    NOT NULL,
	payload BLOB    NOT NULL,
	pre     TEXT    NOT NULL,
	post    TEXT    NOT NULL,
	prev    TEXT    NOT NULL,
	hash    TEXT    NOT NULL
);
`

// OpenSQLiteLog opens (or creates) a run-log database. An existing
// chain is picked up at its head so appends continue it.
func OpenSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create run log schema: %w", err)
	}

	l := &SQLiteLog{db: db}

	row := db.QueryRow("SELECT COUNT(*), COALESCE(MAX(seq), -1) FROM records")
	var count int64
	var maxSeq int64
	if err := row.Scan(&count, &maxSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read run log head: %w", err)
	}
	if count > 0 {
		var hashHex string
		if err := db.QueryRow("SELECT hash FROM records WHERE seq = ?", maxSeq).Scan(&hashHex); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to read chain head: %w", err)
		}
		head, err := codec.ParseDigest(hashHex)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("corrupt chain head: %w", err)
		}
		l.length = uint64(count)
		l.lastHash = head
	}

	logging.Runlog("opened %s with %d existing records", path, l.length)
	return l, nil
}

// Close closes the database.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

// Append implements Log.
func (l *SQLiteLog) Append(epoch uint64, kind string, payload []byte, pre, post codec.Digest) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := Record{
		Seq:     l.length,
		Epoch:   epoch,
		Kind:    kind,
		Payload: payload,
		Pre:     pre,
		Post:    post,
		Prev:    l.lastHash,
	}
	r.Hash = r.ComputeHash()

	_, err := l.db.Exec(
		"INSERT INTO records (seq, epoch, kind, payload, pre, post, prev, hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		r.Seq, r.Epoch, r.Kind, r.Payload,
		r.Pre.String(), r.Post.String(), r.Prev.String(), r.Hash.String(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to append record %d: %w", r.Seq, err)
	}

	l.length++
	l.lastHash = r.Hash
	return r, nil
}

// Records implements Log.
func (l *SQLiteLog) Records() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query("SELECT seq, epoch, kind, payload, pre, post, prev, hash FROM records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var preHex, postHex, prevHex, hashHex string
		if err := rows.Scan(&r.Seq, &r.Epoch, &r.Kind, &r.Payload, &preHex, &postHex, &prevHex, &hashHex); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		for dst, src := range map[*codec.Digest]string{
			&r.Pre: preHex, &r.Post: postHex, &r.Prev: prevHex, &r.Hash: hashHex,
		} {
			d, err := codec.ParseDigest(src)
			if err != nil {
				return nil, fmt.Errorf("corrupt digest in record %d: %w", r.Seq, err)
			}
			*dst = d
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastHash implements Log.
func (l *SQLiteLog) LastHash() codec.Digest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHash
}

// Len implements Log.
func (l *SQLiteLog) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.length
}
