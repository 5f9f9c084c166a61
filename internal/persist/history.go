// Package persist provides an optional on-disk history archive of
// flat-buffer snapshots, gated by SimConfig.HistoryEnabled (default
// off). Grounded on the teacher's db.go: database/sql against a
// SQLite file, a narrow hand-rolled schema, WAL mode for concurrent
// readers. Unlike the teacher's cgo mattn/go-sqlite3 driver, this uses
// the pure-Go modernc.org/sqlite driver so the archive never requires
// CGO_ENABLED. Each tick's flat buffer is LZ4-compressed before
// storage, the same way the teacher compresses federation payloads.
package persist

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pierrec/lz4/v4"

	_ "modernc.org/sqlite"
)

// History archives compressed per-tick flat buffers to a SQLite file.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if absent) the history database at path
// and ensures its schema exists.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS tick_snapshots (
		tick INTEGER PRIMARY KEY,
		sim_time REAL,
		squad_count INTEGER,
		flat_blob BLOB
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: create schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Record compresses and stores one tick's flat snapshot buffer. It is
// a no-op on a nil History, so callers can hold a *History that is
// nil when SimConfig.HistoryEnabled is false.
func (h *History) Record(tick uint64, simTime float64, flat []float32) error {
	if h == nil || h.db == nil {
		return nil
	}

	compressed, err := compressFloats(flat)
	if err != nil {
		return fmt.Errorf("persist: compress tick %d: %w", tick, err)
	}

	squadCount := 0
	if len(flat) > 0 {
		squadCount = int(flat[0])
	}

	_, err = h.db.Exec(
		`INSERT OR REPLACE INTO tick_snapshots (tick, sim_time, squad_count, flat_blob) VALUES (?, ?, ?, ?)`,
		tick, simTime, squadCount, compressed,
	)
	if err != nil {
		return fmt.Errorf("persist: insert tick %d: %w", tick, err)
	}
	return nil
}

// Load decompresses and returns the flat buffer stored for tick, or
// (nil, sql.ErrNoRows) if no row exists.
func (h *History) Load(tick uint64) ([]float32, error) {
	if h == nil || h.db == nil {
		return nil, sql.ErrNoRows
	}

	var compressed []byte
	err := h.db.QueryRow(`SELECT flat_blob FROM tick_snapshots WHERE tick = ?`, tick).Scan(&compressed)
	if err != nil {
		return nil, err
	}
	return decompressFloats(compressed)
}

func compressFloats(flat []float32) ([]byte, error) {
	raw := make([]byte, 4*len(flat))
	for i, v := range flat {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressFloats(compressed []byte) ([]float32, error) {
	zr := lz4.NewReader(bytes.NewReader(compressed))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}
