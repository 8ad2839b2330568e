// Package memory implements a tenant store backed by in-process tables.
// Used by tests and demo configs.
package memory

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"sync"
)

// selectStarFromPat matches the query `select * from (table)`
var selectStarFromPat = regexp.MustCompile(`(?i)^\s*select\s+[*]\s+from\s+(\w+)\s*;?\s*$`)

var ErrClosed = errors.New("tenant store is closed")

type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]json.RawMessage
	closed bool
}

func NewMemoryStore(settings map[string]any) (*MemoryStore, error) {
	return &MemoryStore{
		tables: map[string][]json.RawMessage{},
	}, nil
}

func (m *MemoryStore) InsertBatchFromNDJson(table string, r io.ReadSeeker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	dec := json.NewDecoder(r)
	for {
		var data json.RawMessage
		err := dec.Decode(&data)
		switch {
		case err == nil:
			m.tables[table] = append(m.tables[table], data)
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}

// QueryJSON understands only `select * from $table`; anything else
// returns an empty result set.
func (m *MemoryStore) QueryJSON(query string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	rows := []json.RawMessage{}
	if match := selectStarFromPat.FindStringSubmatch(query); len(match) == 2 {
		rows = append(rows, m.tables[match[1]]...)
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func (m *MemoryStore) QueryNDJson(query string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	if match := selectStarFromPat.FindStringSubmatch(query); len(match) == 2 {
		for _, row := range m.tables[match[1]] {
			if _, err := w.Write(row); err != nil {
				return err
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true
	return nil
}
