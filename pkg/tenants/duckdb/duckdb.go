package duckdb

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog/log"

	"github.com/keygate/keygate/pkg/util"
)

// DuckDBStore is a file-backed (or, with an empty path, in-memory)
// tenant store.
type DuckDBStore struct {
	File string `mapstructure:"file"`

	conn *sql.DB
}

func NewDuckDBStore(settings map[string]any) (*DuckDBStore, error) {
	s := util.ConfigToStruct[DuckDBStore](settings)

	conn, err := sql.Open("duckdb", s.File)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	s.conn = conn
	return s, nil
}

func (s *DuckDBStore) QueryJSON(query string, writer io.Writer) error {
	rows, err := s.conn.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range columns {
		valuePtrs[i] = &values[i]
	}

	if _, err := writer.Write([]byte("[")); err != nil {
		return err
	}

	firstRow := true
	encoder := json.NewEncoder(writer)
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}

		object := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				object[column] = string(b)
			} else {
				object[column] = values[i]
			}
		}

		if !firstRow {
			if _, err := writer.Write([]byte(",")); err != nil {
				return err
			}
		}
		firstRow = false

		if err := encoder.Encode(object); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = writer.Write([]byte("]"))
	return err
}

func (s *DuckDBStore) QueryNDJson(query string, writer io.Writer) error {
	r, w := io.Pipe()
	go func() {
		if queryErr := s.QueryJSON(query, w); queryErr != nil {
			w.CloseWithError(queryErr)
		} else {
			w.Close()
		}
	}()

	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return err
	}

	for dec.More() {
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return err
		}

		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := writer.Write(data); err != nil {
			return err
		}
		if _, err := writer.Write([]byte{'\n'}); err != nil {
			return err
		}
	}

	_, err := dec.Token()
	return err
}

func (s *DuckDBStore) InsertBatchFromNDJson(table string, input io.ReadSeeker) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			tx.Rollback()
			return err
		}

		columns := make([]string, 0, len(row))
		for column := range row {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		quoted := make([]string, len(columns))
		placeholders := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, column := range columns {
			quoted[i] = fmt.Sprintf("%q", column)
			placeholders[i] = "?"
			args[i] = row[column]
		}

		stmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
			table, strings.Join(quoted, ","), strings.Join(placeholders, ","))
		if _, err := tx.Exec(stmt, args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *DuckDBStore) Close() error {
	log.Debug().Str("file", s.File).Msg("Closing duckdb tenant store")
	return s.conn.Close()
}
