package clickhouse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/keygate/keygate/pkg/util"
)

type ClickhouseStore struct {
	Host     string `mapstructure:"host"`
	TCPPort  int    `mapstructure:"tcp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	MaxOpenConns        int `mapstructure:"max_open_conns"`
	MaxIdleConns        int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSecs int `mapstructure:"conn_max_lifetime_secs"`

	conn driver.Conn
}

func NewClickhouseStore(settings map[string]any) (*ClickhouseStore, error) {
	s := util.ConfigToStruct[ClickhouseStore](settings)

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", s.Host, s.TCPPort)},
		Auth: clickhouse.Auth{
			Database: s.Database,
			Username: s.Username,
			Password: s.Password,
		},
		MaxOpenConns:    s.MaxOpenConns,
		MaxIdleConns:    s.MaxIdleConns,
		ConnMaxLifetime: time.Duration(s.ConnMaxLifetimeSecs) * time.Second,
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	s.conn = conn
	return s, nil
}

func (s *ClickhouseStore) rows(query string) (driver.Rows, error) {
	return s.conn.Query(context.Background(), query)
}

func (s *ClickhouseStore) QueryJSON(query string, writer io.Writer) error {
	rows, err := s.rows(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns := rows.Columns()
	types := rows.ColumnTypes()

	if _, err := writer.Write([]byte("[")); err != nil {
		return err
	}

	firstRow := true
	encoder := json.NewEncoder(writer)
	for rows.Next() {
		values := make([]any, len(columns))
		for i := range values {
			values[i] = newScanValue(types[i])
		}
		if err := rows.Scan(values...); err != nil {
			return err
		}

		object := make(map[string]any, len(columns))
		for i, column := range columns {
			object[column] = values[i]
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

func (s *ClickhouseStore) QueryNDJson(query string, writer io.Writer) error {
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

func (s *ClickhouseStore) InsertBatchFromNDJson(table string, input io.ReadSeeker) error {
	ctx := context.Background()

	// First pass collects the column set so one batch covers every row.
	columnSet := map[string]bool{}
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parsed := gjson.Parse(line)
		if !parsed.IsObject() {
			return fmt.Errorf("not a JSON object: %s", line)
		}
		parsed.ForEach(func(key, _ gjson.Result) bool {
			columnSet[key.String()] = true
			return true
		})
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(columnSet) == 0 {
		return nil
	}

	columns := make([]string, 0, len(columnSet))
	for column := range columnSet {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	columnTypes, err := s.columnTypes(ctx, table)
	if err != nil {
		return err
	}

	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = fmt.Sprintf("`%s`", column)
	}

	batch, err := s.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO `%s` (%s)", table, strings.Join(quoted, ",")))
	if err != nil {
		return err
	}

	if _, err := input.Seek(0, io.SeekStart); err != nil {
		return err
	}
	scanner = bufio.NewScanner(input)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		values := make([]any, len(columns))
		for i, column := range columns {
			values[i] = jsonToGoType(columnTypes[column], gjson.Get(line, column))
		}
		if err := batch.Append(values...); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return batch.Send()
}

// columnTypes maps the table's column names to their declared types,
// stripped of parameters and Nullable/LowCardinality wrappers.
func (s *ClickhouseStore) columnTypes(ctx context.Context, table string) (map[string]string, error) {
	rows, err := s.conn.Query(ctx,
		"SELECT name, type FROM system.columns WHERE database = currentDatabase() AND table = ?", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rc := map[string]string{}
	for rows.Next() {
		var name, colType string
		if err := rows.Scan(&name, &colType); err != nil {
			return nil, err
		}
		rc[name] = baseType(colType)
	}
	return rc, rows.Err()
}

func baseType(colType string) string {
	for _, wrapper := range []string{"Nullable(", "LowCardinality("} {
		if strings.HasPrefix(colType, wrapper) {
			colType = strings.TrimSuffix(colType[len(wrapper):], ")")
		}
	}
	if i := strings.IndexByte(colType, '('); i >= 0 {
		colType = colType[:i]
	}
	return colType
}

// jsonToGoType converts a JSON value to the concrete Go type the typed
// batch column expects.
func jsonToGoType(colType string, data gjson.Result) any {
	switch colType {
	case "String", "FixedString", "UUID", "Date", "Date32":
		return data.String()
	case "Decimal":
		return decimal.NewFromFloat(data.Float())
	case "Bool":
		return data.Bool()
	case "UInt8":
		return uint8(data.Uint())
	case "UInt16":
		return uint16(data.Uint())
	case "UInt32":
		return uint32(data.Uint())
	case "UInt64":
		return data.Uint()
	case "UInt128", "UInt256", "Int128", "Int256":
		n := new(big.Int)
		n.SetString(data.String(), 10)
		return n
	case "Int8":
		return int8(data.Int())
	case "Int16":
		return int16(data.Int())
	case "Int32":
		return int32(data.Int())
	case "Int64":
		return data.Int()
	case "Float32":
		return float32(data.Float())
	case "Float64":
		return data.Float()
	case "DateTime", "DateTime64":
		if data.Type == gjson.Number {
			return data.Int()
		}
		return data.String()
	case "Enum8":
		return int8(data.Int())
	case "Enum16":
		return int16(data.Int())
	}

	return data.String()
}

func (s *ClickhouseStore) Close() error {
	log.Debug().Str("host", s.Host).Msg("Closing clickhouse tenant store")
	return s.conn.Close()
}

// newScanValue allocates a scan target of the column's Go type.
func newScanValue(t driver.ColumnType) any {
	return reflect.New(t.ScanType()).Interface()
}
