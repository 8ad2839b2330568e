package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

var insertSize = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "insert_bytes",
	Help:    "Bytes inserted in single request",
	Buckets: prometheus.ExponentialBucketsRange(1000, 100_000_000, 5),
})

var insertArraySize = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "insert_array_length",
	Help:    "Items in single request",
	Buckets: prometheus.LinearBuckets(1, 50, 10),
})

// Select runs a read query against the caller's tenant store. The store
// was resolved by the auth middleware; by the time we are here the key
// has already cleared its scope check.
func (a *KeyGateAPI) Select(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	format := r.URL.Query().Get("format")

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Unable to read query"))
			return
		}
		if q := gjson.GetBytes(body, "query"); q.Exists() {
			query = q.String()
		} else {
			query = string(body)
		}
	}

	if strings.TrimSpace(query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	store, ok := tenantFromContext(r.Context())
	if !ok {
		http.Error(w, "no tenant store", http.StatusInternalServerError)
		return
	}

	var err error
	switch format {
	case "ndjson":
		w.Header().Set("Content-Type", "application/x-ndjson")
		err = store.QueryNDJson(query, w)
	default:
		w.Header().Set("Content-Type", "application/json")
		err = store.QueryJSON(query, w)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// Insert writes rows into a table in the caller's tenant store. The body
// is either a JSON object or a JSON array of objects; both are fed to
// the store as NDJSON.
func (a *KeyGateAPI) Insert(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to read data"))
		return
	}
	insertSize.Observe(float64(len(body)))

	if !gjson.ValidBytes(body) {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	parsed := gjson.ParseBytes(body)
	var lines []gjson.Result
	if parsed.IsArray() {
		lines = parsed.Array()
	} else {
		lines = []gjson.Result{parsed}
	}
	insertArraySize.Observe(float64(len(lines)))

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line.Raw)
		buf.WriteByte('\n')
	}

	store, ok := tenantFromContext(r.Context())
	if !ok {
		http.Error(w, "no tenant store", http.StatusInternalServerError)
		return
	}

	if err := store.InsertBatchFromNDJson(table, bytes.NewReader(buf.Bytes())); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if record, ok := keyFromContext(r.Context()); ok {
		log.Trace().Str("key_uuid", record.UUID).Str("table", table).Int("rows", len(lines)).Msg("Insert")
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
