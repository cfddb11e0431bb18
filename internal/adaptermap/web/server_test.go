package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/adaptermap/internal/records"
)

type fakeLister struct {
	list []records.Record
	err  error
}

func (f fakeLister) List(context.Context) ([]records.Record, error) {
	return f.list, f.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestListPublishesEntries(t *testing.T) {
	note := "ATX only"
	lister := fakeLister{list: []records.Record{
		{UserID: 1, Username: "ada", Location: records.Location{Latitude: 52.5, Longitude: 13.4}, Note: &note},
		{UserID: 2, Username: "bob", Location: records.Location{Latitude: -1, Longitude: 2}},
	}}
	h := NewServer(Config{}, lister, nil).Handler()

	for _, path := range []string{"/adapters.json", "/pcbs.json"} {
		rr := get(t, h, path)
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `[
			{"userId":1,"username":"ada","location":[52.5,13.4],"additionalInformation":"ATX only"},
			{"userId":2,"username":"bob","location":[-1,2],"additionalInformation":null}
		]`, rr.Body.String())
	}
}

func TestListEmptyIsArray(t *testing.T) {
	rr := get(t, NewServer(Config{}, fakeLister{}, nil).Handler(), "/adapters.json")
	require.Equal(t, http.StatusOK, rr.Code)
	var out []json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestListFailure(t *testing.T) {
	rr := get(t, NewServer(Config{}, fakeLister{err: errors.New("db down")}, nil).Handler(), "/adapters.json")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}

func TestListRejectsWrites(t *testing.T) {
	rr := httptest.NewRecorder()
	NewServer(Config{}, fakeLister{}, nil).Handler().
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/adapters.json", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStaticAndMetrics(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>map</h1>"), 0o644))

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_hits_total", Help: "hits"})
	reg.MustRegister(c)
	c.Inc()

	h := NewServer(Config{StaticDir: dir}, fakeLister{}, reg).Handler()

	rr := get(t, h, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<h1>map</h1>")

	rr = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "test_hits_total 1")

	assert.Equal(t, http.StatusNoContent, get(t, h, "/healthz").Code)
}

func TestNoStaticDirMeans404(t *testing.T) {
	rr := get(t, NewServer(Config{}, fakeLister{}, nil).Handler(), "/index.html")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewServer(Config{Listen: "127.0.0.1:0"}, fakeLister{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
