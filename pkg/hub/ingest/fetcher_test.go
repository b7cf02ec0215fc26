package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fixture(t *testing.T) {
	f := NewFetcher(time.Second)

	// The dataset variant picks the fixture even when the entrypoint
	// remainder names something else.
	p, err := f.Fetch(context.Background(), "fixture://osm_geofabrik_china", "osm_china_v1")
	require.NoError(t, err)
	require.NotEmpty(t, p.Roads)
	assert.Equal(t, "中关村大街", p.Roads[0].Name)

	// Without a variant the entrypoint remainder keys the fixture.
	p, err = f.Fetch(context.Background(), "fixture://admin_v2", "")
	require.NoError(t, err)
	assert.Equal(t, "余杭区", p.AdminDivisions[2].Name)
}

func TestFetcher_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"roads": [{"road_id": "r1", "name": "文三路"}]}`), 0o644))

	f := NewFetcher(time.Second)
	p, err := f.Fetch(context.Background(), "file://"+path, "")
	require.NoError(t, err)
	require.Len(t, p.Roads, 1)
	assert.Equal(t, "文三路", p.Roads[0].Name)

	_, err = f.Fetch(context.Background(), "file://"+filepath.Join(t.TempDir(), "missing.json"), "")
	assert.Error(t, err)
}

func TestFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"elements": [{"type": "way", "id": 1, "tags": {"name": "中关村大街"}}]}`))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	p, err := f.Fetch(context.Background(), srv.URL, "osm_elements_v1")
	require.NoError(t, err)
	require.Len(t, p.Roads, 1)
	assert.Equal(t, "osm-way-1", p.Roads[0].RoadID)
}

func TestFetcher_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	_, err := f.Fetch(context.Background(), srv.URL, "")
	assert.Error(t, err)
}

func TestFetcher_UnsupportedScheme(t *testing.T) {
	f := NewFetcher(time.Second)
	_, err := f.Fetch(context.Background(), "ftp://example.com/data.json", "")
	assert.Error(t, err)
}
