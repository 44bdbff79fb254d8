package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/mhellwig/mapdeck/pkg/errors"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		wantErr     error
		wantContent string
	}{
		{
			name: "successful download",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("map payload"))
			},
			wantContent: "map payload",
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: pkgerrors.ErrNetwork,
		},
		{
			name: "truncated body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Length", "1000")
				_, _ = w.Write([]byte("short"))
			},
			wantErr: pkgerrors.ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			fs := afero.NewMemMapFs()
			m := NewManager(fs, 5*time.Second, "")
			dest := "/cache/maps/europe/lakes.geojson"

			err := m.Fetch(context.Background(), Item{ID: "lakes", URL: mustURL(t, server.URL), Dest: dest})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				exists, serr := afero.Exists(fs, dest)
				require.NoError(t, serr)
				assert.False(t, exists, "failed fetch must not create the destination")
				return
			}
			require.NoError(t, err)
			data, err := afero.ReadFile(fs, dest)
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, string(data))
		})
	}
}

func TestFetchDoesNotClobberExistingFileOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	dest := "/cache/maps/lakes.geojson"
	require.NoError(t, afero.WriteFile(fs, dest, []byte("old content"), 0o644))

	m := NewManager(fs, 5*time.Second, "")
	err := m.Fetch(context.Background(), Item{ID: "lakes", URL: mustURL(t, server.URL), Dest: dest})
	require.Error(t, err)

	data, err := afero.ReadFile(fs, dest)
	require.NoError(t, err)
	assert.Equal(t, "old content", string(data), "destination must stay byte-for-byte intact")
}

func TestFetchCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "10")
		_, _ = w.Write([]byte("12345"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	fs := afero.NewMemMapFs()
	dest := "/cache/maps/lakes.geojson"
	require.NoError(t, afero.WriteFile(fs, dest, []byte("old content"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	m := NewManager(fs, time.Minute, "")
	err := m.Fetch(ctx, Item{ID: "lakes", URL: mustURL(t, server.URL), Dest: dest})
	require.ErrorIs(t, err, context.Canceled)

	data, err := afero.ReadFile(fs, dest)
	require.NoError(t, err)
	assert.Equal(t, "old content", string(data))
}

func TestFetchValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManager(fs, time.Second, "test-agent/1.0")

	err := m.Fetch(context.Background(), Item{ID: "x", Dest: "/cache/x"})
	assert.ErrorIs(t, err, pkgerrors.ErrNoRemote)

	err = m.Fetch(context.Background(), Item{ID: "x", URL: mustURL(t, "https://example.org/x"), Dest: "relative/x"})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidPath)
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, IsTempFile("lakes.geojson.mapdeck-1234.tmp"))
	assert.False(t, IsTempFile("lakes.geojson"))
}
