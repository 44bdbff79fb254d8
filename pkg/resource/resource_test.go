package resource

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mhellwig/mapdeck/pkg/download"
	mock_download "github.com/mhellwig/mapdeck/pkg/download/mocks"
	pkgerrors "github.com/mhellwig/mapdeck/pkg/errors"
)

func remoteURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://example.org/storage/europe/lakes.geojson")
	require.NoError(t, err)
	return u
}

func TestLocalDescriptor(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(fs, remoteURL(t), "/cache/maps/europe/lakes.geojson")
	r.SetName("lakes")
	r.SetCategory("europe")

	assert.False(t, r.HasLocalFile())
	assert.Zero(t, r.LocalSize())
	assert.True(t, r.LocalModified().IsZero())

	require.NoError(t, afero.WriteFile(fs, r.LocalPath(), []byte("12345"), 0o644))

	assert.True(t, r.HasLocalFile())
	assert.Equal(t, int64(5), r.LocalSize())
	assert.False(t, r.LocalModified().IsZero())
}

func TestUpdatable(t *testing.T) {
	past := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	future := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name      string
		localFile bool
		remote    bool
		size      int64
		modified  time.Time
		want      bool
	}{
		{name: "no local file", localFile: false, remote: true, size: 10, modified: future, want: false},
		{name: "no remote", localFile: true, remote: false, size: 10, modified: future, want: false},
		{name: "remote newer", localFile: true, remote: true, size: 5, modified: future, want: true},
		{name: "size differs", localFile: true, remote: true, size: 99, modified: past, want: true},
		{name: "same size and older remote", localFile: true, remote: true, size: 5, modified: past, want: false},
		{name: "unknown remote size and older remote", localFile: true, remote: true, size: 0, modified: past, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			var u *url.URL
			if tt.remote {
				u = remoteURL(t)
			}
			r := New(fs, u, "/cache/maps/lakes.geojson")
			r.SetName("lakes")
			if tt.localFile {
				require.NoError(t, afero.WriteFile(fs, r.LocalPath(), []byte("12345"), 0o644))
			}
			r.SetRemoteDescriptor(tt.size, tt.modified)

			assert.Equal(t, tt.want, r.Updatable())
			if tt.want {
				assert.Equal(t, tt.size, r.UpdateSize())
			} else {
				assert.Zero(t, r.UpdateSize())
			}
		})
	}
}

func TestOrphaned(t *testing.T) {
	fs := afero.NewMemMapFs()

	r := New(fs, nil, "/cache/maps/gone.mbtiles")
	assert.True(t, r.Orphaned())

	require.NoError(t, afero.WriteFile(fs, r.LocalPath(), []byte("x"), 0o644))
	assert.False(t, r.Orphaned())

	withRemote := New(fs, remoteURL(t), "/cache/maps/other.geojson")
	assert.False(t, withRemote.Orphaned())
}

func TestClearRemote(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(fs, remoteURL(t), "/cache/maps/lakes.geojson")
	r.SetRemoteDescriptor(100, time.Now())

	r.ClearRemote()

	assert.False(t, r.HasRemote())
	assert.Zero(t, r.RemoteSize())
	assert.True(t, r.RemoteModified().IsZero())
}

func TestStartTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	fs := afero.NewMemMapFs()
	dl := mock_download.NewMockManager(ctrl)
	done := make(chan TransferResult, 1)

	r := New(fs, remoteURL(t), "/cache/maps/europe/lakes.geojson")
	r.SetName("lakes")

	dl.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, item download.Item) error {
			return afero.WriteFile(fs, item.Dest, []byte("payload"), 0o644)
		})

	require.True(t, r.StartTransfer(context.Background(), dl, done))
	assert.Equal(t, StateDownloading, r.State())

	// A second start while downloading is a no-op.
	assert.False(t, r.StartTransfer(context.Background(), dl, done))

	res := <-done
	assert.Equal(t, "lakes", res.Name)
	require.NoError(t, res.Err)

	r.FinishTransfer(res.Err)
	assert.Equal(t, StateIdle, r.State())
	assert.NoError(t, r.Failure())
	assert.True(t, r.HasLocalFile())
}

func TestStartTransferWithoutRemote(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(fs, nil, "/cache/maps/orphan.mbtiles")
	assert.False(t, r.StartTransfer(context.Background(), nil, nil))
}

func TestCancelTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	fs := afero.NewMemMapFs()
	dl := mock_download.NewMockManager(ctrl)
	done := make(chan TransferResult, 1)

	r := New(fs, remoteURL(t), "/cache/maps/lakes.geojson")
	r.SetName("lakes")
	require.NoError(t, afero.WriteFile(fs, r.LocalPath(), []byte("old"), 0o644))

	dl.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ download.Item) error {
			<-ctx.Done()
			return context.Canceled
		})

	require.True(t, r.StartTransfer(context.Background(), dl, done))
	r.CancelTransfer()

	res := <-done
	r.FinishTransfer(res.Err)

	assert.Equal(t, StateIdle, r.State())
	assert.NoError(t, r.Failure(), "a cancelled transfer is not a failure")

	data, err := afero.ReadFile(fs, r.LocalPath())
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestFailedTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	fs := afero.NewMemMapFs()
	dl := mock_download.NewMockManager(ctrl)
	done := make(chan TransferResult, 1)

	r := New(fs, remoteURL(t), "/cache/maps/lakes.geojson")
	r.SetName("lakes")

	dl.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(pkgerrors.ErrNetwork)

	require.True(t, r.StartTransfer(context.Background(), dl, done))
	res := <-done
	r.FinishTransfer(res.Err)

	assert.Equal(t, StateFailed, r.State())
	assert.ErrorIs(t, r.Failure(), pkgerrors.ErrNetwork)

	// A failed resource can start a fresh transfer.
	dl.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil)
	require.True(t, r.StartTransfer(context.Background(), dl, done))
	r.FinishTransfer((<-done).Err)
	assert.Equal(t, StateIdle, r.State())
}

func TestRemoveLocalFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(fs, remoteURL(t), "/cache/maps/lakes.geojson")

	// Missing file is fine.
	require.NoError(t, r.RemoveLocalFile())

	require.NoError(t, afero.WriteFile(fs, r.LocalPath(), []byte("x"), 0o644))
	require.NoError(t, r.RemoveLocalFile())
	assert.False(t, r.HasLocalFile())
}

func TestDescription(t *testing.T) {
	fs := afero.NewMemMapFs()

	t.Run("missing file", func(t *testing.T) {
		r := New(fs, nil, "/cache/maps/none.geojson")
		assert.Equal(t, "No information available.", r.Description())
	})

	t.Run("geojson with attribution", func(t *testing.T) {
		path := "/cache/maps/europe/lakes.geojson"
		require.NoError(t, afero.WriteFile(fs, path,
			[]byte(`{"info":"openAIP;open flightmaps","type":"FeatureCollection"}`), 0o644))
		r := New(fs, nil, path)

		desc := r.Description()
		assert.Contains(t, desc, "Installed:")
		assert.Contains(t, desc, "File size:")
		assert.Contains(t, desc, "openAIP")
		assert.Contains(t, desc, "open flightmaps")
	})

	t.Run("text database first line", func(t *testing.T) {
		path := "/cache/maps/airfields.txt"
		require.NoError(t, afero.WriteFile(fs, path, []byte("Airfield database v12\ndata...\n"), 0o644))
		r := New(fs, nil, path)
		assert.Contains(t, r.Description(), "Airfield database v12")
	})
}
