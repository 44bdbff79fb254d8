package datamanager

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	want := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)

	require.NoError(t, saveState(fs, "/state/state.yml", want))
	got, err := loadState(fs, "/state/state.yml")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestLoadStateMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	got, err := loadState(fs, "/state/state.yml")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestLoadStateMalformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/state/state.yml", []byte(":\t:"), 0o644))
	_, err := loadState(fs, "/state/state.yml")
	assert.Error(t, err)
}
