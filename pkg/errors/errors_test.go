package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	base := errors.New("boom")

	got := Wrap(base, "reading manifest")
	require.Error(t, got)
	assert.Equal(t, "reading manifest: boom", got.Error())
	assert.ErrorIs(t, got, base)

	assert.NoError(t, Wrap(nil, "ignored"))
}

func TestWrapf(t *testing.T) {
	base := errors.New("boom")

	got := Wrapf(base, "fetching %s (attempt %d)", "maps.json", 2)
	require.Error(t, got)
	assert.Equal(t, "fetching maps.json (attempt 2): boom", got.Error())
	assert.ErrorIs(t, got, base)

	assert.NoError(t, Wrapf(nil, "ignored %s", "too"))
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrNetwork, ErrParse)
	assert.NotErrorIs(t, ErrParse, ErrIO)
	assert.NotErrorIs(t, Wrap(ErrNetwork, "fetch"), ErrIO)
}
