package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	pkgerrors "github.com/mhellwig/mapdeck/pkg/errors"
	"github.com/mhellwig/mapdeck/pkg/fsutil"
)

// TempPattern is the name pattern for in-progress download files. The
// cache scanner skips files matching this suffix so a running transfer
// is never mistaken for an unattached file.
const TempPattern = ".mapdeck-*.tmp"

// tempSuffix is the fixed suffix shared by all temp files.
const tempSuffix = ".tmp"

// ManagerImpl is a simple HTTP-based download manager. Responses are
// streamed to a sibling temp file and renamed into place only on full
// success, so a failed or cancelled fetch never corrupts the
// destination.
type ManagerImpl struct {
	client    *http.Client
	fs        afero.Fs
	userAgent string
}

// NewManager creates a new download manager writing through fs.
func NewManager(fs afero.Fs, timeout time.Duration, userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = "mapdeck/1.0"
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		fs:        fs,
		userAgent: userAgent,
	}
}

// Fetch downloads a single item into item.Dest.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item) error {
	if item.URL == nil {
		return fmt.Errorf("item %q: %w", item.ID, pkgerrors.ErrNoRemote)
	}
	if item.Dest == "" || !filepath.IsAbs(item.Dest) {
		return fmt.Errorf("destination must be absolute: %q: %w", item.Dest, pkgerrors.ErrInvalidPath)
	}
	if err := fsutil.EnsureFileDir(m.fs, item.Dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrIO, err.Error())
	}

	resp, err := m.doRequest(ctx, item)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	tmpPath, err := m.writeBodyToTemp(ctx, resp.Body, item.Dest)
	if err != nil {
		return err
	}
	if err := fsutil.Move(m.fs, tmpPath, item.Dest); err != nil {
		_ = m.fs.Remove(tmpPath)
		return pkgerrors.Wrap(pkgerrors.ErrIO, err.Error())
	}
	return m.fs.Chmod(item.Dest, fsutil.FileModeDefault)
}

func (m *ManagerImpl) doRequest(ctx context.Context, item Item) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("fetch %s: %v: %w", item.URL, err, pkgerrors.ErrNetwork)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status code %d: %w", item.URL, resp.StatusCode, pkgerrors.ErrNetwork)
	}
	return resp, nil
}

func (m *ManagerImpl) writeBodyToTemp(ctx context.Context, body io.Reader, dest string) (string, error) {
	tmp, err := afero.TempFile(m.fs, filepath.Dir(dest), filepath.Base(dest)+TempPattern)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrIO, err.Error())
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = m.fs.Remove(tmpPath)
		if ctx.Err() != nil {
			return "", context.Canceled
		}
		return "", fmt.Errorf("reading response body: %v: %w", err, pkgerrors.ErrNetwork)
	}
	if err := tmp.Close(); err != nil {
		_ = m.fs.Remove(tmpPath)
		return "", pkgerrors.Wrap(pkgerrors.ErrIO, err.Error())
	}
	return tmpPath, nil
}

// IsTempFile reports whether name looks like an in-progress download.
func IsTempFile(name string) bool {
	return filepath.Ext(name) == tempSuffix
}
