// Package manifest parses the remote map catalogue: a JSON document
// listing every file the server offers, together with its size and
// modification date. The document is fully re-parsed on every fetch
// and never persisted as a struct.
package manifest

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mhellwig/mapdeck/pkg/errors"
)

// timeLayout is the date format used by the manifest ("yyyyMMdd").
const timeLayout = "20060102"

// Entry is one file offered by the remote manifest.
type Entry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Time string `json:"time"`
}

// Document is the parsed manifest: a base URL plus the ordered list of
// offered entries. Unknown fields are ignored.
type Document struct {
	BaseURL string  `json:"url"`
	Maps    []Entry `json:"maps"`
}

// Parse decodes and validates a manifest document. Any defect that
// would make reconciliation unsafe is reported as ErrParse.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrParse, err.Error())
	}
	if doc.BaseURL == "" {
		return nil, errors.Wrap(errors.ErrParse, "missing base URL")
	}
	if _, err := url.Parse(doc.BaseURL); err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "invalid base URL %q", doc.BaseURL)
	}
	for i, entry := range doc.Maps {
		if entry.Path == "" {
			return nil, errors.Wrapf(errors.ErrParse, "entry %d: missing path", i)
		}
		if strings.HasPrefix(entry.Path, "/") || strings.Contains(entry.Path, "..") {
			return nil, errors.Wrapf(errors.ErrParse, "entry %d: unsafe path %q", i, entry.Path)
		}
	}
	return &doc, nil
}

// Name returns the stable resource name of the entry: the file stem of
// the last path segment ("europe/lakes.geojson" -> "lakes").
func (e Entry) Name() string {
	base := path.Base(e.Path)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Category returns the grouping label of the entry: its parent path
// segment, or "" for top-level entries.
func (e Entry) Category() string {
	dir := path.Dir(e.Path)
	if dir == "." || dir == "/" {
		return ""
	}
	return path.Base(dir)
}

// Modified returns the entry's modification date. Entries carrying an
// unparseable date report the zero time rather than failing the whole
// document.
func (e Entry) Modified() time.Time {
	t, err := time.Parse(timeLayout, e.Time)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RemoteURL resolves the entry's download URL against the document's
// base URL.
func (d *Document) RemoteURL(e Entry) (*url.URL, error) {
	joined, err := url.JoinPath(d.BaseURL, e.Path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "cannot join %q and %q", d.BaseURL, e.Path)
	}
	parsed, err := url.Parse(joined)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "invalid entry URL %q", joined)
	}
	return parsed, nil
}
