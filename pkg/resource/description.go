package resource

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mhellwig/mapdeck/pkg/manifest"
)

// maxAttributionBytes bounds how much of a map file is read when
// extracting attribution text.
const maxAttributionBytes = 16 << 20

// Description returns human-readable information about the installed
// file: modification time, size, and source attribution where the file
// format carries any.
func (r *Resource) Description() string {
	fi, err := r.fs.Stat(r.localPath)
	if err != nil {
		return "No information available."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Installed: %s\n", fi.ModTime().UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "File size: %s", humanize.Bytes(uint64(fi.Size())))

	switch manifest.Classify(r.localPath) {
	case manifest.ClassVector:
		if sources := r.vectorAttribution(); len(sources) > 0 {
			b.WriteString("\nThe map data was compiled from the following sources:")
			for _, s := range sources {
				fmt.Fprintf(&b, "\n  - %s", s)
			}
		}
	case manifest.ClassDatabase:
		if line := r.firstLine(); line != "" {
			fmt.Fprintf(&b, "\n%s", line)
		}
	}

	return b.String()
}

// vectorAttribution extracts the semicolon-separated "info" field from
// a GeoJSON file.
func (r *Resource) vectorAttribution() []string {
	f, err := r.fs.Open(r.localPath)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var doc struct {
		Info string `json:"info"`
	}
	if err := json.NewDecoder(io.LimitReader(f, maxAttributionBytes)).Decode(&doc); err != nil || doc.Info == "" {
		return nil
	}

	var sources []string
	for _, s := range strings.Split(doc.Info, ";") {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	return sources
}

// firstLine returns the first line of a text database file.
func (r *Resource) firstLine() string {
	f, err := r.fs.Open(r.localPath)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
