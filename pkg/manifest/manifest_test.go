package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhellwig/mapdeck/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, doc *Document)
	}{
		{
			name: "valid document",
			data: `{"url":"https://example.org/storage","maps":[
				{"path":"europe/lakes.geojson","size":1000,"time":"20230101"},
				{"path":"europe/terrain.mbtiles","size":52000000,"time":"20230215"}
			]}`,
			check: func(t *testing.T, doc *Document) {
				require.Len(t, doc.Maps, 2)
				assert.Equal(t, "https://example.org/storage", doc.BaseURL)
				assert.Equal(t, int64(1000), doc.Maps[0].Size)
			},
		},
		{
			name: "unknown fields ignored",
			data: `{"url":"https://example.org","format":7,"maps":[{"path":"a.txt","size":1,"time":"20230101","extra":true}]}`,
			check: func(t *testing.T, doc *Document) {
				require.Len(t, doc.Maps, 1)
			},
		},
		{
			name:    "not json",
			data:    `{"url": `,
			wantErr: true,
		},
		{
			name:    "missing base URL",
			data:    `{"maps":[{"path":"a.txt","size":1,"time":"20230101"}]}`,
			wantErr: true,
		},
		{
			name:    "entry without path",
			data:    `{"url":"https://example.org","maps":[{"size":1,"time":"20230101"}]}`,
			wantErr: true,
		},
		{
			name:    "path traversal rejected",
			data:    `{"url":"https://example.org","maps":[{"path":"../etc/passwd","size":1,"time":"20230101"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrParse)
				return
			}
			require.NoError(t, err)
			tt.check(t, doc)
		})
	}
}

func TestEntryNameAndCategory(t *testing.T) {
	tests := []struct {
		path     string
		name     string
		category string
	}{
		{"europe/lakes.geojson", "lakes", "europe"},
		{"europe/de/terrain.mbtiles", "terrain", "de"},
		{"readme.txt", "readme", ""},
		{"europe/noext", "noext", "europe"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e := Entry{Path: tt.path}
			assert.Equal(t, tt.name, e.Name())
			assert.Equal(t, tt.category, e.Category())
		})
	}
}

func TestEntryModified(t *testing.T) {
	e := Entry{Time: "20230101"}
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), e.Modified())

	assert.True(t, Entry{Time: "not-a-date"}.Modified().IsZero())
	assert.True(t, Entry{}.Modified().IsZero())
}

func TestRemoteURL(t *testing.T) {
	doc := &Document{BaseURL: "https://example.org/storage"}
	u, err := doc.RemoteURL(Entry{Path: "europe/lakes.geojson"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/storage/europe/lakes.geojson", u.String())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassVector, Classify("europe/lakes.geojson"))
	assert.Equal(t, ClassTiles, Classify("europe/terrain.mbtiles"))
	assert.Equal(t, ClassDatabase, Classify("airfields.txt"))
	assert.Equal(t, ClassUnknown, Classify("weird.bin"))
}
