package manifest

import "strings"

// Class partitions map files by purpose, derived from the file suffix.
// The three recognized classes are mutually exclusive.
type Class int

const (
	// ClassUnknown marks files of unrecognized type.
	ClassUnknown Class = iota
	// ClassVector marks vector map data (.geojson).
	ClassVector
	// ClassTiles marks base-map tile databases (.mbtiles).
	ClassTiles
	// ClassDatabase marks auxiliary text databases (.txt).
	ClassDatabase
)

// Classify returns the class of a manifest path or local file name.
func Classify(p string) Class {
	switch {
	case strings.HasSuffix(p, ".geojson"):
		return ClassVector
	case strings.HasSuffix(p, ".mbtiles"):
		return ClassTiles
	case strings.HasSuffix(p, ".txt"):
		return ClassDatabase
	default:
		return ClassUnknown
	}
}

func (c Class) String() string {
	switch c {
	case ClassVector:
		return "vector"
	case ClassTiles:
		return "tiles"
	case ClassDatabase:
		return "database"
	default:
		return "unknown"
	}
}
