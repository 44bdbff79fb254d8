//go:generate mockgen -destination=mocks/download.go . Manager
package download

import (
	"context"
	"net/url"
)

// Manager defines the interface for fetching remote files into the
// local cache. Implementations must follow the write-to-temp,
// rename-on-success discipline: the destination is never left with
// partial content, and an aborted fetch leaves it byte-for-byte
// untouched.
type Manager interface {
	// Fetch downloads a single item to item.Dest. It returns
	// context.Canceled when the fetch was aborted via ctx.
	Fetch(ctx context.Context, item Item) error
}

// Item represents one remote file to download.
type Item struct {
	ID   string   // stable identifier (resource name), used in errors and logs
	URL  *url.URL // source URL
	Dest string   // absolute destination path inside the cache
}
