package bridge

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// mediaCacheTTL bounds how long a downloaded/transcoded attachment's cache
// entry survives. The remote adapter's own file ids are themselves
// short-lived, so there is little point caching past a day.
const mediaCacheTTL = 24 * time.Hour

// MediaCache deduplicates attachment downloads: once a remote file id has
// been fetched (and, for stickers, transcoded) for a given endpoint, later
// references to the same id are served from disk instead of re-fetching
// from the remote adapter. Backed directly by badger: a dedup cache only
// ever needs get and put-with-TTL.
type MediaCache struct {
	db *badger.DB
}

// OpenMediaCache opens (creating if needed) the dedup cache under dataDir.
func OpenMediaCache(dataDir string) (*MediaCache, error) {
	opts := badger.DefaultOptions(filepath.Join(dataDir, "mediacache"))
	opts.Compression = options.ZSTD
	opts.ValueLogFileSize = 256 * 1024 * 1024

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open media cache: %w", err)
	}
	return &MediaCache{db: db}, nil
}

func (c *MediaCache) Close() error { return c.db.Close() }

func mediaCacheKey(endpoint, fileID string) string {
	return "media:" + endpoint + ":" + fileID
}

// Get returns a previously cached attachment's bytes, if present.
func (c *MediaCache) Get(endpoint, fileID string) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(mediaCacheKey(endpoint, fileID)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put caches an attachment's bytes against endpoint+fileID.
func (c *MediaCache) Put(endpoint, fileID string, data []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(mediaCacheKey(endpoint, fileID)), data).WithTTL(mediaCacheTTL)
		return txn.SetEntry(e)
	})
}
