package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aig787/agpm/pkg/logger"
)

var blobLog = logger.New("cache:blob")

const manifestFilename = "manifest.json"

// BlobEntry records one cached remote file, keyed by "source/path@sha" so a
// re-fetch of the same commit never re-downloads (spec.md §4.14).
type BlobEntry struct {
	Source    string `json:"source"`
	Path      string `json:"path"`
	SHA       string `json:"sha"`
	CachePath string `json:"cache_path"`
	Hash      string `json:"hash"`
}

// BlobCache is a content-addressed store for resource file bytes fetched
// outside of a worktree checkout (e.g. via `git show`), companion to Pool's
// bare-clone cache.
type BlobCache struct {
	baseDir string

	mu      sync.Mutex
	entries map[string]BlobEntry
}

// NewBlobCache creates a blob cache rooted at baseDir/blobs.
func NewBlobCache(baseDir string) *BlobCache {
	return &BlobCache{baseDir: filepath.Join(baseDir, "blobs"), entries: map[string]BlobEntry{}}
}

func key(source, path, sha string) string {
	return source + "/" + path + "@" + sha
}

// Load reads the manifest from disk, if present.
func (c *BlobCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(filepath.Join(c.baseDir, manifestFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &c.entries)
}

// Save writes the manifest to disk with keys in sorted order for
// deterministic diffs.
func (c *BlobCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.baseDir, 0o755); err != nil {
		return err
	}
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]BlobEntry, len(keys))
	for _, k := range keys {
		ordered[k] = c.entries[k]
	}
	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.baseDir, manifestFilename), data, 0o644)
}

// Get returns cached content for (source, path, sha) if present on disk.
func (c *BlobCache) Get(source, path, sha string) ([]byte, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key(source, path, sha)]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(entry.CachePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores content for (source, path, sha), content-addressed by its
// SHA-256 hash so identical blobs from different sources dedupe on disk.
func (c *BlobCache) Put(source, path, sha string, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	hash := "sha256:" + hex.EncodeToString(sum[:])

	cachePath := filepath.Join(c.baseDir, "objects", hex.EncodeToString(sum[:2]), hex.EncodeToString(sum[:]))
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return "", err
	}
	if _, err := os.Stat(cachePath); os.IsNotExist(err) {
		if err := os.WriteFile(cachePath, content, 0o644); err != nil {
			return "", err
		}
	}

	c.mu.Lock()
	c.entries[key(source, path, sha)] = BlobEntry{Source: source, Path: path, SHA: sha, CachePath: cachePath, Hash: hash}
	c.mu.Unlock()
	blobLog.Printf("cached %s/%s@%s as %s", source, path, sha, hash)
	return hash, nil
}
