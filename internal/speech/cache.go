package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// DefaultMemoryEntries bounds the in-memory tier when no option sets it.
const DefaultMemoryEntries = 256

// CacheOption configures an AudioCache.
type CacheOption func(*AudioCache)

// WithMemoryEntries sets how many clips stay in memory. The least recently
// played clip is evicted first; the disk copy survives.
func WithMemoryEntries(n int) CacheOption {
	return func(c *AudioCache) {
		if n > 0 {
			c.entries = n
		}
	}
}

// AudioCache remembers synthesized clips so repeated fragments are not sent
// to the backend twice. Clips are keyed by backend, voice fingerprint and
// text. A bounded LRU sits in front of an optional directory of WAV files,
// which is always read when set and written only when persist is true.
type AudioCache struct {
	backend string
	dir     string
	persist bool
	entries int
	log     *logger.Logger

	mem    *lru.Cache[string, []byte]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewAudioCache creates the cache of one synthesis backend. An empty dir
// keeps clips in memory only.
func NewAudioCache(backend, dir string, persist bool, log *logger.Logger, opts ...CacheOption) *AudioCache {
	c := &AudioCache{
		backend: backend,
		dir:     dir,
		persist: persist,
		entries: DefaultMemoryEntries,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	// New only fails for a non-positive size, which the option rules out.
	c.mem, _ = lru.New[string, []byte](c.entries)

	if c.dir != "" && c.persist {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			log.Error("cache: cannot create %s, clips stay in memory: %v", c.dir, err)
			c.persist = false
		}
	}
	return c
}

// Get returns the clip for text spoken with voice. A clip found on disk is
// promoted into memory.
func (c *AudioCache) Get(text string, voice domain.VoiceConfig) ([]byte, bool) {
	key := c.key(text, voice)
	if clip, ok := c.mem.Get(key); ok {
		c.hits.Add(1)
		return clip, true
	}

	clip, err := c.load(key)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Warn("cache: reading %s: %v", c.file(key), err)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.mem.Add(key, clip)
	c.hits.Add(1)
	c.log.Debug("cache: %s loaded from disk (%d bytes)", truncate(text, 40), len(clip))
	return clip, true
}

// Put stores the clip for text spoken with voice.
func (c *AudioCache) Put(text string, voice domain.VoiceConfig, clip []byte) {
	key := c.key(text, voice)
	if evicted := c.mem.Add(key, clip); evicted {
		c.log.Debug("cache: memory full, evicted the oldest clip")
	}
	if c.dir == "" || !c.persist {
		return
	}
	if err := c.store(key, clip); err != nil {
		c.log.Error("cache: writing %s: %v", c.file(key), err)
	}
}

// Has reports whether a clip exists without touching its recency.
func (c *AudioCache) Has(text string, voice domain.VoiceConfig) bool {
	key := c.key(text, voice)
	if c.mem.Contains(key) {
		return true
	}
	if c.dir == "" {
		return false
	}
	_, err := os.Stat(c.file(key))
	return err == nil
}

// Stats returns the hit and miss counts of Get.
func (c *AudioCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *AudioCache) key(text string, voice domain.VoiceConfig) string {
	sum := sha256.Sum256([]byte(c.backend + "\x00" + voice.Fingerprint() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// file shards clips by the first byte of their key.
func (c *AudioCache) file(key string) string {
	return filepath.Join(c.dir, key[:2], key+".wav")
}

func (c *AudioCache) load(key string) ([]byte, error) {
	if c.dir == "" {
		return nil, fs.ErrNotExist
	}
	return os.ReadFile(c.file(key))
}

// store writes through a temp file so a concurrent Get never sees half a
// clip.
func (c *AudioCache) store(key string, clip []byte) error {
	path := c.file(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(clip); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
