package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// ArtifactFetcher materialize an artifact into the given file on cache miss
type ArtifactFetcher func(ctxt context.Context, targetPath string) error

// ArtifactCache file backed cache of fetched artifacts such as thumbnails.
//
// The cache owns its directory. Entries are weighted by file size against a
// total resident byte ceiling, and expire after a period without access.
// Eviction deletes the backing file.
type ArtifactCache interface {
	/*
		GetArtifact fetch the local file path of an artifact

		On miss, `fetch` is invoked to materialize the artifact. Concurrent
		requests for the same artifact share one fetch.

			@param ctxt context.Context - execution context
			@param artifactID string - unique artifact ID, used as the file name
			@param fetch ArtifactFetcher - miss handler
			@returns local file path of the artifact
	*/
	GetArtifact(ctxt context.Context, artifactID string, fetch ArtifactFetcher) (string, error)

	/*
		DropArtifact remove an artifact and its backing file

			@param ctxt context.Context - execution context
			@param artifactID string - the artifact ID
	*/
	DropArtifact(ctxt context.Context, artifactID string) error

	/*
		ResidentBytes total bytes currently held by the cache

			@returns resident byte count
	*/
	ResidentBytes() int64

	/*
		Stop stop any background operation

			@param ctxt context.Context - execution context
	*/
	Stop(ctxt context.Context) error
}

// artifactEntry one resident cache entry
type artifactEntry struct {
	size       int64
	lastAccess time.Time
}

// artifactFetch one in-flight artifact materialization
type artifactFetch struct {
	done chan struct{}
	err  error
}

// artifactCacheImpl implements ArtifactCache
type artifactCacheImpl struct {
	goutils.Component
	dir              string
	maxTotalBytes    int64
	entryTTL         time.Duration
	entries          map[string]artifactEntry
	inflight         map[string]*artifactFetch
	residentBytes    int64
	lock             sync.Mutex
	retentionTimer   goutils.IntervalTimer
	workerCtxtCancel context.CancelFunc
	wg               sync.WaitGroup
}

/*
NewArtifactCache define new artifact cache

Files already present in the cache directory are adopted as entries, so cached
artifacts survive a process restart.

	@param parentContext context.Context - parent execution context
	@param dir string - directory owned by the cache
	@param maxTotalBytes int64 - total resident byte ceiling
	@param entryTTL time.Duration - access based entry retention period
	@param retentionCheckInterval time.Duration - interval between retention sweeps
	@returns new ArtifactCache
*/
func NewArtifactCache(
	parentContext context.Context,
	dir string,
	maxTotalBytes int64,
	entryTTL time.Duration,
	retentionCheckInterval time.Duration,
) (ArtifactCache, error) {
	logTags := log.Fields{"module": "utils", "component": "artifact-cache", "dir": dir}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to prepare cache directory")
		return nil, err
	}

	workerCtxt, cancel := context.WithCancel(parentContext)
	instance := &artifactCacheImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		dir:              dir,
		maxTotalBytes:    maxTotalBytes,
		entryTTL:         entryTTL,
		entries:          make(map[string]artifactEntry),
		inflight:         make(map[string]*artifactFetch),
		workerCtxtCancel: cancel,
	}

	if err := instance.adoptExistingFiles(); err != nil {
		cancel()
		return nil, err
	}

	timer, err := goutils.GetIntervalTimerInstance(workerCtxt, &instance.wg, logTags)
	if err != nil {
		cancel()
		return nil, err
	}
	instance.retentionTimer = timer
	if err := timer.Start(retentionCheckInterval, func() error {
		instance.purgeExpiredEntries(time.Now().UTC())
		return nil
	}, false); err != nil {
		cancel()
		return nil, err
	}

	return instance, nil
}

// artifactPath file path backing one artifact
func (c *artifactCacheImpl) artifactPath(artifactID string) string {
	return filepath.Join(c.dir, artifactID)
}

func (c *artifactCacheImpl) GetArtifact(
	ctxt context.Context, artifactID string, fetch ArtifactFetcher,
) (string, error) {
	if strings.ContainsAny(artifactID, "/\\") || strings.HasPrefix(artifactID, ".") ||
		artifactID == "" {
		return "", fmt.Errorf("invalid artifact ID '%s'", artifactID)
	}
	logTags := c.GetLogTagsForContext(ctxt)

	for {
		c.lock.Lock()
		if entry, ok := c.entries[artifactID]; ok {
			entry.lastAccess = time.Now().UTC()
			c.entries[artifactID] = entry
			c.lock.Unlock()
			return c.artifactPath(artifactID), nil
		}
		if pending, ok := c.inflight[artifactID]; ok {
			c.lock.Unlock()
			select {
			case <-ctxt.Done():
				return "", ctxt.Err()
			case <-pending.done:
			}
			if pending.err != nil {
				return "", pending.err
			}
			// Fetched by the other caller. Loop back to pick up the entry.
			continue
		}
		pending := &artifactFetch{done: make(chan struct{})}
		c.inflight[artifactID] = pending
		c.lock.Unlock()

		path, err := c.materialize(ctxt, artifactID, fetch)

		c.lock.Lock()
		delete(c.inflight, artifactID)
		pending.err = err
		close(pending.done)
		c.lock.Unlock()

		if err != nil {
			log.WithError(err).WithFields(logTags).WithField("artifact", artifactID).
				Error("Artifact fetch failed")
			return "", err
		}
		return path, nil
	}
}

// materialize run the fetcher and record the resulting file as an entry
func (c *artifactCacheImpl) materialize(
	ctxt context.Context, artifactID string, fetch ArtifactFetcher,
) (string, error) {
	staging, err := os.CreateTemp(c.dir, ".fetch-*")
	if err != nil {
		return "", err
	}
	stagingName := staging.Name()
	_ = staging.Close()

	if err := fetch(ctxt, stagingName); err != nil {
		_ = os.Remove(stagingName)
		return "", err
	}
	info, err := os.Stat(stagingName)
	if err != nil {
		_ = os.Remove(stagingName)
		return "", err
	}
	target := c.artifactPath(artifactID)
	if err := os.Rename(stagingName, target); err != nil {
		_ = os.Remove(stagingName)
		return "", err
	}

	c.lock.Lock()
	c.entries[artifactID] = artifactEntry{size: info.Size(), lastAccess: time.Now().UTC()}
	c.residentBytes += info.Size()
	c.evictOverWeight(artifactID)
	c.lock.Unlock()
	return target, nil
}

func (c *artifactCacheImpl) DropArtifact(ctxt context.Context, artifactID string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.removeEntry(artifactID)
}

func (c *artifactCacheImpl) ResidentBytes() int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.residentBytes
}

func (c *artifactCacheImpl) Stop(ctxt context.Context) error {
	c.workerCtxtCancel()
	return goutils.TimeBoundedWaitGroupWait(ctxt, &c.wg, time.Second*5)
}

// adoptExistingFiles register files already in the cache directory as entries
func (c *artifactCacheImpl) adoptExistingFiles() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			// Leftover staging file from an interrupted fetch
			_ = os.Remove(filepath.Join(c.dir, entry.Name()))
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		c.entries[entry.Name()] = artifactEntry{size: info.Size(), lastAccess: info.ModTime()}
		c.residentBytes += info.Size()
	}
	c.evictOverWeight("")
	return nil
}

// removeEntry drop one entry and delete its file. Caller must hold the lock.
func (c *artifactCacheImpl) removeEntry(artifactID string) error {
	entry, ok := c.entries[artifactID]
	if !ok {
		return nil
	}
	delete(c.entries, artifactID)
	c.residentBytes -= entry.size
	if err := os.Remove(c.artifactPath(artifactID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// evictOverWeight evict least recently used entries until the resident bytes
// fit the ceiling. The protected ID is never evicted. Caller must hold the lock.
func (c *artifactCacheImpl) evictOverWeight(protectedID string) {
	for c.residentBytes > c.maxTotalBytes {
		var oldest string
		var oldestAt time.Time
		found := false
		for artifactID, entry := range c.entries {
			if artifactID == protectedID {
				continue
			}
			if !found || entry.lastAccess.Before(oldestAt) {
				oldest = artifactID
				oldestAt = entry.lastAccess
				found = true
			}
		}
		if !found {
			return
		}
		if err := c.removeEntry(oldest); err != nil {
			log.WithError(err).WithFields(c.LogTags).WithField("artifact", oldest).
				Warn("Unable to evict artifact")
			return
		}
		log.WithFields(c.LogTags).WithField("artifact", oldest).Debug("Evicted artifact")
	}
}

// purgeExpiredEntries drop entries unused for longer than the retention period
func (c *artifactCacheImpl) purgeExpiredEntries(currentTime time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	cutoff := currentTime.Add(-c.entryTTL)
	for artifactID, entry := range c.entries {
		if entry.lastAccess.Before(cutoff) {
			if err := c.removeEntry(artifactID); err != nil {
				log.WithError(err).WithFields(c.LogTags).WithField("artifact", artifactID).
					Warn("Unable to purge artifact")
			}
		}
	}
}
