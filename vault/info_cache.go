package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/uuid"
)

// VideoInfoCache read cache holding the listing projection of video manifests
type VideoInfoCache interface {
	/*
		CacheVideoInfo add a video info entry to the cache

			@param ctxt context.Context - execution context
			@param info common.VideoInfo - the entry to cache
			@param ttl time.Duration - entry retention period
	*/
	CacheVideoInfo(ctxt context.Context, info common.VideoInfo, ttl time.Duration) error

	/*
		GetVideoInfo fetch a cached video info entry

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@returns the cached entry
	*/
	GetVideoInfo(ctxt context.Context, videoID uuid.UUID) (common.VideoInfo, error)

	/*
		DeleteVideoInfo remove one entry from the cache

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
	*/
	DeleteVideoInfo(ctxt context.Context, videoID uuid.UUID) error

	/*
		PurgeAll drop every cached entry

			@param ctxt context.Context - execution context
	*/
	PurgeAll(ctxt context.Context) error

	/*
		Stop stop any background operation

			@param ctxt context.Context - execution context
	*/
	Stop(ctxt context.Context) error
}

// ===============================================================================
// In-process VideoInfoCache

// localInfoCacheEntry one entry within inProcessVideoInfoCacheImpl
type localInfoCacheEntry struct {
	info common.VideoInfo
	// expireAt deadline after which the entry is purged. Refreshed on read.
	expireAt time.Time
	ttl      time.Duration
}

// inProcessVideoInfoCacheImpl implements VideoInfoCache in process memory
type inProcessVideoInfoCacheImpl struct {
	goutils.Component
	cache            map[uuid.UUID]localInfoCacheEntry
	maxEntries       int
	lock             sync.RWMutex
	retentionTimer   goutils.IntervalTimer
	workerCtxtCancel context.CancelFunc
	wg               sync.WaitGroup
}

/*
NewLocalVideoInfoCache define new in-process video info cache

	@param parentContext context.Context - parent execution context
	@param maxEntries int - max cached entries before LRU eviction
	@param retentionCheckInterval time.Duration - interval between retention sweeps
	@returns new VideoInfoCache
*/
func NewLocalVideoInfoCache(
	parentContext context.Context, maxEntries int, retentionCheckInterval time.Duration,
) (VideoInfoCache, error) {
	logTags := log.Fields{"module": "vault", "component": "video-info-cache", "instance": "local"}

	workerCtxt, cancel := context.WithCancel(parentContext)
	instance := &inProcessVideoInfoCacheImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		cache:            make(map[uuid.UUID]localInfoCacheEntry),
		maxEntries:       maxEntries,
		workerCtxtCancel: cancel,
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

func (c *inProcessVideoInfoCacheImpl) CacheVideoInfo(
	ctxt context.Context, info common.VideoInfo, ttl time.Duration,
) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache[info.ID] = localInfoCacheEntry{
		info: info, expireAt: time.Now().UTC().Add(ttl), ttl: ttl,
	}
	c.evictOverflow()
	return nil
}

func (c *inProcessVideoInfoCacheImpl) GetVideoInfo(
	ctxt context.Context, videoID uuid.UUID,
) (common.VideoInfo, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	entry, ok := c.cache[videoID]
	if !ok {
		return common.VideoInfo{}, fmt.Errorf("video '%s' is not cached", videoID)
	}
	// Reads refresh the retention deadline
	entry.expireAt = time.Now().UTC().Add(entry.ttl)
	c.cache[videoID] = entry
	return entry.info, nil
}

func (c *inProcessVideoInfoCacheImpl) DeleteVideoInfo(
	ctxt context.Context, videoID uuid.UUID,
) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.cache, videoID)
	return nil
}

func (c *inProcessVideoInfoCacheImpl) PurgeAll(ctxt context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache = make(map[uuid.UUID]localInfoCacheEntry)
	return nil
}

func (c *inProcessVideoInfoCacheImpl) Stop(ctxt context.Context) error {
	c.workerCtxtCancel()
	return goutils.TimeBoundedWaitGroupWait(ctxt, &c.wg, time.Second*5)
}

// evictOverflow drop least recently touched entries until under the size cap.
// Caller must hold the write lock.
func (c *inProcessVideoInfoCacheImpl) evictOverflow() {
	for len(c.cache) > c.maxEntries {
		var oldest uuid.UUID
		var oldestAt time.Time
		first := true
		for videoID, entry := range c.cache {
			if first || entry.expireAt.Before(oldestAt) {
				oldest = videoID
				oldestAt = entry.expireAt
				first = false
			}
		}
		delete(c.cache, oldest)
	}
}

// purgeExpiredEntries drop entries whose retention deadline has passed
func (c *inProcessVideoInfoCacheImpl) purgeExpiredEntries(currentTime time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	purged := 0
	for videoID, entry := range c.cache {
		if entry.expireAt.Before(currentTime) {
			delete(c.cache, videoID)
			purged++
		}
	}
	if purged > 0 {
		log.WithFields(c.LogTags).WithField("purged", purged).Debug("Purged expired video info entries")
	}
}

// ===============================================================================
// Memcached VideoInfoCache

// memcachedVideoInfoCacheImpl implements VideoInfoCache against memcached
type memcachedVideoInfoCacheImpl struct {
	goutils.Component
	client *memcache.Client
}

/*
NewMemcachedVideoInfoCache define new memcached backed video info cache

	@param servers []string - list of memcached servers to connect to
	@returns new VideoInfoCache
*/
func NewMemcachedVideoInfoCache(servers []string) (VideoInfoCache, error) {
	logTags := log.Fields{
		"module": "vault", "component": "video-info-cache", "instance": "memcached",
	}

	client := memcache.New(servers...)
	if err := client.Ping(); err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Unable to connect with %v", servers)
		return nil, err
	}

	return &memcachedVideoInfoCacheImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		client: client,
	}, nil
}

// cacheKey memcached key for one video info entry
func (c *memcachedVideoInfoCacheImpl) cacheKey(videoID uuid.UUID) string {
	return fmt.Sprintf("clipsync/video-info/%s", videoID)
}

func (c *memcachedVideoInfoCacheImpl) CacheVideoInfo(
	ctxt context.Context, info common.VideoInfo, ttl time.Duration,
) error {
	logTags := c.GetLogTagsForContext(ctxt)
	encoded, err := json.Marshal(&info)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("video-id", info.ID).
			Error("Unable to encode video info for caching")
		return err
	}
	return c.client.Set(&memcache.Item{
		Key: c.cacheKey(info.ID), Value: encoded, Expiration: int32(ttl.Seconds()),
	})
}

func (c *memcachedVideoInfoCacheImpl) GetVideoInfo(
	ctxt context.Context, videoID uuid.UUID,
) (common.VideoInfo, error) {
	logTags := c.GetLogTagsForContext(ctxt)
	item, err := c.client.Get(c.cacheKey(videoID))
	if err != nil {
		return common.VideoInfo{}, err
	}
	var info common.VideoInfo
	if err := json.Unmarshal(item.Value, &info); err != nil {
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
			Error("Cached video info entry corrupted")
		return common.VideoInfo{}, err
	}
	return info, nil
}

func (c *memcachedVideoInfoCacheImpl) DeleteVideoInfo(
	ctxt context.Context, videoID uuid.UUID,
) error {
	err := c.client.Delete(c.cacheKey(videoID))
	if err == memcache.ErrCacheMiss {
		return nil
	}
	return err
}

func (c *memcachedVideoInfoCacheImpl) PurgeAll(ctxt context.Context) error {
	return c.client.FlushAll()
}

func (c *memcachedVideoInfoCacheImpl) Stop(ctxt context.Context) error {
	return nil
}
