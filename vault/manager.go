package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// manifestFileSuffix file extension of manifests within the vault directory
const manifestFileSuffix = ".json"

// ExternalChangeHandler callback invoked when a manifest within the vault
// changes outside this process
type ExternalChangeHandler func(ctxt context.Context, videoID uuid.UUID)

// ManifestStore local store holding one manifest file per video
type ManifestStore interface {
	/*
		Ready check whether the store is ready

			@param ctxt context.Context - execution context
	*/
	Ready(ctxt context.Context) error

	/*
		ListVideos list all videos in the store, most recently modified first

			@param ctxt context.Context - execution context
			@returns the video info listing
	*/
	ListVideos(ctxt context.Context) ([]common.VideoInfo, error)

	/*
		GetVideo fetch one complete video manifest

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@returns the video
	*/
	GetVideo(ctxt context.Context, videoID uuid.UUID) (common.Video, error)

	/*
		GetVideoInfo fetch the listing projection of one video

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@returns the video info
	*/
	GetVideoInfo(ctxt context.Context, videoID uuid.UUID) (common.VideoInfo, error)

	/*
		SaveVideo persist a video manifest

			@param ctxt context.Context - execution context
			@param video common.Video - the video to persist
	*/
	SaveVideo(ctxt context.Context, video common.Video) error

	/*
		DeleteVideo remove a video manifest from the store

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
	*/
	DeleteVideo(ctxt context.Context, videoID uuid.UUID) error

	/*
		InvalidateVideoInfo drop any cached projection of one video

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
	*/
	InvalidateVideoInfo(ctxt context.Context, videoID uuid.UUID) error

	/*
		ManifestPath the path of the manifest file for one video

			@param videoID uuid.UUID - the video ID
			@returns the manifest file path
	*/
	ManifestPath(videoID uuid.UUID) string

	/*
		LastModified the manifest file modification timestamp of one video

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@returns the modification timestamp
	*/
	LastModified(ctxt context.Context, videoID uuid.UUID) (time.Time, error)

	/*
		Stop stop any background operation

			@param ctxt context.Context - execution context
	*/
	Stop(ctxt context.Context) error
}

// manifestStoreImpl implements ManifestStore
type manifestStoreImpl struct {
	goutils.Component
	dir              string
	infoCache        VideoInfoCache
	infoCacheTTL     time.Duration
	validate         *validator.Validate
	watcher          *fsnotify.Watcher
	onExternalChange ExternalChangeHandler
	workerCtxtCancel context.CancelFunc
	wg               sync.WaitGroup
}

/*
NewManifestStore define new local manifest store

	@param parentContext context.Context - parent execution context
	@param dir string - vault directory holding the manifest files
	@param infoCache VideoInfoCache - read cache for the listing projection
	@param infoCacheTTL time.Duration - retention period for cached projections
	@param watchForChanges bool - watch the vault directory for changes made by
	    other processes
	@param onExternalChange ExternalChangeHandler - callback on external changes
	@returns new ManifestStore
*/
func NewManifestStore(
	parentContext context.Context,
	dir string,
	infoCache VideoInfoCache,
	infoCacheTTL time.Duration,
	watchForChanges bool,
	onExternalChange ExternalChangeHandler,
) (ManifestStore, error) {
	logTags := log.Fields{"module": "vault", "component": "manifest-store", "dir": dir}

	info, err := os.Stat(dir)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to stat vault directory")
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path '%s' is not a directory", dir)
	}

	workerCtxt, cancel := context.WithCancel(parentContext)
	instance := &manifestStoreImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		dir:              dir,
		infoCache:        infoCache,
		infoCacheTTL:     infoCacheTTL,
		validate:         validator.New(),
		onExternalChange: onExternalChange,
		workerCtxtCancel: cancel,
	}

	if watchForChanges {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			cancel()
			log.WithError(err).WithFields(logTags).Error("Unable to define vault directory watcher")
			return nil, err
		}
		if err := watcher.Add(dir); err != nil {
			cancel()
			_ = watcher.Close()
			log.WithError(err).WithFields(logTags).Error("Unable to watch vault directory")
			return nil, err
		}
		instance.watcher = watcher
		instance.wg.Add(1)
		go instance.watchLoop(workerCtxt)
	}

	return instance, nil
}

func (s *manifestStoreImpl) Ready(ctxt context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path '%s' is not a directory", s.dir)
	}
	return nil
}

func (s *manifestStoreImpl) ManifestPath(videoID uuid.UUID) string {
	return filepath.Join(s.dir, videoID.String()+manifestFileSuffix)
}

func (s *manifestStoreImpl) ListVideos(ctxt context.Context) ([]common.VideoInfo, error) {
	logTags := s.GetLogTagsForContext(ctxt)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to read vault directory")
		return nil, err
	}

	type listEntry struct {
		videoID  uuid.UUID
		modified time.Time
	}
	var listing []listEntry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		videoID, ok := videoIDFromFileName(entry.Name())
		if !ok {
			continue
		}
		fileInfo, err := entry.Info()
		if err != nil {
			continue
		}
		listing = append(listing, listEntry{videoID: videoID, modified: fileInfo.ModTime()})
	}
	sort.Slice(listing, func(i, j int) bool {
		return listing[i].modified.After(listing[j].modified)
	})

	result := make([]common.VideoInfo, 0, len(listing))
	for _, entry := range listing {
		info, err := s.GetVideoInfo(ctxt, entry.videoID)
		if err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				WithField("video-id", entry.videoID).
				Warn("Skipping unreadable manifest in listing")
			continue
		}
		result = append(result, info)
	}
	return result, nil
}

func (s *manifestStoreImpl) GetVideo(ctxt context.Context, videoID uuid.UUID) (common.Video, error) {
	logTags := s.GetLogTagsForContext(ctxt)

	content, err := os.ReadFile(s.ManifestPath(videoID))
	if err != nil {
		return common.Video{}, err
	}
	video, err := common.DecodeManifest(content)
	if err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			WithField("video-id", videoID).
			Error("Manifest decode failure")
		return common.Video{}, err
	}
	return video, nil
}

func (s *manifestStoreImpl) GetVideoInfo(
	ctxt context.Context, videoID uuid.UUID,
) (common.VideoInfo, error) {
	// Read-through the projection cache
	if cached, err := s.infoCache.GetVideoInfo(ctxt, videoID); err == nil {
		return cached, nil
	}

	content, err := os.ReadFile(s.ManifestPath(videoID))
	if err != nil {
		return common.VideoInfo{}, err
	}
	info, err := common.DecodeManifestInfo(content)
	if err != nil {
		return common.VideoInfo{}, err
	}
	if err := s.infoCache.CacheVideoInfo(ctxt, info, s.infoCacheTTL); err != nil {
		log.
			WithError(err).
			WithFields(s.GetLogTagsForContext(ctxt)).
			WithField("video-id", videoID).
			Warn("Unable to cache video info")
	}
	return info, nil
}

func (s *manifestStoreImpl) SaveVideo(ctxt context.Context, video common.Video) error {
	logTags := s.GetLogTagsForContext(ctxt)

	if video.ID == uuid.Nil {
		return fmt.Errorf("video is missing an ID")
	}
	if err := s.validate.Struct(&video); err != nil {
		log.WithError(err).WithFields(logTags).WithField("video-id", video.ID).
			Error("Video failed validation")
		return err
	}

	encoded, err := common.EncodeManifest(video)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("video-id", video.ID).
			Error("Manifest encode failure")
		return err
	}

	// Stage next to the final location, then swap in. Concurrent readers
	// only ever observe complete manifests.
	target := s.ManifestPath(video.ID)
	staging, err := os.CreateTemp(s.dir, "."+video.ID.String()+"-*")
	if err != nil {
		return err
	}
	stagingName := staging.Name()
	if _, err := staging.Write(encoded); err != nil {
		_ = staging.Close()
		_ = os.Remove(stagingName)
		return err
	}
	if err := staging.Close(); err != nil {
		_ = os.Remove(stagingName)
		return err
	}
	if err := os.Rename(stagingName, target); err != nil {
		_ = os.Remove(stagingName)
		return err
	}

	if err := s.infoCache.CacheVideoInfo(ctxt, video.Info(), s.infoCacheTTL); err != nil {
		log.WithError(err).WithFields(logTags).WithField("video-id", video.ID).
			Warn("Unable to cache video info")
	}
	log.WithFields(logTags).WithField("video-id", video.ID).Debug("Persisted video manifest")
	return nil
}

func (s *manifestStoreImpl) DeleteVideo(ctxt context.Context, videoID uuid.UUID) error {
	logTags := s.GetLogTagsForContext(ctxt)

	if err := s.infoCache.DeleteVideoInfo(ctxt, videoID); err != nil {
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
			Warn("Unable to drop cached video info")
	}
	if err := os.Remove(s.ManifestPath(videoID)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
			Error("Unable to delete manifest")
		return err
	}
	log.WithFields(logTags).WithField("video-id", videoID).Info("Deleted video manifest")
	return nil
}

func (s *manifestStoreImpl) InvalidateVideoInfo(ctxt context.Context, videoID uuid.UUID) error {
	return s.infoCache.DeleteVideoInfo(ctxt, videoID)
}

func (s *manifestStoreImpl) LastModified(
	ctxt context.Context, videoID uuid.UUID,
) (time.Time, error) {
	info, err := os.Stat(s.ManifestPath(videoID))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *manifestStoreImpl) Stop(ctxt context.Context) error {
	s.workerCtxtCancel()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			return err
		}
	}
	return goutils.TimeBoundedWaitGroupWait(ctxt, &s.wg, time.Second*5)
}

// watchLoop process vault directory change notifications
func (s *manifestStoreImpl) watchLoop(ctxt context.Context) {
	logTags := s.LogTags
	defer s.wg.Done()

	for {
		select {
		case <-ctxt.Done():
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			videoID, match := videoIDFromFileName(filepath.Base(event.Name))
			if !match {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.
				WithFields(logTags).
				WithField("video-id", videoID).
				WithField("op", event.Op.String()).
				Debug("Vault manifest changed on disk")
			if err := s.infoCache.DeleteVideoInfo(ctxt, videoID); err != nil {
				log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
					Warn("Unable to drop cached video info")
			}
			if s.onExternalChange != nil {
				s.onExternalChange(ctxt, videoID)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).WithFields(logTags).Error("Vault directory watcher error")
		}
	}
}

// videoIDFromFileName derive the video ID from a vault manifest file name
func videoIDFromFileName(name string) (uuid.UUID, bool) {
	if !strings.HasSuffix(name, manifestFileSuffix) || strings.HasPrefix(name, ".") {
		return uuid.Nil, false
	}
	videoID, err := uuid.Parse(strings.TrimSuffix(name, manifestFileSuffix))
	if err != nil {
		return uuid.Nil, false
	}
	return videoID, true
}
