package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/clipsync/db"
	"github.com/alwitt/clipsync/mp4"
	"github.com/alwitt/clipsync/remote"
	"github.com/alwitt/clipsync/utils"
	"github.com/alwitt/clipsync/vault"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// SyncEngine reconciles the local manifest vault against the remote hosts
type SyncEngine interface {
	/*
		Ready check whether the engine is ready

			@param ctxt context.Context - execution context
	*/
	Ready(ctxt context.Context) error

	/*
		StartSyncPass request a full reconciliation pass

			@param ctxt context.Context - execution context
	*/
	StartSyncPass(ctxt context.Context) error

	/*
		RequestUpload request upload of one video to the remote hosts

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
	*/
	RequestUpload(ctxt context.Context, videoID uuid.UUID) error

	/*
		RequestDownload request download of one video from the remote hosts

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
	*/
	RequestDownload(ctxt context.Context, videoID uuid.UUID) error

	/*
		RequestDelete request deletion of one video

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@param includeRemote bool - also remove the remote copy
	*/
	RequestDelete(ctxt context.Context, videoID uuid.UUID, includeRemote bool) error

	/*
		Stop stop the engine

			@param ctxt context.Context - execution context
	*/
	Stop(ctxt context.Context) error
}

// SyncEngineParams parameters for building the sync engine
type SyncEngineParams struct {
	// Store the local manifest vault
	Store vault.ManifestStore
	// ManifestHost the remote manifest host
	ManifestHost remote.ManifestHost
	// BlobHosts ordered blob host preference list
	BlobHosts []remote.BlobHost
	// Ledger the transfer ledger
	Ledger db.PersistenceManager
	// ThumbCache thumbnail artifact cache. Optional.
	ThumbCache utils.ArtifactCache
	// EventHub local sync event fan-out
	EventHub utils.SyncEventHub
	// Broadcaster optional cross-device relay for repository change events
	Broadcaster utils.Broadcaster
	// Patcher MP4 container patcher for embedding manifests on upload
	Patcher mp4.ContainerPatcher
	// Config sync engine settings
	Config common.SyncConfig
	// Metrics metrics collection agent. Optional.
	Metrics goutils.MetricsCollector
}

// Engine task requests
type syncPassRequest struct{}

type transferRequest struct {
	videoID uuid.UUID
	epoch   uint64
	// manual whether the transfer was explicitly requested. Manual requests
	// bypass the failure streak cutoff.
	manual bool
	// tracker set on transfers belonging to a reconciliation pass
	tracker *passTracker
}

// passTracker aggregates the per video outcomes of one reconciliation pass.
// The transfers run concurrently on the worker pool; the pass summary closes
// out once every planned transfer resolved.
type passTracker struct {
	wg      sync.WaitGroup
	lock    sync.Mutex
	summary db.SyncPassSummary
}

func (t *passTracker) noteOutcome(direction string, success bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if !success {
		t.summary.Failures++
		return
	}
	if direction == db.TransferDirectionUpload {
		t.summary.Uploads++
	} else {
		t.summary.Downloads++
	}
}

type uploadRequest struct{ transferRequest }
type downloadRequest struct{ transferRequest }

type deleteRequest struct {
	videoID       uuid.UUID
	includeRemote bool
}

// syncEngineImpl implements SyncEngine
type syncEngineImpl struct {
	goutils.Component
	store            vault.ManifestStore
	manifestHost     remote.ManifestHost
	blobHosts        []remote.BlobHost
	ledger           db.PersistenceManager
	thumbCache       utils.ArtifactCache
	eventHub         utils.SyncEventHub
	broadcaster      utils.Broadcaster
	patcher          mp4.ContainerPatcher
	config           common.SyncConfig
	worker           goutils.TaskProcessor
	passTimer        goutils.IntervalTimer
	epochs           map[uuid.UUID]uint64
	epochLock        sync.Mutex
	videoLocks       map[uuid.UUID]*sync.Mutex
	videoLockLock    sync.Mutex
	transferMetrics  *prometheus.CounterVec
	passMetrics      *prometheus.CounterVec
	workerCtxt       context.Context
	workerCtxtCancel context.CancelFunc
	wg               sync.WaitGroup
}

/*
NewSyncEngine define new sync engine

	@param parentContext context.Context - parent execution context
	@param params SyncEngineParams - engine build parameters
	@returns new SyncEngine
*/
func NewSyncEngine(parentContext context.Context, params SyncEngineParams) (SyncEngine, error) {
	logTags := log.Fields{"module": "syncer", "component": "sync-engine"}

	if params.Store == nil || params.ManifestHost == nil || params.Ledger == nil ||
		params.EventHub == nil || params.Patcher == nil {
		return nil, fmt.Errorf("sync engine missing required components")
	}
	if len(params.BlobHosts) == 0 {
		return nil, fmt.Errorf("sync engine needs at least one blob host")
	}

	workerCtxt, cancel := context.WithCancel(parentContext)
	instance := &syncEngineImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		store:            params.Store,
		manifestHost:     params.ManifestHost,
		blobHosts:        params.BlobHosts,
		ledger:           params.Ledger,
		thumbCache:       params.ThumbCache,
		eventHub:         params.EventHub,
		broadcaster:      params.Broadcaster,
		patcher:          params.Patcher,
		config:           params.Config,
		epochs:           make(map[uuid.UUID]uint64),
		videoLocks:       make(map[uuid.UUID]*sync.Mutex),
		workerCtxt:       workerCtxt,
		workerCtxtCancel: cancel,
	}

	if params.Metrics != nil {
		var err error
		instance.transferMetrics, err = params.Metrics.InstallCustomCounterVecMetrics(
			parentContext,
			utils.MetricsNameSyncTransferCount,
			"Total per video transfers",
			[]string{"direction", "outcome"},
		)
		if err != nil {
			cancel()
			return nil, err
		}
		instance.passMetrics, err = params.Metrics.InstallCustomCounterVecMetrics(
			parentContext,
			utils.MetricsNameSyncPassCount,
			"Total reconciliation passes",
			[]string{"outcome"},
		)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	worker, err := goutils.GetNewTaskDemuxProcessorInstance(
		workerCtxt,
		"sync-engine",
		params.Config.MaxInFlight*2,
		params.Config.MaxInFlight,
		logTags,
	)
	if err != nil {
		cancel()
		return nil, err
	}
	instance.worker = worker

	if err := worker.AddToTaskExecutionMap(
		reflect.TypeOf(syncPassRequest{}), instance.processSyncPassRequest,
	); err != nil {
		cancel()
		return nil, err
	}
	if err := worker.AddToTaskExecutionMap(
		reflect.TypeOf(uploadRequest{}), instance.processUploadRequest,
	); err != nil {
		cancel()
		return nil, err
	}
	if err := worker.AddToTaskExecutionMap(
		reflect.TypeOf(downloadRequest{}), instance.processDownloadRequest,
	); err != nil {
		cancel()
		return nil, err
	}
	if err := worker.AddToTaskExecutionMap(
		reflect.TypeOf(deleteRequest{}), instance.processDeleteRequest,
	); err != nil {
		cancel()
		return nil, err
	}
	if err := worker.StartEventLoop(&instance.wg); err != nil {
		cancel()
		return nil, err
	}

	if params.Config.PassInt() > 0 {
		timer, err := goutils.GetIntervalTimerInstance(workerCtxt, &instance.wg, logTags)
		if err != nil {
			cancel()
			return nil, err
		}
		instance.passTimer = timer
		if err := timer.Start(params.Config.PassInt(), func() error {
			return instance.StartSyncPass(workerCtxt)
		}, false); err != nil {
			cancel()
			return nil, err
		}
	}

	return instance, nil
}

func (e *syncEngineImpl) Ready(ctxt context.Context) error {
	if err := e.store.Ready(ctxt); err != nil {
		return err
	}
	return e.ledger.Ready(ctxt)
}

func (e *syncEngineImpl) Stop(ctxt context.Context) error {
	e.workerCtxtCancel()
	if err := e.worker.StopEventLoop(); err != nil {
		return err
	}
	return goutils.TimeBoundedWaitGroupWait(ctxt, &e.wg, time.Second*10)
}

// ===============================================================================
// Request Submission

func (e *syncEngineImpl) StartSyncPass(ctxt context.Context) error {
	return e.worker.Submit(ctxt, syncPassRequest{})
}

func (e *syncEngineImpl) RequestUpload(ctxt context.Context, videoID uuid.UUID) error {
	return e.worker.Submit(ctxt, uploadRequest{transferRequest{
		videoID: videoID, epoch: e.bumpEpoch(videoID), manual: true,
	}})
}

func (e *syncEngineImpl) RequestDownload(ctxt context.Context, videoID uuid.UUID) error {
	return e.worker.Submit(ctxt, downloadRequest{transferRequest{
		videoID: videoID, epoch: e.bumpEpoch(videoID), manual: true,
	}})
}

func (e *syncEngineImpl) RequestDelete(
	ctxt context.Context, videoID uuid.UUID, includeRemote bool,
) error {
	// Deletion supersedes any queued transfer of the video
	e.bumpEpoch(videoID)
	return e.worker.Submit(ctxt, deleteRequest{videoID: videoID, includeRemote: includeRemote})
}

// bumpEpoch advance the request epoch of one video. Queued requests from
// earlier epochs become stale; the latest request wins.
func (e *syncEngineImpl) bumpEpoch(videoID uuid.UUID) uint64 {
	e.epochLock.Lock()
	defer e.epochLock.Unlock()
	e.epochs[videoID]++
	return e.epochs[videoID]
}

// currentEpoch the current request epoch of one video
func (e *syncEngineImpl) currentEpoch(videoID uuid.UUID) uint64 {
	e.epochLock.Lock()
	defer e.epochLock.Unlock()
	return e.epochs[videoID]
}

// lockVideo serialize operations per video ID
func (e *syncEngineImpl) lockVideo(videoID uuid.UUID) *sync.Mutex {
	e.videoLockLock.Lock()
	defer e.videoLockLock.Unlock()
	lock, ok := e.videoLocks[videoID]
	if !ok {
		lock = &sync.Mutex{}
		e.videoLocks[videoID] = lock
	}
	return lock
}

// ===============================================================================
// Task Handlers

func (e *syncEngineImpl) processSyncPassRequest(params interface{}) error {
	if _, ok := params.(syncPassRequest); !ok {
		return fmt.Errorf("received unexpected call parameters: %s", reflect.TypeOf(params))
	}
	return e.executeSyncPass(e.workerCtxt)
}

func (e *syncEngineImpl) processUploadRequest(params interface{}) error {
	request, ok := params.(uploadRequest)
	if !ok {
		return fmt.Errorf("received unexpected call parameters: %s", reflect.TypeOf(params))
	}
	if request.tracker != nil {
		defer request.tracker.wg.Done()
	}
	if request.epoch < e.currentEpoch(request.videoID) {
		log.WithFields(e.LogTags).WithField("video-id", request.videoID).
			Debug("Skipping superseded upload request")
		return nil
	}
	err := e.executeUpload(e.workerCtxt, request.videoID, request.manual)
	if request.tracker != nil {
		request.tracker.noteOutcome(db.TransferDirectionUpload, err == nil)
	}
	return err
}

func (e *syncEngineImpl) processDownloadRequest(params interface{}) error {
	request, ok := params.(downloadRequest)
	if !ok {
		return fmt.Errorf("received unexpected call parameters: %s", reflect.TypeOf(params))
	}
	if request.tracker != nil {
		defer request.tracker.wg.Done()
	}
	if request.epoch < e.currentEpoch(request.videoID) {
		log.WithFields(e.LogTags).WithField("video-id", request.videoID).
			Debug("Skipping superseded download request")
		return nil
	}
	err := e.executeDownload(e.workerCtxt, request.videoID, request.epoch, request.manual)
	if request.tracker != nil {
		request.tracker.noteOutcome(db.TransferDirectionDownload, err == nil)
	}
	return err
}

func (e *syncEngineImpl) processDeleteRequest(params interface{}) error {
	request, ok := params.(deleteRequest)
	if !ok {
		return fmt.Errorf("received unexpected call parameters: %s", reflect.TypeOf(params))
	}
	return e.executeDelete(e.workerCtxt, request.videoID, request.includeRemote)
}

// ===============================================================================
// Event And Metrics Helpers

// emitEvent publish one event locally, relaying repository changes out of
// process when a broadcaster is installed
func (e *syncEngineImpl) emitEvent(ctxt context.Context, event common.SyncEvent) {
	event.Timestamp = time.Now().UTC()
	e.eventHub.Notify(ctxt, event)
	if event.Kind == common.SyncEventRepositoryChanged && e.broadcaster != nil {
		encoded, err := json.Marshal(&event)
		if err == nil {
			if err := e.broadcaster.Broadcast(ctxt, encoded); err != nil {
				log.WithError(err).WithFields(e.GetLogTagsForContext(ctxt)).
					Warn("Repository change relay failed")
			}
		}
	}
}

// recordTransferMetric count one finished transfer
func (e *syncEngineImpl) recordTransferMetric(direction string, success bool) {
	if e.transferMetrics == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	e.transferMetrics.With(prometheus.Labels{"direction": direction, "outcome": outcome}).Inc()
}

// ===============================================================================
// Transfer Execution

// fileURIToPath resolve a local URI to a filesystem path
func fileURIToPath(uri common.URI) (string, bool) {
	raw := uri.String()
	switch uri.Scheme() {
	case "file":
		return strings.TrimPrefix(raw, "file://"), true
	case "":
		if raw != "" {
			return raw, true
		}
	}
	return "", false
}

// overAttemptCutoff whether automatic retries of a transfer are exhausted
func (e *syncEngineImpl) overAttemptCutoff(
	ctxt context.Context, videoID uuid.UUID, direction string,
) bool {
	streak, err := e.ledger.FailedTransferStreak(ctxt, videoID, direction)
	if err != nil {
		return false
	}
	return streak >= e.config.MaxTransferAttempts
}

/*
executeUpload push one video to the remote hosts.

For locally owned content the video and thumbnail files are first uploaded to
the preferred blob host, with the manifest embedded into the video container
beforehand. The manifest push happens last; if it fails, the freshly uploaded
blobs are deleted again so the remote side never holds orphaned content.
*/
func (e *syncEngineImpl) executeUpload(
	ctxt context.Context, videoID uuid.UUID, manual bool,
) error {
	logTags := e.GetLogTagsForContext(ctxt)

	lock := e.lockVideo(videoID)
	lock.Lock()
	defer lock.Unlock()

	if !manual && e.overAttemptCutoff(ctxt, videoID, db.TransferDirectionUpload) {
		log.WithFields(logTags).WithField("video-id", videoID).
			Warn("Upload retries exhausted. Waiting for manual request")
		return nil
	}

	video, err := e.store.GetVideo(ctxt, videoID)
	if err != nil {
		return err
	}

	e.emitEvent(ctxt, common.SyncEvent{Kind: common.SyncEventTransferStarted, VideoID: videoID})

	failTransfer := func(ledgerID string, err error) error {
		if ledgerID != "" {
			_ = e.ledger.MarkTransferResult(ctxt, ledgerID, false, err.Error())
		}
		e.recordTransferMetric(db.TransferDirectionUpload, false)
		e.emitEvent(ctxt, common.SyncEvent{
			Kind: common.SyncEventTransferFailed, VideoID: videoID, Message: err.Error(),
		})
		return err
	}

	var uploaded *remote.BlobUploadResult
	var uploadedVia remote.BlobHost
	if video.IsLocal() {
		videoPath, ok := fileURIToPath(video.VideoURI)
		if !ok {
			return failTransfer("", fmt.Errorf("video '%s' has no resolvable local file", videoID))
		}
		thumbPath, ok := fileURIToPath(video.ThumbURI)
		if !ok {
			return failTransfer("", fmt.Errorf("video '%s' has no resolvable thumbnail file", videoID))
		}

		// Embed the manifest so the uploaded container is self describing
		encoded, err := common.EncodeManifest(video)
		if err != nil {
			return failTransfer("", err)
		}
		if err := e.patcher.PatchManifest(ctxt, videoPath, encoded); err != nil {
			var unsupported mp4.UnsupportedContainerError
			if !errors.As(err, &unsupported) {
				return failTransfer("", err)
			}
			log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
				Warn("Container does not support manifest embedding. Uploading as is")
		}

		// Try hosts in preference order
		var lastErr error
		for _, host := range e.blobHosts {
			result, err := host.UploadBlobs(ctxt, videoID, videoPath, thumbPath)
			if err != nil {
				lastErr = err
				log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
					WithField("blob-host", host.HostName()).Warn("Blob upload failed. Trying next host")
				continue
			}
			uploaded = &result
			uploadedVia = host
			break
		}
		if uploaded == nil {
			ledgerID, _ := e.ledger.RecordTransferStart(
				ctxt, videoID, db.TransferDirectionUpload, "",
			)
			return failTransfer(ledgerID, fmt.Errorf("all blob hosts failed: %w", lastErr))
		}
	}

	hostName := ""
	if uploadedVia != nil {
		hostName = uploadedVia.HostName()
	}
	ledgerID, err := e.ledger.RecordTransferStart(ctxt, videoID, db.TransferDirectionUpload, hostName)
	if err != nil {
		return failTransfer("", err)
	}
	e.emitEvent(ctxt, common.SyncEvent{
		Kind: common.SyncEventTransferProgress, VideoID: videoID, Percent: 50,
	})

	if uploaded != nil {
		if uploaded.ThumbURL == "" {
			// The host did not take the bundled thumbnail. Push it on its own.
			if thumbPath, ok := fileURIToPath(video.ThumbURI); ok {
				thumbURL, thumbErr := uploadedVia.UploadThumbnail(ctxt, videoID, thumbPath)
				if thumbErr != nil {
					log.WithError(thumbErr).WithFields(logTags).WithField("video-id", videoID).
						Warn("Standalone thumbnail upload failed. Keeping the local thumbnail link")
				} else {
					uploaded.ThumbURL = thumbURL
				}
			}
		}
		// The local files become the cached copies of the now remote video
		video.VideoCacheURI = video.VideoURI
		video.ThumbCacheURI = video.ThumbURI
		video.VideoURI = common.NewURI(uploaded.VideoURL)
		if uploaded.ThumbURL != "" {
			video.ThumbURI = common.NewURI(uploaded.ThumbURL)
		}
		video.DeleteURI = common.NewURI(uploaded.DeleteHandle)
		if uploaded.OrientationNormalized {
			// The hosted copy has orientation baked in
			video.RotationCompensation = 0
		}
	}

	encoded, err := common.EncodeManifest(video)
	if err != nil {
		return failTransfer(ledgerID, err)
	}
	if err := e.manifestHost.PushManifest(ctxt, videoID, encoded); err != nil {
		// Roll back the blob upload so nothing orphaned remains remotely
		if uploaded != nil {
			if cleanupErr := uploadedVia.DeleteBlobs(ctxt, uploaded.DeleteHandle); cleanupErr != nil {
				log.WithError(cleanupErr).WithFields(logTags).WithField("video-id", videoID).
					Error("Compensating blob cleanup failed")
			}
		}
		return failTransfer(ledgerID, err)
	}

	if err := e.store.SaveVideo(ctxt, video); err != nil {
		return failTransfer(ledgerID, err)
	}

	_ = e.ledger.MarkTransferResult(ctxt, ledgerID, true, "")
	e.recordTransferMetric(db.TransferDirectionUpload, true)
	e.emitEvent(ctxt, common.SyncEvent{Kind: common.SyncEventTransferSucceeded, VideoID: videoID})
	e.emitEvent(ctxt, common.SyncEvent{Kind: common.SyncEventRepositoryChanged, VideoID: videoID})
	log.WithFields(logTags).WithField("video-id", videoID).Info("Upload complete")
	return nil
}

/*
executeDownload pull one video from the remote hosts.

The remote manifest replaces the local copy as a whole. When blob fetching is
enabled, the thumbnail is materialized through the artifact cache and linked
as the local cached copy.

The fetched state only applies if the request is still the latest for the
video at completion. A request submitted while the transfer ran supersedes
the result, and the newer request refetches behind the per video lock.
*/
func (e *syncEngineImpl) executeDownload(
	ctxt context.Context, videoID uuid.UUID, epoch uint64, manual bool,
) error {
	logTags := e.GetLogTagsForContext(ctxt)

	lock := e.lockVideo(videoID)
	lock.Lock()
	defer lock.Unlock()

	if !manual && e.overAttemptCutoff(ctxt, videoID, db.TransferDirectionDownload) {
		log.WithFields(logTags).WithField("video-id", videoID).
			Warn("Download retries exhausted. Waiting for manual request")
		return nil
	}

	e.emitEvent(ctxt, common.SyncEvent{Kind: common.SyncEventTransferStarted, VideoID: videoID})
	ledgerID, err := e.ledger.RecordTransferStart(ctxt, videoID, db.TransferDirectionDownload, "")
	if err != nil {
		return err
	}

	failTransfer := func(err error) error {
		_ = e.ledger.MarkTransferResult(ctxt, ledgerID, false, err.Error())
		e.recordTransferMetric(db.TransferDirectionDownload, false)
		e.emitEvent(ctxt, common.SyncEvent{
			Kind: common.SyncEventTransferFailed, VideoID: videoID, Message: err.Error(),
		})
		return err
	}

	index, err := e.manifestHost.ListManifests(ctxt)
	if err != nil {
		return failTransfer(err)
	}
	var entry *remote.HostIndexEntry
	for idx, candidate := range index {
		if candidate.VideoID == videoID {
			entry = &index[idx]
			break
		}
	}
	if entry == nil {
		return failTransfer(fmt.Errorf("video '%s' not in remote index", videoID))
	}

	manifest, err := e.manifestHost.FetchManifest(ctxt, *entry)
	if err != nil {
		return failTransfer(err)
	}
	video, err := common.DecodeManifest(manifest)
	if err != nil {
		return failTransfer(err)
	}
	if video.ID != videoID {
		return failTransfer(fmt.Errorf(
			"remote manifest carries ID '%s', expected '%s'", video.ID, videoID,
		))
	}

	// Cached file links are local state; carry them over from the copy being
	// replaced
	if existing, err := e.store.GetVideo(ctxt, videoID); err == nil {
		if video.VideoCacheURI.IsZero() {
			video.VideoCacheURI = existing.VideoCacheURI
		}
		if video.ThumbCacheURI.IsZero() {
			video.ThumbCacheURI = existing.ThumbCacheURI
		}
	}

	e.emitEvent(ctxt, common.SyncEvent{
		Kind: common.SyncEventTransferProgress, VideoID: videoID, Percent: 50,
	})

	if e.config.FetchBlobsOnPull && e.thumbCache != nil && !video.ThumbURI.IsZero() &&
		video.ThumbCacheURI.IsZero() {
		thumbURL := video.ThumbURI.String()
		cachePath, err := e.thumbCache.GetArtifact(
			ctxt,
			thumbArtifactID(videoID),
			func(fetchCtxt context.Context, targetPath string) error {
				for _, host := range e.blobHosts {
					if host.CanFetch(thumbURL) {
						return host.FetchBlob(fetchCtxt, thumbURL, targetPath)
					}
				}
				return fmt.Errorf("no blob host serves '%s'", thumbURL)
			},
		)
		if err != nil {
			// Thumbnail is a nicety. The manifest pull still counts.
			log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
				Warn("Thumbnail fetch failed")
		} else {
			video.ThumbCacheURI = common.NewURI("file://" + cachePath)
		}
	}

	if epoch < e.currentEpoch(videoID) {
		log.WithFields(logTags).WithField("video-id", videoID).
			Info("Discarding superseded download result")
		_ = e.ledger.MarkTransferResult(ctxt, ledgerID, false, "superseded by a newer request")
		return nil
	}

	if err := e.store.SaveVideo(ctxt, video); err != nil {
		return failTransfer(err)
	}

	_ = e.ledger.MarkTransferResult(ctxt, ledgerID, true, "")
	e.recordTransferMetric(db.TransferDirectionDownload, true)
	e.emitEvent(ctxt, common.SyncEvent{Kind: common.SyncEventTransferSucceeded, VideoID: videoID})
	e.emitEvent(ctxt, common.SyncEvent{Kind: common.SyncEventRepositoryChanged, VideoID: videoID})
	log.WithFields(logTags).WithField("video-id", videoID).Info("Download complete")
	return nil
}

// thumbArtifactID artifact cache ID of one video's thumbnail
func thumbArtifactID(videoID uuid.UUID) string {
	return videoID.String() + ".thumb"
}

// executeDelete remove one video locally, and optionally its remote copies
func (e *syncEngineImpl) executeDelete(
	ctxt context.Context, videoID uuid.UUID, includeRemote bool,
) error {
	logTags := e.GetLogTagsForContext(ctxt)

	lock := e.lockVideo(videoID)
	lock.Lock()
	defer lock.Unlock()

	video, getErr := e.store.GetVideo(ctxt, videoID)

	if includeRemote {
		if err := e.manifestHost.DeleteManifest(ctxt, videoID); err != nil {
			return err
		}
		if getErr == nil && !video.DeleteURI.IsZero() {
			handle := video.DeleteURI.String()
			for _, host := range e.blobHosts {
				if !host.CanFetch(handle) {
					continue
				}
				if err := host.DeleteBlobs(ctxt, handle); err != nil {
					log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
						Error("Remote blob deletion failed")
					return err
				}
				break
			}
		}
	}

	if err := e.store.DeleteVideo(ctxt, videoID); err != nil {
		return err
	}
	if e.thumbCache != nil {
		_ = e.thumbCache.DropArtifact(ctxt, thumbArtifactID(videoID))
	}
	e.emitEvent(ctxt, common.SyncEvent{Kind: common.SyncEventRepositoryChanged, VideoID: videoID})
	log.WithFields(logTags).WithField("video-id", videoID).Info("Video deleted")
	return nil
}

// ===============================================================================
// Reconciliation Pass

/*
executeSyncPass run one full reconciliation pass.

When the remote index is unreachable the pass degrades instead of failing:
local operation continues, a degraded event goes out, and the pass is recorded
so operators can see the gap.
*/
func (e *syncEngineImpl) executeSyncPass(ctxt context.Context) error {
	logTags := e.GetLogTagsForContext(ctxt)
	startTime := time.Now().UTC()

	localIndex := map[uuid.UUID]LocalIndexEntry{}
	listing, err := e.store.ListVideos(ctxt)
	if err != nil {
		return err
	}
	for _, info := range listing {
		modified, err := e.store.LastModified(ctxt, info.ID)
		if err != nil {
			continue
		}
		localIndex[info.ID] = LocalIndexEntry{Modified: modified, OwnedLocally: info.IsLocal()}
	}

	remoteListing, err := e.manifestHost.ListManifests(ctxt)
	if err != nil {
		log.WithError(err).WithFields(logTags).Warn("Remote index unreachable. Degraded pass")
		e.emitEvent(ctxt, common.SyncEvent{
			Kind: common.SyncEventDegradedMode, Message: err.Error(),
		})
		if e.passMetrics != nil {
			e.passMetrics.With(prometheus.Labels{"outcome": "degraded"}).Inc()
		}
		return e.ledger.RecordSyncPass(ctxt, db.SyncPassSummary{
			StartedAt:  startTime,
			FinishedAt: time.Now().UTC(),
			Degraded:   true,
			Detail:     err.Error(),
		})
	}
	remoteIndex := map[uuid.UUID]time.Time{}
	for _, entry := range remoteListing {
		remoteIndex[entry.VideoID] = entry.Modified
	}

	plan := Reconcile(localIndex, remoteIndex)
	log.WithFields(logTags).WithField("steps", len(plan)).Debug("Reconciliation plan ready")

	// Each planned transfer runs as its own worker pool task, so independent
	// videos move concurrently up to the pool size. Submission and the wait
	// for completion happen off the pool to keep every worker available for
	// the transfers themselves.
	tracker := &passTracker{summary: db.SyncPassSummary{StartedAt: startTime}}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for _, step := range plan {
			tracker.wg.Add(1)
			request := transferRequest{
				videoID: step.VideoID, epoch: e.bumpEpoch(step.VideoID), tracker: tracker,
			}
			var err error
			switch step.Action {
			case ActionUpload:
				err = e.worker.Submit(ctxt, uploadRequest{request})
			case ActionDownload:
				err = e.worker.Submit(ctxt, downloadRequest{request})
			}
			if err != nil {
				log.WithError(err).WithFields(logTags).WithField("video-id", step.VideoID).
					Error("Unable to submit planned transfer")
				tracker.noteOutcome("", false)
				tracker.wg.Done()
			}
		}
		tracker.wg.Wait()
		e.finishSyncPass(ctxt, tracker)
	}()
	return nil
}

// finishSyncPass record the summary of one reconciliation pass once every
// planned transfer resolved
func (e *syncEngineImpl) finishSyncPass(ctxt context.Context, tracker *passTracker) {
	logTags := e.GetLogTagsForContext(ctxt)

	tracker.lock.Lock()
	summary := tracker.summary
	tracker.lock.Unlock()
	summary.FinishedAt = time.Now().UTC()

	if e.passMetrics != nil {
		outcome := "success"
		if summary.Failures > 0 {
			outcome = "partial"
		}
		e.passMetrics.With(prometheus.Labels{"outcome": outcome}).Inc()
	}
	log.
		WithFields(logTags).
		WithField("uploads", summary.Uploads).
		WithField("downloads", summary.Downloads).
		WithField("failures", summary.Failures).
		Info("Reconciliation pass complete")
	if err := e.ledger.RecordSyncPass(ctxt, summary); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to record reconciliation pass")
	}
}
