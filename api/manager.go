package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/clipsync/db"
	"github.com/alwitt/clipsync/syncer"
	"github.com/alwitt/clipsync/vault"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SyncAPIHandler REST API interface to the agent node video repository
type SyncAPIHandler struct {
	goutils.RestAPIHandler
	validate *validator.Validate
	store    vault.ManifestStore
	engine   syncer.SyncEngine
	ledger   db.PersistenceManager
}

/*
NewSyncAPIHandler define a new video repository REST API handler

	@param store vault.ManifestStore - local manifest store
	@param engine syncer.SyncEngine - repository sync engine
	@param ledger db.PersistenceManager - transfer history ledger
	@param logConfig common.HTTPRequestLogging - handler log settings
	@returns new SyncAPIHandler
*/
func NewSyncAPIHandler(
	store vault.ManifestStore,
	engine syncer.SyncEngine,
	ledger db.PersistenceManager,
	logConfig common.HTTPRequestLogging,
) (SyncAPIHandler, error) {
	return SyncAPIHandler{
		RestAPIHandler: goutils.RestAPIHandler{
			Component: goutils.Component{
				LogTags: log.Fields{"module": "api", "component": "sync-api-handler"},
				LogTagModifiers: []goutils.LogMetadataModifier{
					goutils.ModifyLogMetadataByRestRequestParam,
				},
			},
			CallRequestIDHeaderField: &logConfig.RequestIDHeader,
			DoNotLogHeaders: func() map[string]bool {
				result := map[string]bool{}
				for _, v := range logConfig.DoNotLogHeaders {
					result[v] = true
				}
				return result
			}(),
			LogLevel: logConfig.LogLevel,
		}, validate: validator.New(), store: store, engine: engine, ledger: ledger,
	}, nil
}

// videoIDFromRequest parse the target video ID out of the request path
func (h SyncAPIHandler) videoIDFromRequest(r *http.Request) (uuid.UUID, error) {
	vars := mux.Vars(r)
	return uuid.Parse(vars["videoID"])
}

// ====================================================================================
// Video Repository Queries

// VideoInfoListResponse response containing the repository projection listing
type VideoInfoListResponse struct {
	goutils.RestAPIBaseResponse
	// Videos the known video projections, most recently modified first
	Videos []common.VideoInfo `json:"videos"`
}

// VideoDetailResponse response containing one full video manifest
type VideoDetailResponse struct {
	goutils.RestAPIBaseResponse
	// Video the full video manifest
	Video common.Video `json:"video" validate:"required,dive"`
}

// ListVideos godoc
// @Summary List known videos
// @Description List the lightweight projection of every video in the local repository.
// @tags repository,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Success 200 {object} VideoInfoListResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/video [get]
func (h SyncAPIHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	entries, err := h.store.ListVideos(r.Context())
	if err != nil {
		msg := "failed to list videos in local repository"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	response = VideoInfoListResponse{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Videos: entries,
	}
}

// ListVideosHandler Wrapper around ListVideos
func (h SyncAPIHandler) ListVideosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListVideos(w, r)
	}
}

// -----------------------------------------------------------------------

// GetVideo godoc
// @Summary Fetch one video manifest
// @Description Fetch the complete manifest of one video in the local repository.
// @tags repository,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param videoID path string true "Video ID"
// @Success 200 {object} VideoDetailResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/video/{videoID} [get]
func (h SyncAPIHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	videoID, err := h.videoIDFromRequest(r)
	if err != nil {
		msg := "video ID missing or malformed"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	video, err := h.store.GetVideo(r.Context(), videoID)
	if err != nil {
		if os.IsNotExist(err) {
			msg := "no such video in local repository"
			log.WithError(err).WithFields(logTags).WithField("video-id", videoID).Debug(msg)
			respCode = http.StatusNotFound
			response = h.GetStdRESTErrorMsg(r.Context(), http.StatusNotFound, msg, err.Error())
			return
		}
		msg := "failed to read video manifest"
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	response = VideoDetailResponse{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Video: video,
	}
}

// GetVideoHandler Wrapper around GetVideo
func (h SyncAPIHandler) GetVideoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetVideo(w, r)
	}
}

// -----------------------------------------------------------------------

// DeleteVideo godoc
// @Summary Delete one video
// @Description Request deletion of one video from the local repository. When the query
// parameter `remote` is true, the remote copy of the video is deleted as well.
// @tags repository,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param videoID path string true "Video ID"
// @Param remote query string false "Also delete the remote copy of the video"
// @Success 202 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/video/{videoID} [delete]
func (h SyncAPIHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	videoID, err := h.videoIDFromRequest(r)
	if err != nil {
		msg := "video ID missing or malformed"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	includeRemote := false
	if param := r.URL.Query().Get("remote"); param != "" {
		includeRemote, err = strconv.ParseBool(param)
		if err != nil {
			msg := "unable to parse 'remote' query parameter"
			log.WithError(err).WithFields(logTags).Error(msg)
			respCode = http.StatusBadRequest
			response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
			return
		}
	}

	if err := h.engine.RequestDelete(r.Context(), videoID, includeRemote); err != nil {
		msg := "failed to submit video delete request"
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusAccepted
	response = h.GetStdRESTSuccessMsg(r.Context())
}

// DeleteVideoHandler Wrapper around DeleteVideo
func (h SyncAPIHandler) DeleteVideoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteVideo(w, r)
	}
}

// ====================================================================================
// Transfer Requests

// RequestVideoUpload godoc
// @Summary Request a video upload
// @Description Request that one local video be uploaded to the remote host. The transfer
// runs asynchronously, and supersedes any queued transfer for the same video.
// @tags sync,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param videoID path string true "Video ID"
// @Success 202 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/video/{videoID}/upload [post]
func (h SyncAPIHandler) RequestVideoUpload(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	videoID, err := h.videoIDFromRequest(r)
	if err != nil {
		msg := "video ID missing or malformed"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	if err := h.engine.RequestUpload(r.Context(), videoID); err != nil {
		msg := "failed to submit video upload request"
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusAccepted
	response = h.GetStdRESTSuccessMsg(r.Context())
}

// RequestVideoUploadHandler Wrapper around RequestVideoUpload
func (h SyncAPIHandler) RequestVideoUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.RequestVideoUpload(w, r)
	}
}

// -----------------------------------------------------------------------

// RequestVideoDownload godoc
// @Summary Request a video download
// @Description Request that one video be downloaded from the remote host into the local
// repository. The transfer runs asynchronously, and supersedes any queued transfer for
// the same video.
// @tags sync,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param videoID path string true "Video ID"
// @Success 202 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/video/{videoID}/download [post]
func (h SyncAPIHandler) RequestVideoDownload(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	videoID, err := h.videoIDFromRequest(r)
	if err != nil {
		msg := "video ID missing or malformed"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	if err := h.engine.RequestDownload(r.Context(), videoID); err != nil {
		msg := "failed to submit video download request"
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusAccepted
	response = h.GetStdRESTSuccessMsg(r.Context())
}

// RequestVideoDownloadHandler Wrapper around RequestVideoDownload
func (h SyncAPIHandler) RequestVideoDownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.RequestVideoDownload(w, r)
	}
}

// -----------------------------------------------------------------------

// TransferListResponse response containing transfer history for one video
type TransferListResponse struct {
	goutils.RestAPIBaseResponse
	// Transfers the transfer records, most recent first
	Transfers []db.TransferRecord `json:"transfers"`
}

// ListVideoTransfers godoc
// @Summary List transfers of one video
// @Description List the recorded transfer attempts of one video, most recent first.
// @tags sync,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param videoID path string true "Video ID"
// @Success 200 {object} TransferListResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/video/{videoID}/transfer [get]
func (h SyncAPIHandler) ListVideoTransfers(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	videoID, err := h.videoIDFromRequest(r)
	if err != nil {
		msg := "video ID missing or malformed"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusBadRequest
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	records, err := h.ledger.ListTransfers(r.Context(), videoID)
	if err != nil {
		msg := "failed to list video transfer records"
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	response = TransferListResponse{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Transfers: records,
	}
}

// ListVideoTransfersHandler Wrapper around ListVideoTransfers
func (h SyncAPIHandler) ListVideoTransfersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListVideoTransfers(w, r)
	}
}

// ====================================================================================
// Sync Passes

// StartSyncPass godoc
// @Summary Start a full sync pass
// @Description Request one full reconciliation pass between the local repository and the
// remote host. The pass runs asynchronously.
// @tags sync,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Success 202 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/sync [post]
func (h SyncAPIHandler) StartSyncPass(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	if err := h.engine.StartSyncPass(r.Context()); err != nil {
		msg := "failed to submit sync pass request"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusAccepted
	response = h.GetStdRESTSuccessMsg(r.Context())
}

// StartSyncPassHandler Wrapper around StartSyncPass
func (h SyncAPIHandler) StartSyncPassHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.StartSyncPass(w, r)
	}
}

// -----------------------------------------------------------------------

// SyncPassListResponse response containing recent sync pass records
type SyncPassListResponse struct {
	goutils.RestAPIBaseResponse
	// Passes the sync pass records, most recent first
	Passes []db.SyncPassRecord `json:"passes"`
}

// ListSyncPasses godoc
// @Summary List recent sync passes
// @Description List the recorded sync passes, most recent first. The query parameter
// `limit` bounds the number of records returned.
// @tags sync,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Param limit query string false "Max number of records to return"
// @Success 200 {object} SyncPassListResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/sync/pass [get]
func (h SyncAPIHandler) ListSyncPasses(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	limit := 20
	if param := r.URL.Query().Get("limit"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 1 {
			msg := "unable to parse 'limit' query parameter"
			log.WithError(err).WithFields(logTags).Error(msg)
			respCode = http.StatusBadRequest
			response = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
			return
		}
		limit = parsed
	}

	records, err := h.ledger.ListSyncPasses(r.Context(), limit)
	if err != nil {
		msg := "failed to list sync pass records"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	response = SyncPassListResponse{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Passes: records,
	}
}

// ListSyncPassesHandler Wrapper around ListSyncPasses
func (h SyncAPIHandler) ListSyncPassesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListSyncPasses(w, r)
	}
}

// ====================================================================================
// Health Checks

// Alive godoc
// @Summary Sync API liveness check
// @Description Will return success to indicate sync REST API module is live
// @tags util,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/alive [get]
func (h SyncAPIHandler) Alive(w http.ResponseWriter, r *http.Request) {
	logTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to form response")
	}
}

// AliveHandler Wrapper around Alive
func (h SyncAPIHandler) AliveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Alive(w, r)
	}
}

// -----------------------------------------------------------------------

// Ready godoc
// @Summary Sync API readiness check
// @Description Will return success if the local repository and sync engine are ready
// @tags util,agent
// @Produce json
// @Param X-Request-ID header string false "Request ID"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/ready [get]
func (h SyncAPIHandler) Ready(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()
	err := h.store.Ready(r.Context())
	if err == nil {
		err = h.engine.Ready(r.Context())
	}
	if err != nil {
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(
			r.Context(), http.StatusInternalServerError, "not ready", err.Error(),
		)
	} else {
		respCode = http.StatusOK
		response = h.GetStdRESTSuccessMsg(r.Context())
	}
}

// ReadyHandler Wrapper around Ready
func (h SyncAPIHandler) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Ready(w, r)
	}
}
