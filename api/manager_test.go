package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alwitt/clipsync/api"
	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/clipsync/db"
	"github.com/alwitt/clipsync/mocks"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSyncAPIListVideos(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	mockStore := mocks.NewManifestStore(t)
	mockEngine := mocks.NewSyncEngine(t)
	mockLedger := mocks.NewPersistenceManager(t)

	uut, err := api.NewSyncAPIHandler(
		mockStore, mockEngine, mockLedger, common.HTTPRequestLogging{
			RequestIDHeader: "X-Request-ID", DoNotLogHeaders: []string{},
		},
	)
	assert.Nil(err)

	// Case 0: store failure
	{
		req, err := http.NewRequest("GET", "/v1/video", nil)
		assert.Nil(err)

		mockStore.On(
			"ListVideos", mock.AnythingOfType("*context.valueCtx"),
		).Return(nil, fmt.Errorf("dummy error")).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/video", uut.LoggingMiddleware(uut.ListVideosHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusInternalServerError, respRecorder.Code)
	}

	// Case 1: repository listing returned
	{
		entries := []common.VideoInfo{
			{
				ID:       uuid.New(),
				Title:    "trip to the coast",
				VideoURI: common.NewURI("file:///videos/coast.mp4"),
			},
			{
				ID:       uuid.New(),
				Title:    "workshop walkthrough",
				VideoURI: common.NewURI("https://videos.example.com/v1/blob/walkthrough"),
			},
		}

		req, err := http.NewRequest("GET", "/v1/video", nil)
		assert.Nil(err)

		mockStore.On(
			"ListVideos", mock.AnythingOfType("*context.valueCtx"),
		).Return(entries, nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/video", uut.LoggingMiddleware(uut.ListVideosHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		var resp api.VideoInfoListResponse
		assert.Nil(json.NewDecoder(respRecorder.Body).Decode(&resp))
		assert.True(resp.Success)
		assert.Len(resp.Videos, 2)
		assert.Equal(entries[0].ID, resp.Videos[0].ID)
		assert.Equal(entries[1].Title, resp.Videos[1].Title)
	}
}

func TestSyncAPIGetVideo(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	mockStore := mocks.NewManifestStore(t)
	mockEngine := mocks.NewSyncEngine(t)
	mockLedger := mocks.NewPersistenceManager(t)

	uut, err := api.NewSyncAPIHandler(
		mockStore, mockEngine, mockLedger, common.HTTPRequestLogging{
			RequestIDHeader: "X-Request-ID", DoNotLogHeaders: []string{},
		},
	)
	assert.Nil(err)

	// Case 0: malformed video ID
	{
		req, err := http.NewRequest("GET", "/v1/video/not-a-uuid", nil)
		assert.Nil(err)

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/video/{videoID}", uut.LoggingMiddleware(uut.GetVideoHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusBadRequest, respRecorder.Code)
	}

	// Case 1: unknown video
	{
		videoID := uuid.New()
		req, err := http.NewRequest("GET", fmt.Sprintf("/v1/video/%s", videoID), nil)
		assert.Nil(err)

		mockStore.On(
			"GetVideo", mock.AnythingOfType("*context.valueCtx"), videoID,
		).Return(common.Video{}, os.ErrNotExist).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/video/{videoID}", uut.LoggingMiddleware(uut.GetVideoHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusNotFound, respRecorder.Code)
	}

	// Case 2: video found
	{
		video := common.Video{
			ID:       uuid.New(),
			Title:    "garden timelapse",
			Rotation: 90,
			Revision: 4,
			EndTime:  -1,
			VideoURI: common.NewURI("file:///videos/garden.mp4"),
			Author:   common.User{Name: "dana"},
		}
		req, err := http.NewRequest("GET", fmt.Sprintf("/v1/video/%s", video.ID), nil)
		assert.Nil(err)

		mockStore.On(
			"GetVideo", mock.AnythingOfType("*context.valueCtx"), video.ID,
		).Return(video, nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/video/{videoID}", uut.LoggingMiddleware(uut.GetVideoHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		var resp api.VideoDetailResponse
		assert.Nil(json.NewDecoder(respRecorder.Body).Decode(&resp))
		assert.True(resp.Success)
		assert.Equal(video.ID, resp.Video.ID)
		assert.Equal(video.Title, resp.Video.Title)
		assert.Equal(video.Rotation, resp.Video.Rotation)
	}
}

func TestSyncAPITransferRequests(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	mockStore := mocks.NewManifestStore(t)
	mockEngine := mocks.NewSyncEngine(t)
	mockLedger := mocks.NewPersistenceManager(t)

	uut, err := api.NewSyncAPIHandler(
		mockStore, mockEngine, mockLedger, common.HTTPRequestLogging{
			RequestIDHeader: "X-Request-ID", DoNotLogHeaders: []string{},
		},
	)
	assert.Nil(err)

	// Case 0: request video upload
	{
		videoID := uuid.New()
		req, err := http.NewRequest("POST", fmt.Sprintf("/v1/video/%s/upload", videoID), nil)
		assert.Nil(err)

		mockEngine.On(
			"RequestUpload", mock.AnythingOfType("*context.valueCtx"), videoID,
		).Return(nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc(
			"/v1/video/{videoID}/upload", uut.LoggingMiddleware(uut.RequestVideoUploadHandler()),
		)

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusAccepted, respRecorder.Code)
	}

	// Case 1: request video download
	{
		videoID := uuid.New()
		req, err := http.NewRequest("POST", fmt.Sprintf("/v1/video/%s/download", videoID), nil)
		assert.Nil(err)

		mockEngine.On(
			"RequestDownload", mock.AnythingOfType("*context.valueCtx"), videoID,
		).Return(nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc(
			"/v1/video/{videoID}/download", uut.LoggingMiddleware(uut.RequestVideoDownloadHandler()),
		)

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusAccepted, respRecorder.Code)
	}

	// Case 2: delete local copy only
	{
		videoID := uuid.New()
		req, err := http.NewRequest("DELETE", fmt.Sprintf("/v1/video/%s", videoID), nil)
		assert.Nil(err)

		mockEngine.On(
			"RequestDelete", mock.AnythingOfType("*context.valueCtx"), videoID, false,
		).Return(nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/video/{videoID}", uut.LoggingMiddleware(uut.DeleteVideoHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusAccepted, respRecorder.Code)
	}

	// Case 3: delete local and remote copies
	{
		videoID := uuid.New()
		req, err := http.NewRequest(
			"DELETE", fmt.Sprintf("/v1/video/%s?remote=true", videoID), nil,
		)
		assert.Nil(err)

		mockEngine.On(
			"RequestDelete", mock.AnythingOfType("*context.valueCtx"), videoID, true,
		).Return(nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/video/{videoID}", uut.LoggingMiddleware(uut.DeleteVideoHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusAccepted, respRecorder.Code)
	}

	// Case 4: malformed remote query parameter
	{
		videoID := uuid.New()
		req, err := http.NewRequest(
			"DELETE", fmt.Sprintf("/v1/video/%s?remote=sometimes", videoID), nil,
		)
		assert.Nil(err)

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/video/{videoID}", uut.LoggingMiddleware(uut.DeleteVideoHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusBadRequest, respRecorder.Code)
	}
}

func TestSyncAPISyncPassEndpoints(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	mockStore := mocks.NewManifestStore(t)
	mockEngine := mocks.NewSyncEngine(t)
	mockLedger := mocks.NewPersistenceManager(t)

	uut, err := api.NewSyncAPIHandler(
		mockStore, mockEngine, mockLedger, common.HTTPRequestLogging{
			RequestIDHeader: "X-Request-ID", DoNotLogHeaders: []string{},
		},
	)
	assert.Nil(err)

	// Case 0: start a sync pass
	{
		req, err := http.NewRequest("POST", "/v1/sync", nil)
		assert.Nil(err)

		mockEngine.On(
			"StartSyncPass", mock.AnythingOfType("*context.valueCtx"),
		).Return(nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/sync", uut.LoggingMiddleware(uut.StartSyncPassHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusAccepted, respRecorder.Code)
	}

	// Case 1: list sync passes with a limit
	{
		records := []db.SyncPassRecord{
			{ID: ulid.Make().String(), StartedAt: time.Now().UTC(), Uploads: 2, Downloads: 1},
		}

		req, err := http.NewRequest("GET", "/v1/sync/pass?limit=5", nil)
		assert.Nil(err)

		mockLedger.On(
			"ListSyncPasses", mock.AnythingOfType("*context.valueCtx"), 5,
		).Return(records, nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/sync/pass", uut.LoggingMiddleware(uut.ListSyncPassesHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		var resp api.SyncPassListResponse
		assert.Nil(json.NewDecoder(respRecorder.Body).Decode(&resp))
		assert.True(resp.Success)
		assert.Len(resp.Passes, 1)
		assert.Equal(records[0].ID, resp.Passes[0].ID)
	}

	// Case 2: malformed limit
	{
		req, err := http.NewRequest("GET", "/v1/sync/pass?limit=zero", nil)
		assert.Nil(err)

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc("/v1/sync/pass", uut.LoggingMiddleware(uut.ListSyncPassesHandler()))

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusBadRequest, respRecorder.Code)
	}

	// Case 3: transfer history for one video
	{
		videoID := uuid.New()
		records := []db.TransferRecord{
			{
				ID:        ulid.Make().String(),
				VideoID:   videoID.String(),
				Direction: db.TransferDirectionUpload,
				State:     db.TransferStateSuccess,
				StartedAt: time.Now().UTC(),
			},
		}

		req, err := http.NewRequest("GET", fmt.Sprintf("/v1/video/%s/transfer", videoID), nil)
		assert.Nil(err)

		mockLedger.On(
			"ListTransfers", mock.AnythingOfType("*context.valueCtx"), videoID,
		).Return(records, nil).Once()

		router := mux.NewRouter()
		respRecorder := httptest.NewRecorder()
		router.HandleFunc(
			"/v1/video/{videoID}/transfer", uut.LoggingMiddleware(uut.ListVideoTransfersHandler()),
		)

		router.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		var resp api.TransferListResponse
		assert.Nil(json.NewDecoder(respRecorder.Body).Decode(&resp))
		assert.True(resp.Success)
		assert.Len(resp.Transfers, 1)
		assert.Equal(records[0].ID, resp.Transfers[0].ID)
	}
}
