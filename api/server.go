package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/clipsync/db"
	"github.com/alwitt/clipsync/syncer"
	"github.com/alwitt/clipsync/vault"
	"github.com/alwitt/goutils"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ====================================================================================
// Sync API Server

/*
BuildSyncAPIServer create agent node sync API server

	@param httpCfg common.APIServerConfig - HTTP server configuration
	@param store vault.ManifestStore - local manifest store
	@param engine syncer.SyncEngine - repository sync engine
	@param ledger db.PersistenceManager - transfer history ledger
	@returns HTTP server instance
*/
func BuildSyncAPIServer(
	httpCfg common.APIServerConfig,
	store vault.ManifestStore,
	engine syncer.SyncEngine,
	ledger db.PersistenceManager,
) (*http.Server, error) {
	httpHandler, err := NewSyncAPIHandler(store, engine, ledger, httpCfg.APIs.RequestLogging)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	mainRouter := registerPathPrefix(router, httpCfg.APIs.Endpoint.PathPrefix, nil)
	v1Router := registerPathPrefix(mainRouter, "/v1", nil)

	// --------------------------------------------------------------------------------
	// Health check
	_ = registerPathPrefix(v1Router, "/alive", map[string]http.HandlerFunc{
		"get": httpHandler.AliveHandler(),
	})
	_ = registerPathPrefix(v1Router, "/ready", map[string]http.HandlerFunc{
		"get": httpHandler.ReadyHandler(),
	})

	// --------------------------------------------------------------------------------
	// Video repository
	videoRouter := registerPathPrefix(v1Router, "/video", map[string]http.HandlerFunc{
		"get": httpHandler.ListVideosHandler(),
	})

	perVideoRouter := registerPathPrefix(
		videoRouter, "/{videoID}", map[string]http.HandlerFunc{
			"get":    httpHandler.GetVideoHandler(),
			"delete": httpHandler.DeleteVideoHandler(),
		},
	)

	_ = registerPathPrefix(perVideoRouter, "/upload", map[string]http.HandlerFunc{
		"post": httpHandler.RequestVideoUploadHandler(),
	})

	_ = registerPathPrefix(perVideoRouter, "/download", map[string]http.HandlerFunc{
		"post": httpHandler.RequestVideoDownloadHandler(),
	})

	_ = registerPathPrefix(perVideoRouter, "/transfer", map[string]http.HandlerFunc{
		"get": httpHandler.ListVideoTransfersHandler(),
	})

	// --------------------------------------------------------------------------------
	// Sync passes
	syncRouter := registerPathPrefix(v1Router, "/sync", map[string]http.HandlerFunc{
		"post": httpHandler.StartSyncPassHandler(),
	})

	_ = registerPathPrefix(syncRouter, "/pass", map[string]http.HandlerFunc{
		"get": httpHandler.ListSyncPassesHandler(),
	})

	// --------------------------------------------------------------------------------
	// Middleware

	router.Use(func(next http.Handler) http.Handler {
		return httpHandler.LoggingMiddleware(next.ServeHTTP)
	})

	// --------------------------------------------------------------------------------
	// HTTP Server

	withCORS := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "DELETE"},
	}).Handler(router)

	serverListen := fmt.Sprintf(
		"%s:%d", httpCfg.Server.ListenOn, httpCfg.Server.Port,
	)
	httpSrv := &http.Server{
		Addr:         serverListen,
		WriteTimeout: time.Second * time.Duration(httpCfg.Server.Timeouts.WriteTimeout),
		ReadTimeout:  time.Second * time.Duration(httpCfg.Server.Timeouts.ReadTimeout),
		IdleTimeout:  time.Second * time.Duration(httpCfg.Server.Timeouts.IdleTimeout),
		Handler:      h2c.NewHandler(withCORS, &http2.Server{}),
	}

	return httpSrv, nil
}

// ====================================================================================
// Metrics Collection Server

/*
BuildMetricsCollectionServer create server to host metrics collection endpoint

	@param httpCfg common.HTTPServerConfig - HTTP server configuration
	@param metrics goutils.MetricsCollector - metrics collection agent
	@param collectionEndpoint string - endpoint to expose the metrics on
	@param maxRESTRequests int - max number of parallel requests to support
	@returns HTTP server instance
*/
func BuildMetricsCollectionServer(
	httpCfg common.HTTPServerConfig,
	metrics goutils.MetricsCollector,
	collectionEndpoint string,
	maxRESTRequests int,
) (*http.Server, error) {
	router := mux.NewRouter()
	metrics.ExposeCollectionEndpoint(router, collectionEndpoint, maxRESTRequests)

	serverListen := fmt.Sprintf("%s:%d", httpCfg.ListenOn, httpCfg.Port)
	httpSrv := &http.Server{
		Addr:         serverListen,
		WriteTimeout: time.Second * time.Duration(httpCfg.Timeouts.WriteTimeout),
		ReadTimeout:  time.Second * time.Duration(httpCfg.Timeouts.ReadTimeout),
		IdleTimeout:  time.Second * time.Duration(httpCfg.Timeouts.IdleTimeout),
		Handler:      router,
	}

	return httpSrv, nil
}
