package bin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alwitt/clipsync/api"
	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/clipsync/db"
	"github.com/alwitt/clipsync/mp4"
	"github.com/alwitt/clipsync/remote"
	"github.com/alwitt/clipsync/syncer"
	"github.com/alwitt/clipsync/utils"
	"github.com/alwitt/clipsync/vault"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"gorm.io/gorm/logger"
)

// AgentNode sync agent node mirroring one local video repository against a remote host
type AgentNode struct {
	nodeRuntimeCtxt context.Context
	ctxtCancel      context.CancelFunc
	psClient        goutils.PubSubClient
	infoCache       vault.VideoInfoCache
	store           vault.ManifestStore
	thumbCache      utils.ArtifactCache
	eventHub        utils.SyncEventHub
	engine          syncer.SyncEngine
	APIServer       *http.Server
	MetricsServer   *http.Server
}

/*
Cleanup stop and clean up the sync agent node

	@param ctxt context.Context - execution context
*/
func (n AgentNode) Cleanup(ctxt context.Context) error {
	n.ctxtCancel()
	if err := n.engine.Stop(ctxt); err != nil {
		return err
	}
	if err := n.store.Stop(ctxt); err != nil {
		return err
	}
	if err := n.infoCache.Stop(ctxt); err != nil {
		return err
	}
	if err := n.thumbCache.Stop(ctxt); err != nil {
		return err
	}
	if n.psClient != nil {
		return n.psClient.Close(ctxt)
	}
	return nil
}

/*
DefineAgentNode setup new sync agent node

	@param parentCtxt context.Context - parent execution context
	@param nodeName string - agent node name
	@param config common.AgentNodeConfig - agent node configuration
	@param psqlPassword string - Postgres SQL user password, if a Postgres ledger is used
	@returns new sync agent node
*/
func DefineAgentNode(
	parentCtxt context.Context,
	nodeName string,
	config common.AgentNodeConfig,
	psqlPassword string,
) (AgentNode, error) {
	/*
		Steps for preparing the agent are

		* Prepare metrics collection agent
		* Prepare transfer ledger
		* Prepare video info cache and manifest vault
		* Prepare thumbnail artifact cache
		* Prepare remote manifest host client
		* Prepare remote blob host clients
		* Prepare local sync event hub
			* Prepare PubSub broadcaster, if cross-device relay is configured
		* Prepare sync engine
		* Prepare sync API HTTP server
		* Prepare metrics collection HTTP server
	*/

	logTags := log.Fields{
		"module": "global", "component": "agent-node", "instance": nodeName,
	}

	theNode := AgentNode{}
	theNode.nodeRuntimeCtxt, theNode.ctxtCancel = context.WithCancel(parentCtxt)

	// Define metrics collection agent
	metrics, err := goutils.GetNewMetricsCollector(
		log.Fields{"module": "go-utils", "component": "metrics-core"},
		[]goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define metrics collection agent")
		return theNode, err
	}
	if config.Metrics.Features.EnableAppMetrics {
		metrics.InstallApplicationMetrics()
	}

	// Define the transfer ledger
	var ledgerDialector = db.GetSqliteDialector(config.Ledger.Sqlite.DBFile)
	if config.Ledger.Postgres != nil {
		ledgerDialector, err = db.GetPostgresDialector(*config.Ledger.Postgres, psqlPassword)
		if err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to define Postgres connection DSN")
			return theNode, err
		}
	}
	ledger, err := db.NewManager(ledgerDialector, logger.Error)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define transfer ledger")
		return theNode, err
	}

	// Define video info cache
	if config.Vault.InfoCache.Memcached != nil {
		theNode.infoCache, err = vault.NewMemcachedVideoInfoCache(
			config.Vault.InfoCache.Memcached.Servers,
		)
	} else {
		theNode.infoCache, err = vault.NewLocalVideoInfoCache(
			theNode.nodeRuntimeCtxt,
			config.Vault.InfoCache.MaxEntries,
			config.Vault.InfoCache.RetentionCheckInt(),
		)
	}
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define video info cache")
		return theNode, err
	}

	// Define local sync event hub
	theNode.eventHub, err = utils.NewSyncEventHub()
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define sync event hub")
		return theNode, err
	}

	// Define the manifest vault. Changes made by other processes surface on
	// the event hub as repository change events.
	theNode.store, err = vault.NewManifestStore(
		theNode.nodeRuntimeCtxt,
		config.Vault.Dir,
		theNode.infoCache,
		config.Vault.InfoCache.EntryTTL(),
		config.Vault.WatchForExternalChanges,
		func(ctxt context.Context, videoID uuid.UUID) {
			theNode.eventHub.Notify(ctxt, common.SyncEvent{
				Kind: common.SyncEventRepositoryChanged, VideoID: videoID,
			})
		},
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define manifest vault")
		return theNode, err
	}

	// Define thumbnail artifact cache
	theNode.thumbCache, err = utils.NewArtifactCache(
		theNode.nodeRuntimeCtxt,
		config.ArtifactCache.Dir,
		config.ArtifactCache.MaxTotalBytes,
		config.ArtifactCache.EntryTTL(),
		config.ArtifactCache.RetentionCheckInt(),
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define thumbnail artifact cache")
		return theNode, err
	}

	// Define remote manifest host client
	manifestHostClient, err := utils.DefineHTTPClient(config.ManifestHost.Client)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define manifest host HTTP client")
		return theNode, err
	}
	var manifestHostCreds remote.CredentialProvider
	if config.ManifestHost.BearerTokenEnv != "" {
		manifestHostCreds = remote.EnvCredentialProvider(config.ManifestHost.BearerTokenEnv)
	}
	var manifestHost remote.ManifestHost
	switch config.ManifestHost.Type {
	case "webdav":
		manifestHost, err = remote.NewWebDAVManifestHost(
			manifestHostClient,
			config.ManifestHost.BaseURL,
			config.ManifestHost.RequestIDHeader,
			manifestHostCreds,
		)
	default:
		manifestHost, err = remote.NewRestManifestHost(
			manifestHostClient,
			config.ManifestHost.BaseURL,
			config.ManifestHost.RequestIDHeader,
			manifestHostCreds,
		)
	}
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define remote manifest host client")
		return theNode, err
	}

	// Define remote blob host clients, in preference order
	blobHosts := []remote.BlobHost{}
	for _, hostConfig := range config.BlobHosts {
		var blobHost remote.BlobHost
		switch hostConfig.Type {
		case "s3":
			if hostConfig.S3 == nil || hostConfig.StorageBucket == "" {
				err = fmt.Errorf("blob host '%s' missing S3 settings", hostConfig.Name)
				log.WithError(err).WithFields(logTags).Error("Invalid blob host config")
				return theNode, err
			}
			var s3Client utils.S3Client
			s3Client, err = utils.NewS3Client(*hostConfig.S3)
			if err != nil {
				log.WithError(err).WithFields(logTags).Error("Failed to create S3 client")
				return theNode, err
			}
			blobHost, err = remote.NewS3BlobHost(
				parentCtxt,
				s3Client,
				hostConfig.Name,
				hostConfig.StorageBucket,
				hostConfig.StorageObjectPrefix,
			)
		default:
			if hostConfig.Client == nil || hostConfig.BaseURL == "" {
				err = fmt.Errorf("blob host '%s' missing REST settings", hostConfig.Name)
				log.WithError(err).WithFields(logTags).Error("Invalid blob host config")
				return theNode, err
			}
			var hostClient *resty.Client
			hostClient, err = utils.DefineHTTPClient(*hostConfig.Client)
			if err != nil {
				log.WithError(err).WithFields(logTags).Error("Failed to define blob host HTTP client")
				return theNode, err
			}
			var hostCreds remote.CredentialProvider
			if hostConfig.BearerTokenEnv != "" {
				hostCreds = remote.EnvCredentialProvider(hostConfig.BearerTokenEnv)
			}
			blobHost, err = remote.NewRestBlobHost(
				hostClient,
				hostConfig.Name,
				hostConfig.BaseURL,
				hostConfig.RequestIDHeader,
				hostCreds,
			)
		}
		if err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				Errorf("Failed to define blob host '%s'", hostConfig.Name)
			return theNode, err
		}
		blobHosts = append(blobHosts, blobHost)
	}

	// Define PubSub message broadcaster client, if cross-device relay is configured
	var broadcaster utils.Broadcaster
	if config.BroadcastSystem != nil {
		theNode.psClient, err = buildPubSubClient(
			parentCtxt, config.BroadcastSystem.PubSub.GCPProject,
		)
		if err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to create PubSub client")
			return theNode, err
		}
		broadcaster, err = utils.NewPubSubBroadcaster(
			parentCtxt, theNode.psClient, config.BroadcastSystem.PubSub.Topic,
		)
		if err != nil {
			log.
				WithError(err).
				WithFields(logTags).
				Error("Failed to create PubSub message broadcast client")
			return theNode, err
		}
	}

	// Define MP4 container patcher
	patcher, err := mp4.NewContainerPatcher()
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define MP4 container patcher")
		return theNode, err
	}

	// Define sync engine
	theNode.engine, err = syncer.NewSyncEngine(theNode.nodeRuntimeCtxt, syncer.SyncEngineParams{
		Store:        theNode.store,
		ManifestHost: manifestHost,
		BlobHosts:    blobHosts,
		Ledger:       ledger,
		ThumbCache:   theNode.thumbCache,
		EventHub:     theNode.eventHub,
		Broadcaster:  broadcaster,
		Patcher:      patcher,
		Config:       config.Sync,
		Metrics:      metrics,
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define sync engine")
		return theNode, err
	}

	// Define sync API HTTP server
	theNode.APIServer, err = api.BuildSyncAPIServer(
		config.APIServer, theNode.store, theNode.engine, ledger,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to create sync API HTTP server")
		return theNode, err
	}

	// Define metrics collection HTTP server
	theNode.MetricsServer, err = api.BuildMetricsCollectionServer(
		config.Metrics.Server, metrics, config.Metrics.MetricsEndpoint, config.Metrics.MaxRequests,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to create metrics collection HTTP server")
		return theNode, err
	}

	return theNode, nil
}
