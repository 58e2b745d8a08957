package common

import (
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"
)

// ===============================================================================
// Common Submodule Config

// HTTPServerTimeoutConfig defines the timeout settings for HTTP server
type HTTPServerTimeoutConfig struct {
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body in seconds. A zero or negative
	// value means there will be no timeout.
	ReadTimeout int `mapstructure:"read" json:"read" validate:"gte=0"`
	// WriteTimeout is the maximum duration before timing out
	// writes of the response in seconds. A zero or negative value
	// means there will be no timeout.
	WriteTimeout int `mapstructure:"write" json:"write" validate:"gte=0"`
	// IdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled in seconds. If
	// IdleTimeout is zero, the value of ReadTimeout is used. If
	// both are zero, there is no timeout.
	IdleTimeout int `mapstructure:"idle" json:"idle" validate:"gte=0"`
}

// HTTPServerConfig defines the HTTP server parameters
type HTTPServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listenOn" json:"listenOn" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"appPort" json:"appPort" validate:"required,gt=0,lt=65536"`
	// Timeouts sets the HTTP timeout settings
	Timeouts HTTPServerTimeoutConfig `mapstructure:"timeoutSecs" json:"timeoutSecs" validate:"required,dive"`
}

// HTTPRequestLogging defines HTTP request logging parameters
type HTTPRequestLogging struct {
	// LogLevel output request logs at this level
	LogLevel goutils.HTTPRequestLogLevel `mapstructure:"logLevel" json:"logLevel" validate:"oneof=warn info debug"`
	// HealthLogLevel output health check logs at this level
	HealthLogLevel goutils.HTTPRequestLogLevel `mapstructure:"healthLogLevel" json:"healthLogLevel" validate:"oneof=warn info debug"`
	// RequestIDHeader is the HTTP header containing the API request ID
	RequestIDHeader string `mapstructure:"requestIDHeader" json:"requestIDHeader"`
	// DoNotLogHeaders is the list of headers to not include in logging metadata
	DoNotLogHeaders []string `mapstructure:"skipHeaders" json:"skipHeaders"`
}

// EndpointConfig defines API endpoint config
type EndpointConfig struct {
	// PathPrefix is the end-point path prefix for the APIs
	PathPrefix string `mapstructure:"pathPrefix" json:"pathPrefix" validate:"required"`
}

// APIConfig defines API settings for a submodule
type APIConfig struct {
	// Endpoint sets API endpoint related parameters
	Endpoint EndpointConfig `mapstructure:"endPoint" json:"endPoint" validate:"required,dive"`
	// RequestLogging sets API request logging parameters
	RequestLogging HTTPRequestLogging `mapstructure:"requestLogging" json:"requestLogging" validate:"required,dive"`
}

// APIServerConfig defines HTTP API / server parameters
type APIServerConfig struct {
	// Enabled whether this API is enabled
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"service" json:"service" validate:"required_with=Enabled,dive"`
	// APIs defines API settings for a submodule
	APIs APIConfig `mapstructure:"apis" json:"apis" validate:"required_with=Enabled,dive"`
}

// HTTPClientRetryConfig HTTP client config retry configuration
type HTTPClientRetryConfig struct {
	// MaxAttempts max number of retry attempts
	MaxAttempts int `mapstructure:"maxAttempts" json:"maxAttempts" validate:"gte=0"`
	// InitWaitTimeInSec wait time before the first wait retry
	InitWaitTimeInSec uint32 `mapstructure:"initialWaitTimeInSec" json:"initialWaitTimeInSec" validate:"gte=1"`
	// MaxWaitTimeInSec max wait time
	MaxWaitTimeInSec uint32 `mapstructure:"maxWaitTimeInSec" json:"maxWaitTimeInSec" validate:"gte=1"`
}

// InitWaitTime convert InitWaitTimeInSec to time.Duration
func (c HTTPClientRetryConfig) InitWaitTime() time.Duration {
	return time.Second * time.Duration(c.InitWaitTimeInSec)
}

// MaxWaitTime convert MaxWaitTimeInSec to time.Duration
func (c HTTPClientRetryConfig) MaxWaitTime() time.Duration {
	return time.Second * time.Duration(c.MaxWaitTimeInSec)
}

// HTTPClientConfig HTTP client config targeting `go-resty`
type HTTPClientConfig struct {
	// RequestTimeoutInSec max duration for one request in secs. Never zero; an
	// absent timeout is not a safe default for sync transfers.
	RequestTimeoutInSec uint32 `mapstructure:"requestTimeoutInSec" json:"requestTimeoutInSec" validate:"required,gte=1"`
	// Retry client retry configuration. See https://github.com/go-resty/resty#retries for details
	Retry HTTPClientRetryConfig `mapstructure:"retry" json:"retry" validate:"required,dive"`
}

// RequestTimeout convert RequestTimeoutInSec to time.Duration
func (c HTTPClientConfig) RequestTimeout() time.Duration {
	return time.Second * time.Duration(c.RequestTimeoutInSec)
}

// MetricsFeatureConfig metrics framework features config
type MetricsFeatureConfig struct {
	// EnableAppMetrics whether to enable Golang application metrics
	EnableAppMetrics bool `mapstructure:"enableAppMetrics" json:"enableAppMetrics"`
	// EnableHTTPMetrics whether to enable HTTP request tracking metrics
	EnableHTTPMetrics bool `mapstructure:"enableHTTPMetrics" json:"enableHTTPMetrics"`
	// EnableTaskProcessorMetrics whether to enable task processor operational metrics
	EnableTaskProcessorMetrics bool `mapstructure:"enableTaskProcessorMetrics" json:"enableTaskProcessorMetrics"`
}

// MetricsConfig application metrics config
type MetricsConfig struct {
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"service" json:"service" validate:"required_with=Enabled,dive"`
	// MetricsEndpoint path to host the Prometheus metrics endpoint
	MetricsEndpoint string `mapstructure:"metricsEndpoint" json:"metricsEndpoint" validate:"required"`
	// MaxRequests max number of metrics requests in parallel to support
	MaxRequests int `mapstructure:"maxRequests" json:"maxRequests" validate:"gte=1"`
	// Features metrics framework features to enable
	Features MetricsFeatureConfig `mapstructure:"features" json:"features" validate:"gte=1"`
}

// ===============================================================================
// Persistence Configuration Structures

// PostgresSSLConfig Postgres connection SSL config
type PostgresSSLConfig struct {
	// Enabled whether to enable SSL when connecting to Postgres
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// CAFile the CA cert file to challenge remote with
	CAFile *string `mapstructure:"caFile" json:"caFile,omitempty" validate:"omitempty,file"`
}

// PostgresConfig Postgres connection config
type PostgresConfig struct {
	// Host Postgres server host
	Host string `mapstructure:"host" json:"host" validate:"required"`
	// Port Postgres server port
	Port uint16 `mapstructure:"port" json:"port" validate:"lte=65535,gte=0"`
	// Database the specific database to use
	Database string `mapstructure:"db" json:"db" validate:"required"`
	// User the user to connect with
	User string `mapstructure:"user" json:"user" validate:"required"`
	// SSL the connection SSL settings
	SSL PostgresSSLConfig `mapstructure:"ssl" json:"ssl" validate:"required,dive"`
}

// SqliteConfig sqlite config
type SqliteConfig struct {
	// DBFile the sqlite DB file path
	DBFile string `mapstructure:"db" json:"db" validate:"required"`
}

// LedgerConfig sync transfer ledger persistence config
type LedgerConfig struct {
	// Sqlite sqlite ledger configuration. The default backend.
	Sqlite SqliteConfig `mapstructure:"sqlite" json:"sqlite" validate:"required,dive"`
	// Postgres optional Postgres ledger configuration. Takes precedence over
	// sqlite when defined.
	Postgres *PostgresConfig `mapstructure:"postgres,omitempty" json:"postgres,omitempty" validate:"omitempty,dive"`
}

// S3Credentials S3 credentials
type S3Credentials struct {
	// AccessKey user access key
	AccessKey string
	// SecretAccessKey user secret access key
	SecretAccessKey string
}

// S3Config S3 object store config
type S3Config struct {
	// ServerEndpoint S3 server endpoint
	ServerEndpoint string `mapstructure:"endpoint" json:"endpoint" validate:"required"`
	// UseTLS whether to TLS when connecting
	UseTLS bool `mapstructure:"useTLS" json:"useTLS"`
	// Creds S3 credentials
	Creds *S3Credentials `mapstructure:"creds" json:"creds,omitempty" validate:"omitempty,dive"`
}

// ===============================================================================
// Manifest Vault Configuration Structures

// MemcachedInfoCacheConfig memcached video info cache config
type MemcachedInfoCacheConfig struct {
	// Servers list of memcached servers to establish connection with
	Servers []string `mapstructure:"servers" json:"servers" validate:"required,gte=1"`
}

// VideoInfoCacheConfig read cache config covering the vault's VideoInfo projection
type VideoInfoCacheConfig struct {
	// MaxEntries max number of cached video info entries
	MaxEntries int `mapstructure:"maxEntries" json:"maxEntries" validate:"gte=1"`
	// EntryTTLInSec access based entry retention in secs
	EntryTTLInSec uint32 `mapstructure:"entryTTLInSec" json:"entryTTLInSec" validate:"gte=30"`
	// RetentionCheckIntInSec cache entry retention check interval in secs
	RetentionCheckIntInSec uint32 `mapstructure:"retentionCheckIntInSec" json:"retentionCheckIntInSec" validate:"gte=10,lte=300"`
	// Memcached optional memcached backend. When unset, an in-process cache is used.
	Memcached *MemcachedInfoCacheConfig `mapstructure:"memcached,omitempty" json:"memcached,omitempty" validate:"omitempty,dive"`
}

// EntryTTL convert EntryTTLInSec to time.Duration
func (c VideoInfoCacheConfig) EntryTTL() time.Duration {
	return time.Second * time.Duration(c.EntryTTLInSec)
}

// RetentionCheckInt convert RetentionCheckIntInSec to time.Duration
func (c VideoInfoCacheConfig) RetentionCheckInt() time.Duration {
	return time.Second * time.Duration(c.RetentionCheckIntInSec)
}

// VaultConfig local manifest vault config
type VaultConfig struct {
	// Dir directory holding one manifest file per video
	Dir string `mapstructure:"dir" json:"dir" validate:"required"`
	// WatchForExternalChanges whether to watch the vault directory for changes
	// made by other processes
	WatchForExternalChanges bool `mapstructure:"watchForExternalChanges" json:"watchForExternalChanges"`
	// InfoCache VideoInfo read cache settings
	InfoCache VideoInfoCacheConfig `mapstructure:"infoCache" json:"infoCache" validate:"required,dive"`
}

// ArtifactCacheConfig thumbnail / derived artifact cache config
type ArtifactCacheConfig struct {
	// Dir directory the cache materializes artifact files into. Owned
	// exclusively by the cache.
	Dir string `mapstructure:"dir" json:"dir" validate:"required"`
	// MaxTotalBytes total resident byte ceiling across all cached artifacts
	MaxTotalBytes int64 `mapstructure:"maxTotalBytes" json:"maxTotalBytes" validate:"gte=1048576"`
	// EntryTTLInSec access based entry retention in secs
	EntryTTLInSec uint32 `mapstructure:"entryTTLInSec" json:"entryTTLInSec" validate:"gte=60"`
	// RetentionCheckIntInSec cache entry retention check interval in secs
	RetentionCheckIntInSec uint32 `mapstructure:"retentionCheckIntInSec" json:"retentionCheckIntInSec" validate:"gte=10,lte=3600"`
}

// EntryTTL convert EntryTTLInSec to time.Duration
func (c ArtifactCacheConfig) EntryTTL() time.Duration {
	return time.Second * time.Duration(c.EntryTTLInSec)
}

// RetentionCheckInt convert RetentionCheckIntInSec to time.Duration
func (c ArtifactCacheConfig) RetentionCheckInt() time.Duration {
	return time.Second * time.Duration(c.RetentionCheckIntInSec)
}

// ===============================================================================
// Remote Host Configuration Structures

// ManifestHostConfig one remote manifest host
type ManifestHostConfig struct {
	// Type host protocol. Either a clipsync REST endpoint or a WebDAV server.
	Type string `mapstructure:"type" json:"type" validate:"required,oneof=rest webdav"`
	// BaseURL host base URL
	BaseURL string `mapstructure:"baseURL" json:"baseURL" validate:"required,url"`
	// RequestIDHeader request ID header name to set on outbound requests
	RequestIDHeader string `mapstructure:"requestIDHeader" json:"requestIDHeader" validate:"required"`
	// BearerTokenEnv name of the environment variable holding the bearer
	// token for outbound requests. Leave empty for hosts without
	// authentication.
	BearerTokenEnv string `mapstructure:"bearerTokenEnv" json:"bearerTokenEnv"`
	// Client HTTP client config. This is designed to support `go-resty`
	Client HTTPClientConfig `mapstructure:"client" json:"client" validate:"required,dive"`
}

// BlobHostConfig one remote video / thumbnail blob host
type BlobHostConfig struct {
	// Name host entry name, used in logs and host preference reporting
	Name string `mapstructure:"name" json:"name" validate:"required"`
	// Type host protocol. Either a multipart REST upload endpoint or S3.
	Type string `mapstructure:"type" json:"type" validate:"required,oneof=rest s3"`
	// BaseURL host base URL. Required for REST hosts.
	BaseURL string `mapstructure:"baseURL" json:"baseURL" validate:"omitempty,url"`
	// RequestIDHeader request ID header name to set on outbound requests
	RequestIDHeader string `mapstructure:"requestIDHeader" json:"requestIDHeader"`
	// BearerTokenEnv name of the environment variable holding the bearer
	// token for outbound requests. REST hosts only; S3 hosts authenticate
	// through their S3 credentials.
	BearerTokenEnv string `mapstructure:"bearerTokenEnv" json:"bearerTokenEnv"`
	// Client HTTP client config for REST hosts
	Client *HTTPClientConfig `mapstructure:"client,omitempty" json:"client,omitempty" validate:"omitempty,dive"`
	// S3 object store config. Required for S3 hosts.
	S3 *S3Config `mapstructure:"s3,omitempty" json:"s3,omitempty" validate:"omitempty,dive"`
	// StorageBucket the bucket to place uploaded blobs in. S3 hosts only.
	StorageBucket string `mapstructure:"bucket" json:"bucket"`
	// StorageObjectPrefix the prefix used when defining blob object keys. S3 hosts only.
	StorageObjectPrefix string `mapstructure:"objectPrefix" json:"objectPrefix"`
}

// ===============================================================================
// Sync Engine Configuration Structures

// SyncConfig sync engine settings
type SyncConfig struct {
	// PassIntInSec interval in secs between automatic sync passes. Zero
	// disables automatic passes; syncs then run on request only.
	PassIntInSec uint32 `mapstructure:"passIntInSec" json:"passIntInSec" validate:"lte=86400"`
	// MaxInFlight max number of per-video transfers to run in parallel
	MaxInFlight int `mapstructure:"maxInFlightTransfers" json:"maxInFlightTransfers" validate:"required,gte=1"`
	// MaxTransferAttempts max attempts per (video, direction) before the
	// transfer is left failed pending manual retry
	MaxTransferAttempts int `mapstructure:"maxTransferAttempts" json:"maxTransferAttempts" validate:"required,gte=1"`
	// FetchBlobsOnPull whether a pull also materializes video / thumbnail
	// blobs into the local caches
	FetchBlobsOnPull bool `mapstructure:"fetchBlobsOnPull" json:"fetchBlobsOnPull"`
}

// PassInt convert PassIntInSec to time.Duration
func (c SyncConfig) PassInt() time.Duration {
	return time.Second * time.Duration(c.PassIntInSec)
}

// ===============================================================================
// Event Broadcast Configuration Structures

// PubSubConfig PubSub topic config
type PubSubConfig struct {
	// GCPProject the GCP project to operate in
	GCPProject string `mapstructure:"gcpProject" json:"gcpProject" validate:"required"`
	// Topic the pubsub topic to publish on
	Topic string `mapstructure:"topic" json:"topic" validate:"required"`
}

// BroadcastSystemConfig cross-device event relay configuration
type BroadcastSystemConfig struct {
	// PubSub broadcast PubSub settings
	PubSub PubSubConfig `mapstructure:"pubsub" json:"pubsub" validate:"required,dive"`
}

// ===============================================================================
// Complete Configuration Structures

// AgentNodeConfig define sync agent node settings and behavior
type AgentNodeConfig struct {
	// Metrics metrics framework configuration
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics" validate:"required,dive"`
	// Vault local manifest vault configuration
	Vault VaultConfig `mapstructure:"vault" json:"vault" validate:"required,dive"`
	// ArtifactCache thumbnail cache configuration
	ArtifactCache ArtifactCacheConfig `mapstructure:"artifactCache" json:"artifactCache" validate:"required,dive"`
	// ManifestHost remote manifest host configuration
	ManifestHost ManifestHostConfig `mapstructure:"manifestHost" json:"manifestHost" validate:"required,dive"`
	// BlobHosts ordered blob host preference list. Uploads use the first
	// capable host that succeeds.
	BlobHosts []BlobHostConfig `mapstructure:"blobHosts" json:"blobHosts" validate:"required,gte=1,dive"`
	// Sync sync engine configuration
	Sync SyncConfig `mapstructure:"sync" json:"sync" validate:"required,dive"`
	// Ledger sync transfer ledger configuration
	Ledger LedgerConfig `mapstructure:"ledger" json:"ledger" validate:"required,dive"`
	// APIServer control REST API config
	APIServer APIServerConfig `mapstructure:"api" json:"api" validate:"required,dive"`
	// BroadcastSystem optional cross-device event relay configuration
	BroadcastSystem *BroadcastSystemConfig `mapstructure:"broadcast,omitempty" json:"broadcast,omitempty" validate:"omitempty,dive"`
}

// ===============================================================================
// Default Configuration Setter

// InstallDefaultAgentNodeConfigValues installs default config parameters in
// viper for the sync agent node
func InstallDefaultAgentNodeConfigValues() {
	// Default metrics config
	viper.SetDefault("metrics.metricsEndpoint", "/metrics")
	viper.SetDefault("metrics.maxRequests", 4)
	// Default metrics features config
	viper.SetDefault("metrics.features.enableAppMetrics", false)
	viper.SetDefault("metrics.features.enableHTTPMetrics", true)
	viper.SetDefault("metrics.features.enableTaskProcessorMetrics", true)
	// Default metrics HTTP server config
	viper.SetDefault("metrics.service.listenOn", "0.0.0.0")
	viper.SetDefault("metrics.service.appPort", 3001)
	viper.SetDefault("metrics.service.timeoutSecs.read", 60)
	viper.SetDefault("metrics.service.timeoutSecs.write", 60)
	viper.SetDefault("metrics.service.timeoutSecs.idle", 60)

	// Default vault config
	viper.SetDefault("vault.watchForExternalChanges", true)
	viper.SetDefault("vault.infoCache.maxEntries", 100)
	viper.SetDefault("vault.infoCache.entryTTLInSec", 900)
	viper.SetDefault("vault.infoCache.retentionCheckIntInSec", 60)

	// Default artifact cache config
	viper.SetDefault("artifactCache.maxTotalBytes", 25*1024*1024)
	viper.SetDefault("artifactCache.entryTTLInSec", 3600)
	viper.SetDefault("artifactCache.retentionCheckIntInSec", 300)

	// Default manifest host config
	viper.SetDefault("manifestHost.type", "rest")
	viper.SetDefault("manifestHost.requestIDHeader", "X-Request-ID")
	viper.SetDefault("manifestHost.client.requestTimeoutInSec", 60)
	viper.SetDefault("manifestHost.client.retry.maxAttempts", 5)
	viper.SetDefault("manifestHost.client.retry.initialWaitTimeInSec", 2)
	viper.SetDefault("manifestHost.client.retry.maxWaitTimeInSec", 30)

	// Default sync engine config
	viper.SetDefault("sync.passIntInSec", 300)
	viper.SetDefault("sync.maxInFlightTransfers", 4)
	viper.SetDefault("sync.maxTransferAttempts", 5)
	viper.SetDefault("sync.fetchBlobsOnPull", true)

	// Default ledger config
	viper.SetDefault("ledger.sqlite.db", fmt.Sprintf("/tmp/clipsync-agent-%s.db", ulid.Make().String()))

	// Default control API server config
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.service.listenOn", "0.0.0.0")
	viper.SetDefault("api.service.appPort", 8080)
	viper.SetDefault("api.service.timeoutSecs.read", 60)
	viper.SetDefault("api.service.timeoutSecs.write", 60)
	viper.SetDefault("api.service.timeoutSecs.idle", 60)
	viper.SetDefault("api.apis.endPoint.pathPrefix", "/")
	viper.SetDefault("api.apis.requestLogging.logLevel", "warn")
	viper.SetDefault("api.apis.requestLogging.healthLogLevel", "debug")
	viper.SetDefault("api.apis.requestLogging.requestIDHeader", "X-Request-ID")
	viper.SetDefault("api.apis.requestLogging.skipHeaders", []string{
		"WWW-Authenticate", "Authorization", "Proxy-Authenticate", "Proxy-Authorization",
	})
}
