package utils

// Custom metrics names
const (
	// MetricsNameSyncPassCount sync pass counter
	MetricsNameSyncPassCount = "clipsync_sync_pass_total"
	// MetricsNameSyncTransferCount per video transfer counter
	MetricsNameSyncTransferCount = "clipsync_transfer_total"
)
