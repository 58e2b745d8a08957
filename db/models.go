package db

import (
	"time"
)

// Transfer directions
const (
	// TransferDirectionUpload local video pushed to the remote host
	TransferDirectionUpload = "upload"
	// TransferDirectionDownload remote video pulled into the local store
	TransferDirectionDownload = "download"
)

// Transfer states
const (
	// TransferStateInflight transfer currently running
	TransferStateInflight = "inflight"
	// TransferStateSuccess transfer completed
	TransferStateSuccess = "success"
	// TransferStateFailed transfer failed
	TransferStateFailed = "failed"
)

// TransferRecord ledger entry covering one per-video transfer attempt
type TransferRecord struct {
	// ID transfer entry ID
	ID string `gorm:"column:id;primaryKey" json:"id"`
	// VideoID the video being transferred
	VideoID string `gorm:"column:video_id;index:transfer_video_index" json:"videoId"`
	// Direction transfer direction
	Direction string `gorm:"column:direction;index:transfer_video_index" json:"direction"`
	// State transfer state
	State string `gorm:"column:state" json:"state"`
	// BlobHost name of the blob host used, if any
	BlobHost string `gorm:"column:blob_host" json:"blobHost,omitempty"`
	// Detail failure detail, if any
	Detail string `gorm:"column:detail" json:"detail,omitempty"`
	// StartedAt when the transfer started
	StartedAt time.Time `gorm:"column:started_at" json:"startedAt"`
	// FinishedAt when the transfer reached a terminal state
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finishedAt,omitempty"`
	CreatedAt  time.Time  `json:"-"`
	UpdatedAt  time.Time  `json:"-"`
}

// TableName hard code table name
func (TransferRecord) TableName() string {
	return "transfers"
}

// Sync pass degraded marker values. sqlite has no native bool, so the flag is
// stored as an int.
const (
	syncPassNominal  = -1
	syncPassDegraded = 1
)

// SyncPassRecord ledger entry covering one reconciliation pass
type SyncPassRecord struct {
	// ID sync pass entry ID
	ID string `gorm:"column:id;primaryKey" json:"id"`
	// StartedAt when the pass started
	StartedAt time.Time `gorm:"column:started_at" json:"startedAt"`
	// FinishedAt when the pass completed
	FinishedAt time.Time `gorm:"column:finished_at" json:"finishedAt"`
	// Uploads number of uploads performed
	Uploads int `gorm:"column:uploads" json:"uploads"`
	// Downloads number of downloads performed
	Downloads int `gorm:"column:downloads" json:"downloads"`
	// Failures number of failed transfers
	Failures int `gorm:"column:failures" json:"failures"`
	// Degraded whether the pass ran degraded. Stored as -1 / 1.
	Degraded int `gorm:"column:degraded" json:"-"`
	// Detail degradation detail, if any
	Detail    string    `gorm:"column:detail" json:"detail,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName hard code table name
func (SyncPassRecord) TableName() string {
	return "sync_passes"
}

// WasDegraded whether the pass ran without remote host connectivity
func (r SyncPassRecord) WasDegraded() bool {
	return r.Degraded == syncPassDegraded
}
