package common

import (
	"time"

	"github.com/google/uuid"
)

// SyncEventKind classification of sync engine notifications
type SyncEventKind string

// Sync event kinds
const (
	// SyncEventTransferStarted a per-video transfer began
	SyncEventTransferStarted SyncEventKind = "transfer-started"
	// SyncEventTransferProgress a per-video transfer progressed
	SyncEventTransferProgress SyncEventKind = "transfer-progress"
	// SyncEventTransferSucceeded a per-video transfer completed
	SyncEventTransferSucceeded SyncEventKind = "transfer-succeeded"
	// SyncEventTransferFailed a per-video transfer failed
	SyncEventTransferFailed SyncEventKind = "transfer-failed"
	// SyncEventRepositoryChanged the local manifest vault content changed
	SyncEventRepositoryChanged SyncEventKind = "repository-changed"
	// SyncEventDegradedMode the remote index was unreachable; operating local-only
	SyncEventDegradedMode SyncEventKind = "sync-degraded"
)

// SyncEvent one sync engine notification, keyed by video ID so listeners can
// filter per entity
type SyncEvent struct {
	// Kind event classification
	Kind SyncEventKind `json:"kind" validate:"required"`
	// VideoID subject video. Nil UUID for events without a subject.
	VideoID uuid.UUID `json:"video_id"`
	// Percent transfer completion for progress events
	Percent int `json:"percent,omitempty" validate:"gte=0,lte=100"`
	// Message human readable detail. Error message for failure events.
	Message string `json:"message,omitempty"`
	// Timestamp when the event occurred
	Timestamp time.Time `json:"timestamp"`
}
