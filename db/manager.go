package db

import (
	"context"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SyncPassSummary outcome of one reconciliation pass, for recording
type SyncPassSummary struct {
	// StartedAt when the pass started
	StartedAt time.Time
	// FinishedAt when the pass completed
	FinishedAt time.Time
	// Uploads number of uploads performed
	Uploads int
	// Downloads number of downloads performed
	Downloads int
	// Failures number of failed transfers
	Failures int
	// Degraded whether the pass ran without remote host connectivity
	Degraded bool
	// Detail degradation detail, if any
	Detail string
}

// PersistenceManager transfer ledger persistence
type PersistenceManager interface {
	/*
		Ready check whether the ledger is ready

			@param ctxt context.Context - execution context
	*/
	Ready(ctxt context.Context) error

	/*
		RecordTransferStart record the start of one transfer attempt

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video being transferred
			@param direction string - transfer direction
			@param blobHost string - name of the blob host used, if any
			@returns transfer entry ID
	*/
	RecordTransferStart(
		ctxt context.Context, videoID uuid.UUID, direction string, blobHost string,
	) (string, error)

	/*
		MarkTransferResult record the terminal state of one transfer attempt

			@param ctxt context.Context - execution context
			@param transferID string - the transfer entry ID
			@param success bool - whether the transfer succeeded
			@param detail string - failure detail, if any
	*/
	MarkTransferResult(ctxt context.Context, transferID string, success bool, detail string) error

	/*
		GetLatestTransfer fetch the most recent transfer of a video in one direction

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@param direction string - transfer direction
			@returns the transfer entry
	*/
	GetLatestTransfer(
		ctxt context.Context, videoID uuid.UUID, direction string,
	) (TransferRecord, error)

	/*
		ListTransfers list all recorded transfers of a video, most recent first

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@returns the transfer entries
	*/
	ListTransfers(ctxt context.Context, videoID uuid.UUID) ([]TransferRecord, error)

	/*
		FailedTransferStreak count failed attempts of a (video, direction) since
		the last success

			@param ctxt context.Context - execution context
			@param videoID uuid.UUID - the video ID
			@param direction string - transfer direction
			@returns consecutive failure count
	*/
	FailedTransferStreak(ctxt context.Context, videoID uuid.UUID, direction string) (int, error)

	/*
		RecordSyncPass record the outcome of one reconciliation pass

			@param ctxt context.Context - execution context
			@param summary SyncPassSummary - the pass outcome
	*/
	RecordSyncPass(ctxt context.Context, summary SyncPassSummary) error

	/*
		ListSyncPasses list recorded reconciliation passes, most recent first

			@param ctxt context.Context - execution context
			@param limit int - max entries to return
			@returns the pass entries
	*/
	ListSyncPasses(ctxt context.Context, limit int) ([]SyncPassRecord, error)
}

// persistenceManagerImpl implements PersistenceManager
type persistenceManagerImpl struct {
	goutils.Component
	db *gorm.DB
}

/*
NewManager define a new transfer ledger persistence manager

	@param dbDialector gorm.Dialector - the DB connection dialector
	@param logLevel logger.LogLevel - gorm log level
	@returns new PersistenceManager
*/
func NewManager(dbDialector gorm.Dialector, logLevel logger.LogLevel) (PersistenceManager, error) {
	logTags := log.Fields{"module": "db", "component": "persistence-manager"}

	db, err := gorm.Open(dbDialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to open ledger DB")
		return nil, err
	}

	if err := db.AutoMigrate(&TransferRecord{}, &SyncPassRecord{}); err != nil {
		log.WithError(err).WithFields(logTags).Error("Ledger schema migration failed")
		return nil, err
	}

	return &persistenceManagerImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		db: db,
	}, nil
}

func (m *persistenceManagerImpl) Ready(ctxt context.Context) error {
	var entry TransferRecord
	return m.db.WithContext(ctxt).Limit(1).Find(&entry).Error
}

func (m *persistenceManagerImpl) RecordTransferStart(
	ctxt context.Context, videoID uuid.UUID, direction string, blobHost string,
) (string, error) {
	logTags := m.GetLogTagsForContext(ctxt)

	entry := TransferRecord{
		ID:        ulid.Make().String(),
		VideoID:   videoID.String(),
		Direction: direction,
		State:     TransferStateInflight,
		BlobHost:  blobHost,
		StartedAt: time.Now().UTC(),
	}
	if err := m.db.WithContext(ctxt).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entry).Error
	}); err != nil {
		log.WithError(err).WithFields(logTags).WithField("video-id", videoID).
			Error("Unable to record transfer start")
		return "", err
	}
	return entry.ID, nil
}

func (m *persistenceManagerImpl) MarkTransferResult(
	ctxt context.Context, transferID string, success bool, detail string,
) error {
	logTags := m.GetLogTagsForContext(ctxt)

	state := TransferStateSuccess
	if !success {
		state = TransferStateFailed
	}
	finished := time.Now().UTC()
	if err := m.db.WithContext(ctxt).Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&TransferRecord{}).
			Where("id = ?", transferID).
			Updates(map[string]interface{}{
				"state": state, "detail": detail, "finished_at": &finished,
			}).Error
	}); err != nil {
		log.WithError(err).WithFields(logTags).WithField("transfer-id", transferID).
			Error("Unable to record transfer result")
		return err
	}
	return nil
}

func (m *persistenceManagerImpl) GetLatestTransfer(
	ctxt context.Context, videoID uuid.UUID, direction string,
) (TransferRecord, error) {
	var entry TransferRecord
	err := m.db.WithContext(ctxt).
		Where("video_id = ?", videoID.String()).
		Where("direction = ?", direction).
		Order("started_at DESC").
		First(&entry).Error
	return entry, err
}

func (m *persistenceManagerImpl) ListTransfers(
	ctxt context.Context, videoID uuid.UUID,
) ([]TransferRecord, error) {
	var entries []TransferRecord
	err := m.db.WithContext(ctxt).
		Where("video_id = ?", videoID.String()).
		Order("started_at DESC").
		Find(&entries).Error
	return entries, err
}

func (m *persistenceManagerImpl) FailedTransferStreak(
	ctxt context.Context, videoID uuid.UUID, direction string,
) (int, error) {
	var entries []TransferRecord
	if err := m.db.WithContext(ctxt).
		Where("video_id = ?", videoID.String()).
		Where("direction = ?", direction).
		Order("started_at DESC").
		Find(&entries).Error; err != nil {
		return 0, err
	}
	streak := 0
	for _, entry := range entries {
		if entry.State == TransferStateFailed {
			streak++
			continue
		}
		if entry.State == TransferStateSuccess {
			break
		}
		// In-flight entries do not break or extend the streak
	}
	return streak, nil
}

func (m *persistenceManagerImpl) RecordSyncPass(
	ctxt context.Context, summary SyncPassSummary,
) error {
	logTags := m.GetLogTagsForContext(ctxt)

	degraded := syncPassNominal
	if summary.Degraded {
		degraded = syncPassDegraded
	}
	entry := SyncPassRecord{
		ID:         ulid.Make().String(),
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Uploads:    summary.Uploads,
		Downloads:  summary.Downloads,
		Failures:   summary.Failures,
		Degraded:   degraded,
		Detail:     summary.Detail,
	}
	if err := m.db.WithContext(ctxt).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entry).Error
	}); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to record sync pass")
		return err
	}
	return nil
}

func (m *persistenceManagerImpl) ListSyncPasses(
	ctxt context.Context, limit int,
) ([]SyncPassRecord, error) {
	var entries []SyncPassRecord
	err := m.db.WithContext(ctxt).
		Order("started_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
