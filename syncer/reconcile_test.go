package syncer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	assert := assert.New(t)

	baseTime := time.Now().UTC()
	localOnly := uuid.New()
	localOnlyForeign := uuid.New()
	remoteOnly := uuid.New()
	remoteNewer := uuid.New()
	localNewer := uuid.New()
	localNewerForeign := uuid.New()
	inSync := uuid.New()

	local := map[uuid.UUID]LocalIndexEntry{
		localOnly:         {Modified: baseTime, OwnedLocally: true},
		localOnlyForeign:  {Modified: baseTime, OwnedLocally: false},
		remoteNewer:       {Modified: baseTime.Add(-time.Hour), OwnedLocally: true},
		localNewer:        {Modified: baseTime, OwnedLocally: true},
		localNewerForeign: {Modified: baseTime, OwnedLocally: false},
		inSync:            {Modified: baseTime, OwnedLocally: true},
	}
	remoteIdx := map[uuid.UUID]time.Time{
		remoteOnly:        baseTime,
		remoteNewer:       baseTime,
		localNewer:        baseTime.Add(-time.Hour),
		localNewerForeign: baseTime.Add(-time.Hour),
		// Skew below the comparison slack must not trigger a transfer
		inSync: baseTime.Add(time.Second),
	}

	plan := Reconcile(local, remoteIdx)

	expected := map[uuid.UUID]ReconcileAction{
		localOnly:         ActionUpload,
		remoteOnly:        ActionDownload,
		remoteNewer:       ActionDownload,
		localNewer:        ActionUpload,
		localNewerForeign: ActionUpload,
	}
	assert.Len(plan, len(expected))
	for _, step := range plan {
		action, ok := expected[step.VideoID]
		assert.True(ok)
		assert.Equal(action, step.Action)
	}

	// Deterministic ordering by video ID
	for idx := 1; idx < len(plan); idx++ {
		assert.Less(plan[idx-1].VideoID.String(), plan[idx].VideoID.String())
	}

	// Empty inputs produce an empty plan
	assert.Empty(Reconcile(nil, nil))
}

func TestReconcileRemoteOriginLocalEdit(t *testing.T) {
	assert := assert.New(t)

	// Editing the manifest of a remote origin video must push the edit back.
	// Ownership gates only videos the remote side has never seen.
	videoID := uuid.New()
	editTime := time.Now().UTC()

	plan := Reconcile(
		map[uuid.UUID]LocalIndexEntry{videoID: {Modified: editTime, OwnedLocally: false}},
		map[uuid.UUID]time.Time{videoID: editTime.Add(-time.Hour)},
	)
	assert.Len(plan, 1)
	assert.Equal(videoID, plan[0].VideoID)
	assert.Equal(ActionUpload, plan[0].Action)
}
