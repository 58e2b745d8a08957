package syncer

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// timestampSlack tolerance when comparing local and remote modification
// timestamps. Filesystem and HTTP timestamps round differently; ties within
// the slack never trigger a transfer.
const timestampSlack = 2 * time.Second

// Reconcile plan actions
type ReconcileAction string

const (
	// ActionUpload push the local video to the remote host
	ActionUpload ReconcileAction = "upload"
	// ActionDownload pull the remote video into the local store
	ActionDownload ReconcileAction = "download"
)

// LocalIndexEntry one video in the local store's reconciliation index
type LocalIndexEntry struct {
	// Modified local manifest modification timestamp
	Modified time.Time
	// OwnedLocally whether the primary video content is device local. Videos
	// known only locally are upload candidates only when locally owned.
	OwnedLocally bool
}

// PlanStep one transfer in a reconciliation plan
type PlanStep struct {
	// VideoID the video to transfer
	VideoID uuid.UUID
	// Action transfer direction
	Action ReconcileAction
}

/*
Reconcile derive the transfer plan aligning the local store with a remote host.

The rules per video ID:

  - Present locally only, and locally owned: upload.
  - Present remotely only: download.
  - Present on both sides: the newer side wins. Remote newer pulls; local
    newer pushes. Remote origin videos with newer local edits still push,
    carrying the manifest changes back without re-uploading content.
    Timestamps within the comparison slack are treated as equal.

The plan is deterministic: steps are ordered by video ID.

	@param local map[uuid.UUID]LocalIndexEntry - local reconciliation index
	@param remote map[uuid.UUID]time.Time - remote index as ID to modification time
	@returns ordered transfer plan
*/
func Reconcile(
	local map[uuid.UUID]LocalIndexEntry, remote map[uuid.UUID]time.Time,
) []PlanStep {
	var plan []PlanStep

	for videoID, localEntry := range local {
		remoteModified, onRemote := remote[videoID]
		if !onRemote {
			if localEntry.OwnedLocally {
				plan = append(plan, PlanStep{VideoID: videoID, Action: ActionUpload})
			}
			continue
		}
		switch {
		case remoteModified.After(localEntry.Modified.Add(timestampSlack)):
			plan = append(plan, PlanStep{VideoID: videoID, Action: ActionDownload})
		case localEntry.Modified.After(remoteModified.Add(timestampSlack)):
			plan = append(plan, PlanStep{VideoID: videoID, Action: ActionUpload})
		}
	}

	for videoID := range remote {
		if _, onLocal := local[videoID]; !onLocal {
			plan = append(plan, PlanStep{VideoID: videoID, Action: ActionDownload})
		}
	}

	sort.Slice(plan, func(i, j int) bool {
		return plan[i].VideoID.String() < plan[j].VideoID.String()
	})
	return plan
}
