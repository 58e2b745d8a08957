package vault

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alwitt/clipsync/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testVideo(title string) common.Video {
	return common.Video{
		ID:        uuid.New(),
		Title:     title,
		Tag:       "unit-test",
		Rotation:  0,
		Date:      time.Now().UTC().Truncate(time.Millisecond),
		StartTime: 0,
		EndTime:   -1,
		VideoURI:  common.NewURI("file:///videos/" + title + ".mp4"),
		Author:    common.User{Name: "tester", URI: common.NewURI("mailto:tester@example.com")},
	}
}

func testStore(t *testing.T, watch bool, onChange ExternalChangeHandler) (ManifestStore, string) {
	utCtxt := context.Background()
	dir := t.TempDir()

	cache, err := NewLocalVideoInfoCache(utCtxt, 100, time.Minute)
	assert.Nil(t, err)

	uut, err := NewManifestStore(utCtxt, dir, cache, time.Minute*5, watch, onChange)
	assert.Nil(t, err)
	return uut, dir
}

func TestManifestStoreBasicCRUD(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, _ := testStore(t, false, nil)
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	assert.Nil(uut.Ready(utCtxt))

	// Case 0: empty store
	listing, err := uut.ListVideos(utCtxt)
	assert.Nil(err)
	assert.Empty(listing)

	// Case 1: persist and read back
	video := testVideo("ride-one")
	video.AddAnnotation(common.Annotation{Time: 1500, Text: "nice turn"})
	assert.Nil(uut.SaveVideo(utCtxt, video))

	readBack, err := uut.GetVideo(utCtxt, video.ID)
	assert.Nil(err)
	assert.Equal(video.ID, readBack.ID)
	assert.Equal(video.Title, readBack.Title)
	assert.Len(readBack.Annotations, 1)
	assert.Equal("nice turn", readBack.Annotations[0].Text)

	info, err := uut.GetVideoInfo(utCtxt, video.ID)
	assert.Nil(err)
	assert.Equal(video.ID, info.ID)
	assert.Equal(video.Title, info.Title)

	// Case 2: unknown video
	_, err = uut.GetVideo(utCtxt, uuid.New())
	assert.True(os.IsNotExist(err))

	// Case 3: delete
	assert.Nil(uut.DeleteVideo(utCtxt, video.ID))
	_, err = uut.GetVideo(utCtxt, video.ID)
	assert.True(os.IsNotExist(err))
	// Deleting again is a no-op
	assert.Nil(uut.DeleteVideo(utCtxt, video.ID))
}

func TestManifestStoreListOrdering(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, dir := testStore(t, false, nil)
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	older := testVideo("older")
	newer := testVideo("newer")
	assert.Nil(uut.SaveVideo(utCtxt, older))
	assert.Nil(uut.SaveVideo(utCtxt, newer))

	// Force distinct modification timestamps
	past := time.Now().Add(-time.Hour)
	assert.Nil(os.Chtimes(uut.ManifestPath(older.ID), past, past))

	listing, err := uut.ListVideos(utCtxt)
	assert.Nil(err)
	assert.Len(listing, 2)
	assert.Equal(newer.ID, listing[0].ID)
	assert.Equal(older.ID, listing[1].ID)

	// Unrelated files in the vault directory are ignored
	assert.Nil(os.WriteFile(dir+"/notes.txt", []byte("not a manifest"), 0o644))
	assert.Nil(os.WriteFile(dir+"/broken.json", []byte("not a manifest"), 0o644))
	listing, err = uut.ListVideos(utCtxt)
	assert.Nil(err)
	assert.Len(listing, 2)
}

func TestManifestStoreSaveUpdatesProjection(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, _ := testStore(t, false, nil)
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	video := testVideo("original-title")
	assert.Nil(uut.SaveVideo(utCtxt, video))

	info, err := uut.GetVideoInfo(utCtxt, video.ID)
	assert.Nil(err)
	assert.Equal("original-title", info.Title)

	// Renaming and re-saving replaces the cached projection
	video.Rename("updated-title")
	assert.Nil(uut.SaveVideo(utCtxt, video))
	info, err = uut.GetVideoInfo(utCtxt, video.ID)
	assert.Nil(err)
	assert.Equal("updated-title", info.Title)
}

func TestManifestStoreExternalChangeNotification(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	changed := make(chan uuid.UUID, 8)
	uut, _ := testStore(t, true, func(ctxt context.Context, videoID uuid.UUID) {
		changed <- videoID
	})
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	video := testVideo("externally-modified")
	assert.Nil(uut.SaveVideo(utCtxt, video))

	// Simulate another process rewriting the manifest
	encoded, err := common.EncodeManifest(video)
	assert.Nil(err)
	assert.Nil(os.WriteFile(uut.ManifestPath(video.ID), encoded, 0o644))

	select {
	case videoID := <-changed:
		assert.Equal(video.ID, videoID)
	case <-time.After(time.Second * 5):
		assert.FailNow("no change notification received")
	}
}

func TestLocalVideoInfoCacheRetention(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, err := NewLocalVideoInfoCache(utCtxt, 2, time.Minute)
	assert.Nil(err)
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	entries := []common.VideoInfo{
		{ID: uuid.New(), Title: "one"},
		{ID: uuid.New(), Title: "two"},
		{ID: uuid.New(), Title: "three"},
	}

	// Case 0: size cap evicts the entry closest to expiry
	assert.Nil(uut.CacheVideoInfo(utCtxt, entries[0], time.Minute))
	assert.Nil(uut.CacheVideoInfo(utCtxt, entries[1], time.Hour))
	assert.Nil(uut.CacheVideoInfo(utCtxt, entries[2], time.Hour))
	_, err = uut.GetVideoInfo(utCtxt, entries[0].ID)
	assert.NotNil(err)
	fetched, err := uut.GetVideoInfo(utCtxt, entries[1].ID)
	assert.Nil(err)
	assert.Equal("two", fetched.Title)

	// Case 1: expired entries are purged on sweep
	expiring := common.VideoInfo{ID: uuid.New(), Title: "short-lived"}
	assert.Nil(uut.DeleteVideoInfo(utCtxt, entries[1].ID))
	assert.Nil(uut.CacheVideoInfo(utCtxt, expiring, -time.Second))
	impl, ok := uut.(*inProcessVideoInfoCacheImpl)
	assert.True(ok)
	impl.purgeExpiredEntries(time.Now().UTC())
	_, err = uut.GetVideoInfo(utCtxt, expiring.ID)
	assert.NotNil(err)

	// Case 2: purge all
	assert.Nil(uut.PurgeAll(utCtxt))
	_, err = uut.GetVideoInfo(utCtxt, entries[2].ID)
	assert.NotNil(err)
}
