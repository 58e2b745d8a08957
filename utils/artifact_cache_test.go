package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeFetcher(content []byte) ArtifactFetcher {
	return func(ctxt context.Context, targetPath string) error {
		return os.WriteFile(targetPath, content, 0o644)
	}
}

func TestArtifactCacheBasicOperation(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	dir := t.TempDir()
	uut, err := NewArtifactCache(utCtxt, dir, 1024*1024, time.Hour, time.Minute)
	assert.Nil(err)
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	// Case 0: miss triggers the fetcher
	content := []byte("thumbnail-bytes")
	fetchCount := 0
	path, err := uut.GetArtifact(utCtxt, "vid-a.thumb.jpg", func(ctxt context.Context, target string) error {
		fetchCount++
		return os.WriteFile(target, content, 0o644)
	})
	assert.Nil(err)
	onDisk, err := os.ReadFile(path)
	assert.Nil(err)
	assert.Equal(content, onDisk)
	assert.Equal(1, fetchCount)
	assert.Equal(int64(len(content)), uut.ResidentBytes())

	// Case 1: hit does not refetch
	path2, err := uut.GetArtifact(utCtxt, "vid-a.thumb.jpg", func(ctxt context.Context, target string) error {
		fetchCount++
		return os.WriteFile(target, []byte("should not run"), 0o644)
	})
	assert.Nil(err)
	assert.Equal(path, path2)
	assert.Equal(1, fetchCount)

	// Case 2: fetch failure is reported and caches nothing
	fetchErr := fmt.Errorf("remote host down")
	_, err = uut.GetArtifact(utCtxt, "vid-b.thumb.jpg", func(ctxt context.Context, target string) error {
		return fetchErr
	})
	assert.ErrorIs(err, fetchErr)
	assert.Equal(int64(len(content)), uut.ResidentBytes())

	// Case 3: drop removes the backing file
	assert.Nil(uut.DropArtifact(utCtxt, "vid-a.thumb.jpg"))
	_, err = os.Stat(path)
	assert.True(os.IsNotExist(err))
	assert.Equal(int64(0), uut.ResidentBytes())

	// Case 4: path traversal rejected
	_, err = uut.GetArtifact(utCtxt, "../escape", writeFetcher(content))
	assert.NotNil(err)
}

func TestArtifactCacheWeightedEviction(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	dir := t.TempDir()
	// Ceiling fits two 100 byte artifacts but not three
	uut, err := NewArtifactCache(utCtxt, dir, 250, time.Hour, time.Minute)
	assert.Nil(err)
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	payload := bytes.Repeat([]byte("x"), 100)
	pathA, err := uut.GetArtifact(utCtxt, "a.jpg", writeFetcher(payload))
	assert.Nil(err)
	_, err = uut.GetArtifact(utCtxt, "b.jpg", writeFetcher(payload))
	assert.Nil(err)

	// Touch "a" so "b" becomes the eviction candidate
	_, err = uut.GetArtifact(utCtxt, "a.jpg", writeFetcher(payload))
	assert.Nil(err)

	pathC, err := uut.GetArtifact(utCtxt, "c.jpg", writeFetcher(payload))
	assert.Nil(err)
	assert.Equal(int64(200), uut.ResidentBytes())

	_, err = os.Stat(pathA)
	assert.Nil(err)
	_, err = os.Stat(pathC)
	assert.Nil(err)
	_, err = os.Stat(filepath.Join(dir, "b.jpg"))
	assert.True(os.IsNotExist(err))
}

func TestArtifactCacheRetention(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	dir := t.TempDir()
	uut, err := NewArtifactCache(utCtxt, dir, 1024, time.Minute, time.Hour)
	assert.Nil(err)
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	path, err := uut.GetArtifact(utCtxt, "stale.jpg", writeFetcher([]byte("old")))
	assert.Nil(err)

	impl, ok := uut.(*artifactCacheImpl)
	assert.True(ok)
	impl.purgeExpiredEntries(time.Now().UTC().Add(time.Hour))

	_, err = os.Stat(path)
	assert.True(os.IsNotExist(err))
	assert.Equal(int64(0), uut.ResidentBytes())
}

func TestArtifactCacheAdoptsExistingFiles(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	dir := t.TempDir()
	assert.Nil(os.WriteFile(filepath.Join(dir, "survivor.jpg"), []byte("kept"), 0o644))
	assert.Nil(os.WriteFile(filepath.Join(dir, ".fetch-leftover"), []byte("junk"), 0o644))

	uut, err := NewArtifactCache(utCtxt, dir, 1024, time.Hour, time.Minute)
	assert.Nil(err)
	defer func() { assert.Nil(uut.Stop(utCtxt)) }()

	// Adopted entry is a hit, interrupted staging file is cleaned up
	assert.Equal(int64(4), uut.ResidentBytes())
	path, err := uut.GetArtifact(utCtxt, "survivor.jpg", func(ctxt context.Context, target string) error {
		return fmt.Errorf("fetch must not run")
	})
	assert.Nil(err)
	onDisk, err := os.ReadFile(path)
	assert.Nil(err)
	assert.Equal([]byte("kept"), onDisk)
	_, err = os.Stat(filepath.Join(dir, ".fetch-leftover"))
	assert.True(os.IsNotExist(err))
}
