package mp4

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// tBox build one box with the given payload
func tBox(name string, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(8+len(payload)))
	copy(buf[4:8], name)
	copy(buf[8:], payload)
	return buf
}

// tConcat concatenate box serializations
func tConcat(parts ...[]byte) []byte {
	var result []byte
	for _, part := range parts {
		result = append(result, part...)
	}
	return result
}

// tStco build a `stco` box holding the given chunk offsets
func tStco(offsets ...uint32) []byte {
	payload := make([]byte, 8+4*len(offsets))
	binary.BigEndian.PutUint32(payload[4:8], uint32(len(offsets)))
	for idx, offset := range offsets {
		binary.BigEndian.PutUint32(payload[8+idx*4:], offset)
	}
	return tBox("stco", payload)
}

/*
tContainer build a minimal playable-shaped container

Layout is `ftyp`, `moov` wrapping a single track with one chunk offset, then
`mdat` carrying `media`. The chunk offset points at the start of the `mdat`
payload.
*/
func tContainer(media []byte) []byte {
	ftyp := tBox("ftyp", []byte("isom\x00\x00\x02\x00isomiso2"))
	// Chunk offset filled in once the moov size is known
	buildMoov := func(chunkOffset uint32) []byte {
		stbl := tBox("stbl", tStco(chunkOffset))
		minf := tBox("minf", stbl)
		mdia := tBox("mdia", minf)
		trak := tBox("trak", mdia)
		return tBox("moov", trak)
	}
	moovSize := len(buildMoov(0))
	mdatPayloadOffset := uint32(len(ftyp) + moovSize + 8)
	moov := buildMoov(mdatPayloadOffset)
	mdat := tBox("mdat", media)
	return tConcat(ftyp, moov, mdat)
}

// tWriteContainer write container bytes to a temp file
func tWriteContainer(t *testing.T, content []byte) string {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	assert.Nil(t, os.WriteFile(path, content, 0o644))
	return path
}

// tChunkOffset read the first `stco` entry out of raw container bytes
func tChunkOffset(t *testing.T, content []byte) uint32 {
	idx := bytes.Index(content, []byte("stco"))
	assert.GreaterOrEqual(t, idx, 0)
	return binary.BigEndian.Uint32(content[idx+12 : idx+16])
}

func TestContainerPatchRoundTrip(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, err := NewContainerPatcher()
	assert.Nil(err)

	media := []byte("test-media-payload")
	path := tWriteContainer(t, tContainer(media))

	// Case 0: no manifest embedded yet
	_, err = uut.ExtractManifest(utCtxt, path)
	assert.ErrorIs(err, ErrNoManifest)

	// Case 1: embed a manifest, then read it back
	manifest := []byte(`{"id":"f6a1","title":"First ride"}`)
	assert.Nil(uut.PatchManifest(utCtxt, path, manifest))
	readBack, err := uut.ExtractManifest(utCtxt, path)
	assert.Nil(err)
	assert.Equal(manifest, readBack)

	// Case 2: the chunk offset table still points at the media payload
	patched, err := os.ReadFile(path)
	assert.Nil(err)
	offset := tChunkOffset(t, patched)
	assert.Equal(media, patched[offset:int(offset)+len(media)])

	// Case 3: re-patch with a same-sized manifest reuses the padding, so
	// neither the file size nor the chunk offsets move
	sizeAfterFirst := int64(len(patched))
	offsetAfterFirst := offset
	manifest2 := []byte(`{"id":"f6a1","title":"Later ride"}`)
	assert.Nil(uut.PatchManifest(utCtxt, path, manifest2))
	patched, err = os.ReadFile(path)
	assert.Nil(err)
	assert.Equal(sizeAfterFirst, int64(len(patched)))
	assert.Equal(offsetAfterFirst, tChunkOffset(t, patched))
	readBack, err = uut.ExtractManifest(utCtxt, path)
	assert.Nil(err)
	assert.Equal(manifest2, readBack)

	// Case 4: media still intact after second patch
	offset = tChunkOffset(t, patched)
	assert.Equal(media, patched[offset:int(offset)+len(media)])
}

// tMeta build a `meta` full box wrapping the given child boxes
func tMeta(children ...[]byte) []byte {
	payload := append([]byte{0, 0, 0, 0}, tConcat(children...)...)
	return tBox("meta", payload)
}

// tParseFile parse a container file back into its box tree
func tParseFile(t *testing.T, path string) []*box {
	content, err := os.ReadFile(path)
	assert.Nil(t, err)
	parsed, err := parseBoxes(bytes.NewReader(content), 0, int64(len(content)), 0)
	assert.Nil(t, err)
	return parsed
}

func TestContainerPatchManifestBoxPlacement(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, err := NewContainerPatcher()
	assert.Nil(err)

	path := tWriteContainer(t, tContainer([]byte("placement-media")))
	manifest := []byte(`{"id":"b2c3","title":"Placement check"}`)
	assert.Nil(uut.PatchManifest(utCtxt, path, manifest))

	// The manifest chain sits directly under moov: meta wrapping hdlr then
	// the uuid payload box
	topLevel := tParseFile(t, path)
	var moov *box
	for _, entry := range topLevel {
		if entry.isType(typeMoov) {
			moov = entry
		}
	}
	assert.NotNil(moov)
	assert.Nil(moov.childOfType(typeUdta))
	meta := moov.childOfType(typeMeta)
	assert.NotNil(meta)
	assert.Len(meta.children, 2)
	assert.True(meta.children[0].isType(typeHdlr))
	assert.True(meta.children[1].isType(typeUUID))
	assert.Equal(manifestBoxUserType, meta.children[1].userType)
}

func TestContainerPatchWithExistingMetaBox(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, err := NewContainerPatcher()
	assert.Nil(err)

	// Container already carrying a moov level meta box with its own handler
	ftyp := tBox("ftyp", []byte("isom\x00\x00\x02\x00isomiso2"))
	buildMoov := func(chunkOffset uint32) []byte {
		stbl := tBox("stbl", tStco(chunkOffset))
		trak := tBox("trak", tBox("mdia", tBox("minf", stbl)))
		existingMeta := tMeta(tBox("hdlr", make([]byte, 32)))
		return tBox("moov", tConcat(trak, existingMeta))
	}
	media := []byte("meta-reuse-media")
	moovSize := len(buildMoov(0))
	mdatPayloadOffset := uint32(len(ftyp) + moovSize + 8)
	content := tConcat(ftyp, buildMoov(mdatPayloadOffset), tBox("mdat", media))
	path := tWriteContainer(t, content)

	manifest := []byte(`{"id":"c4d5","title":"Reuse meta"}`)
	assert.Nil(uut.PatchManifest(utCtxt, path, manifest))

	readBack, err := uut.ExtractManifest(utCtxt, path)
	assert.Nil(err)
	assert.Equal(manifest, readBack)

	// The existing meta box was reused rather than a second one created, and
	// its handler was kept
	topLevel := tParseFile(t, path)
	var moov *box
	for _, entry := range topLevel {
		if entry.isType(typeMoov) {
			moov = entry
		}
	}
	assert.NotNil(moov)
	metaCount := 0
	var meta *box
	for _, child := range moov.children {
		if child.isType(typeMeta) {
			metaCount++
			meta = child
		}
	}
	assert.Equal(1, metaCount)
	hdlrCount := 0
	for _, child := range meta.children {
		if child.isType(typeHdlr) {
			hdlrCount++
		}
	}
	assert.Equal(1, hdlrCount)

	// Media still reachable through the chunk offsets
	patched, err := os.ReadFile(path)
	assert.Nil(err)
	offset := tChunkOffset(t, patched)
	assert.Equal(media, patched[offset:int(offset)+len(media)])
}

func TestContainerPatchGrowth(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, err := NewContainerPatcher()
	assert.Nil(err)

	media := []byte("0123456789abcdef")
	path := tWriteContainer(t, tContainer(media))

	small := []byte(`{"id":"a"}`)
	assert.Nil(uut.PatchManifest(utCtxt, path, small))

	// Grow well past the padding left by the first patch
	large := bytes.Repeat([]byte("x"), manifestGrowthPadding*3)
	assert.Nil(uut.PatchManifest(utCtxt, path, large))

	patched, err := os.ReadFile(path)
	assert.Nil(err)
	offset := tChunkOffset(t, patched)
	assert.Equal(media, patched[offset:int(offset)+len(media)])

	readBack, err := uut.ExtractManifest(utCtxt, path)
	assert.Nil(err)
	assert.Equal(large, readBack)
}

func TestContainerPatchMdatBeforeMoov(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, err := NewContainerPatcher()
	assert.Nil(err)

	// Layout with media data ahead of the index. Chunk offsets must not
	// shift no matter how much moov grows.
	ftyp := tBox("ftyp", []byte("isom\x00\x00\x02\x00"))
	media := []byte("early-media")
	mdat := tBox("mdat", media)
	chunkOffset := uint32(len(ftyp) + 8)
	stbl := tBox("stbl", tStco(chunkOffset))
	moov := tBox("moov", tBox("trak", tBox("mdia", tBox("minf", stbl))))
	path := tWriteContainer(t, tConcat(ftyp, mdat, moov))

	manifest := bytes.Repeat([]byte("m"), 4096)
	assert.Nil(uut.PatchManifest(utCtxt, path, manifest))

	patched, err := os.ReadFile(path)
	assert.Nil(err)
	assert.Equal(chunkOffset, tChunkOffset(t, patched))
	assert.Equal(media, patched[chunkOffset:int(chunkOffset)+len(media)])
}

func TestContainerPatchRejectsUnsupportedLayouts(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	uut, err := NewContainerPatcher()
	assert.Nil(err)

	manifest := []byte(`{}`)

	// Case 0: fragmented container
	fragmented := tConcat(
		tBox("ftyp", []byte("iso5")),
		tBox("moov", tBox("mvex", nil)),
		tBox("moof", nil),
		tBox("mdat", []byte("frag")),
	)
	path := tWriteContainer(t, fragmented)
	err = uut.PatchManifest(utCtxt, path, manifest)
	assert.ErrorAs(err, &UnsupportedContainerError{})
	// Original file untouched
	onDisk, err := os.ReadFile(path)
	assert.Nil(err)
	assert.Equal(fragmented, onDisk)

	// Case 1: multiple mdat boxes
	multiMdat := tConcat(
		tBox("ftyp", []byte("isom")),
		tBox("moov", tBox("trak", tBox("mdia", tBox("minf", tBox("stbl", tStco()))))),
		tBox("mdat", []byte("one")),
		tBox("mdat", []byte("two")),
	)
	path = tWriteContainer(t, multiMdat)
	err = uut.PatchManifest(utCtxt, path, manifest)
	assert.ErrorAs(err, &UnsupportedContainerError{})

	// Case 2: no moov at all
	path = tWriteContainer(t, tConcat(tBox("ftyp", []byte("isom")), tBox("mdat", []byte("x"))))
	err = uut.PatchManifest(utCtxt, path, manifest)
	assert.ErrorAs(err, &UnsupportedContainerError{})

	// Case 3: garbage input
	path = tWriteContainer(t, []byte("not an mp4 file"))
	err = uut.PatchManifest(utCtxt, path, manifest)
	assert.NotNil(err)
}
