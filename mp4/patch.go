package mp4

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// manifestBoxUserType usertype of the `uuid` box carrying the video manifest
// within `moov/meta`: 388ed96f-47b1-499a-9e7e-ee304eb19661
var manifestBoxUserType = [16]byte{
	0x38, 0x8e, 0xd9, 0x6f, 0x47, 0xb1, 0x49, 0x9a,
	0x9e, 0x7e, 0xee, 0x30, 0x4e, 0xb1, 0x96, 0x61,
}

// manifestHdlrName handler name recorded in the `hdlr` box accompanying the
// manifest, NUL terminated
const manifestHdlrName = "application/json\x00"

// manifestGrowthPadding size of the `free` box appended after `moov` when a
// patch grows the container. Re-patching with a similar sized manifest then
// reuses the padding instead of shifting the media data again.
const manifestGrowthPadding = 1024

// ErrNoManifest returned when extracting from a container that carries no
// embedded manifest
var ErrNoManifest = fmt.Errorf("container carries no embedded manifest")

// UnsupportedContainerError error indicating the container layout is outside
// what the patcher supports. The source file is never modified when this is
// returned.
type UnsupportedContainerError struct {
	// Reason what about the container is unsupported
	Reason string
}

func (e UnsupportedContainerError) Error() string {
	return fmt.Sprintf("unsupported MP4 container: %s", e.Reason)
}

// ContainerPatcher embeds and extracts video manifests in MP4 containers
type ContainerPatcher interface {
	/*
		PatchManifest embed a manifest into the MP4 container at `path`

			@param ctxt context.Context - execution context
			@param path string - MP4 file to patch
			@param manifest []byte - encoded manifest to embed
	*/
	PatchManifest(ctxt context.Context, path string, manifest []byte) error

	/*
		ExtractManifest read the embedded manifest from the MP4 container at `path`

			@param ctxt context.Context - execution context
			@param path string - MP4 file to read
			@returns the encoded manifest
	*/
	ExtractManifest(ctxt context.Context, path string) ([]byte, error)
}

// containerPatcherImpl implements ContainerPatcher
type containerPatcherImpl struct {
	goutils.Component
}

/*
NewContainerPatcher define new MP4 container patcher

	@returns new ContainerPatcher
*/
func NewContainerPatcher() (ContainerPatcher, error) {
	logTags := log.Fields{"module": "mp4", "component": "container-patcher"}
	return &containerPatcherImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
	}, nil
}

func (p *containerPatcherImpl) PatchManifest(
	ctxt context.Context, path string, manifest []byte,
) error {
	logTags := p.GetLogTagsForContext(ctxt)

	src, err := os.Open(path)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("file", path).Error("Unable to open container")
		return err
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	topLevel, err := parseBoxes(src, 0, info.Size(), 0)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("file", path).Error("Container parse failure")
		return err
	}

	layout, err := inspectLayout(topLevel)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("file", path).Error("Container layout unsupported")
		return err
	}

	// The `moov` region being rewritten covers the box itself plus any
	// `free` padding immediately following it
	oldRegionSize := layout.moovRegionEnd - layout.moov.start()

	if err := installManifestBox(layout.moov, manifest); err != nil {
		log.WithError(err).WithFields(logTags).WithField("file", path).Error("Unable to stage manifest box")
		return err
	}

	newMoovSize := layout.moov.serializedSize()
	var padSize, delta int64
	switch {
	case newMoovSize == oldRegionSize:
		// Exact fit
	case newMoovSize <= oldRegionSize-8:
		// Shrink into `free` padding so media data never moves
		padSize = oldRegionSize - newMoovSize
	default:
		// Growth. Leave padding for the next patch.
		padSize = manifestGrowthPadding
		delta = newMoovSize + padSize - oldRegionSize
	}

	if delta != 0 && layout.mdatFollowsMoov {
		if err := shiftChunkOffsets(src, layout.moov, delta); err != nil {
			log.WithError(err).WithFields(logTags).WithField("file", path).Error("Chunk offset update failed")
			return err
		}
	}

	if err := p.writePatched(src, path, topLevel, layout, padSize); err != nil {
		log.WithError(err).WithFields(logTags).WithField("file", path).Error("Unable to write patched container")
		return err
	}

	log.
		WithFields(logTags).
		WithField("file", path).
		WithField("manifest-bytes", len(manifest)).
		WithField("offset-shift", delta).
		Debug("Patched manifest into container")
	return nil
}

func (p *containerPatcherImpl) ExtractManifest(
	ctxt context.Context, path string,
) ([]byte, error) {
	logTags := p.GetLogTagsForContext(ctxt)

	src, err := os.Open(path)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("file", path).Error("Unable to open container")
		return nil, err
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return nil, err
	}

	topLevel, err := parseBoxes(src, 0, info.Size(), 0)
	if err != nil {
		log.WithError(err).WithFields(logTags).WithField("file", path).Error("Container parse failure")
		return nil, err
	}

	var moov *box
	for _, entry := range topLevel {
		if entry.isType(typeMoov) {
			moov = entry
			break
		}
	}
	if moov == nil {
		return nil, UnsupportedContainerError{Reason: "no 'moov' box present"}
	}

	manifestBox := findManifestBox(moov)
	if manifestBox == nil {
		return nil, ErrNoManifest
	}
	return manifestBox.readPayload(src)
}

// containerLayout top-level structure of a parsed container
type containerLayout struct {
	moov *box
	// moovRegionEnd end of `moov` plus any immediately trailing `free` padding
	moovRegionEnd int64
	// mdatFollowsMoov whether the media data sits after `moov` and therefore
	// shifts when the `moov` region resizes
	mdatFollowsMoov bool
}

/*
inspectLayout validate the top-level container structure

Exactly one `moov` and at most one `mdat` are supported. Fragmented files
(`moof` present) are rejected.
*/
func inspectLayout(topLevel []*box) (containerLayout, error) {
	layout := containerLayout{}
	mdatCount := 0
	for _, entry := range topLevel {
		switch {
		case entry.isType(typeMoov):
			if layout.moov != nil {
				return layout, UnsupportedContainerError{Reason: "multiple 'moov' boxes"}
			}
			layout.moov = entry
		case entry.isType(typeMoof):
			return layout, UnsupportedContainerError{Reason: "fragmented container"}
		case entry.isType(typeMdat):
			mdatCount++
			if layout.moov != nil {
				layout.mdatFollowsMoov = true
			}
		}
	}
	if layout.moov == nil {
		return layout, UnsupportedContainerError{Reason: "no 'moov' box present"}
	}
	if mdatCount > 1 {
		return layout, UnsupportedContainerError{Reason: "multiple 'mdat' boxes"}
	}

	// Absorb `free` or `skip` padding directly after `moov` into the
	// rewritten region
	layout.moovRegionEnd = layout.moov.end()
	passedMoov := false
	for _, entry := range topLevel {
		if entry == layout.moov {
			passedMoov = true
			continue
		}
		if !passedMoov {
			continue
		}
		if (entry.isType(typeFree) || entry.isType(typeSkip)) && entry.start() == layout.moovRegionEnd {
			layout.moovRegionEnd = entry.end()
			continue
		}
		break
	}
	return layout, nil
}

// findManifestBox recursively locate the manifest `uuid` box under the given box
func findManifestBox(parent *box) *box {
	for _, child := range parent.children {
		if child.isType(typeUUID) && child.userType == manifestBoxUserType {
			return child
		}
		if found := findManifestBox(child); found != nil {
			return found
		}
	}
	return nil
}

/*
installManifestBox stage the manifest payload within the `moov` tree

An existing manifest box is updated in place. Otherwise the `meta` box
directly under `moov` is located or created, with its `hdlr` declared first,
and a new manifest box appended to it.
*/
func installManifestBox(moov *box, manifest []byte) error {
	if existing := findManifestBox(moov); existing != nil {
		existing.payload = manifest
		existing.payloadSize = 0
		return nil
	}

	meta := moov.childOfType(typeMeta)
	if meta == nil {
		meta = &box{
			boxType:       typeMeta,
			fullBoxPrefix: []byte{0, 0, 0, 0},
			children:      []*box{newManifestHdlrBox()},
		}
		moov.children = append(moov.children, meta)
	} else if meta.childOfType(typeHdlr) == nil {
		meta.children = append([]*box{newManifestHdlrBox()}, meta.children...)
	}

	meta.children = append(meta.children, &box{
		boxType:  typeUUID,
		userType: manifestBoxUserType,
		payload:  manifest,
	})
	return nil
}

// newManifestHdlrBox build the `hdlr` box declaring the manifest metadata handler
func newManifestHdlrBox() *box {
	payload := make([]byte, 24+len(manifestHdlrName))
	copy(payload[8:12], "null")
	copy(payload[24:], manifestHdlrName)
	return &box{boxType: typeHdlr, payload: payload}
}

/*
shiftChunkOffsets adjust every `stco` / `co64` entry under `moov` by `delta`

	@param src io.ReaderAt - the source stream
	@param parent *box - subtree to walk
	@param delta int64 - byte shift applied to the media data
*/
func shiftChunkOffsets(src io.ReaderAt, parent *box, delta int64) error {
	for _, child := range parent.children {
		if child.isType(typeStco) || child.isType(typeCo64) {
			payload, err := child.readPayload(src)
			if err != nil {
				return err
			}
			if len(payload) < 8 {
				return UnsupportedContainerError{Reason: fmt.Sprintf("malformed '%s' box", child.boxType)}
			}
			entryCount := int(binary.BigEndian.Uint32(payload[4:8]))
			updated := make([]byte, len(payload))
			copy(updated, payload)
			if child.isType(typeStco) {
				if len(payload) < 8+entryCount*4 {
					return UnsupportedContainerError{Reason: "truncated 'stco' box"}
				}
				for idx := 0; idx < entryCount; idx++ {
					pos := 8 + idx*4
					offset := int64(binary.BigEndian.Uint32(updated[pos:pos+4])) + delta
					if offset < 0 || offset > int64(^uint32(0)) {
						// Widening to `co64` would reshape every containing
						// box. Fail before touching the file.
						return UnsupportedContainerError{
							Reason: "chunk offset exceeds 32-bit 'stco' range after shift",
						}
					}
					binary.BigEndian.PutUint32(updated[pos:pos+4], uint32(offset))
				}
			} else {
				if len(payload) < 8+entryCount*8 {
					return UnsupportedContainerError{Reason: "truncated 'co64' box"}
				}
				for idx := 0; idx < entryCount; idx++ {
					pos := 8 + idx*8
					offset := int64(binary.BigEndian.Uint64(updated[pos:pos+8])) + delta
					if offset < 0 {
						return UnsupportedContainerError{Reason: "negative chunk offset after shift"}
					}
					binary.BigEndian.PutUint64(updated[pos:pos+8], uint64(offset))
				}
			}
			child.payload = updated
			child.payloadSize = 0
			continue
		}
		if err := shiftChunkOffsets(src, child, delta); err != nil {
			return err
		}
	}
	return nil
}

/*
writePatched serialize the patched container next to the original and swap it in

The new content lands in a temp file within the same directory and replaces
the original via rename, so readers only ever observe a complete container.
*/
func (p *containerPatcherImpl) writePatched(
	src *os.File, path string, topLevel []*box, layout containerLayout, padSize int64,
) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".patch-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	for _, entry := range topLevel {
		// Boxes within the rewritten `moov` region are replaced as a unit
		if entry != layout.moov &&
			entry.start() >= layout.moov.start() && entry.end() <= layout.moovRegionEnd {
			continue
		}
		if entry == layout.moov {
			if err := entry.writeBox(tmp, src); err != nil {
				cleanup()
				return err
			}
			if padSize > 0 {
				padding := &box{boxType: typeFree, payload: make([]byte, padSize-8)}
				if err := padding.writeBox(tmp, src); err != nil {
					cleanup()
					return err
				}
			}
			continue
		}
		regionSize := entry.end() - entry.start()
		if _, err := io.Copy(tmp, io.NewSectionReader(src, entry.start(), regionSize)); err != nil {
			cleanup()
			return err
		}
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
