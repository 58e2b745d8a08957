package mp4

import (
	"encoding/binary"
	"fmt"
	"io"
)

// boxType ISOBMFF box FourCC
type boxType [4]byte

func (t boxType) String() string {
	return string(t[:])
}

func newBoxType(name string) boxType {
	var t boxType
	copy(t[:], name)
	return t
}

var (
	typeFtyp = newBoxType("ftyp")
	typeMoov = newBoxType("moov")
	typeMoof = newBoxType("moof")
	typeMdat = newBoxType("mdat")
	typeFree = newBoxType("free")
	typeSkip = newBoxType("skip")
	typeUdta = newBoxType("udta")
	typeMeta = newBoxType("meta")
	typeHdlr = newBoxType("hdlr")
	typeStco = newBoxType("stco")
	typeCo64 = newBoxType("co64")
	typeUUID = newBoxType("uuid")
)

// containerTypes box types whose payload is a sequence of child boxes
var containerTypes = map[boxType]bool{
	typeMoov:           true,
	typeUdta:           true,
	newBoxType("trak"): true,
	newBoxType("edts"): true,
	newBoxType("mdia"): true,
	newBoxType("minf"): true,
	newBoxType("dinf"): true,
	newBoxType("stbl"): true,
	newBoxType("mvex"): true,
}

/*
box one parsed ISOBMFF box

The parser records where each box's payload sits within the source stream so
serialization can copy untouched boxes straight through. Boxes modified or
created during a patch carry their payload in `payload` instead.
*/
type box struct {
	boxType  boxType
	userType [16]byte
	// fullBoxPrefix version and flags bytes preceding the children of a
	// `meta` box. Empty for every other box.
	fullBoxPrefix []byte
	// headerSize size of the box header as read from the source, covering
	// the optional largesize and uuid usertype fields
	headerSize int64
	// payloadOffset absolute source offset of the box payload
	payloadOffset int64
	// payloadSize payload length in the source
	payloadSize int64
	// payload synthetic payload overriding the source range
	payload []byte
	// children parsed child boxes. Only set for container boxes.
	children []*box
}

// start absolute source offset of the box header
func (b *box) start() int64 {
	return b.payloadOffset - b.headerSize
}

// end absolute source offset one past the box payload
func (b *box) end() int64 {
	return b.payloadOffset + b.payloadSize
}

// isType whether the box is a plain box of the given type
func (b *box) isType(t boxType) bool {
	return b.boxType == t
}

// childOfType first direct child of the given type, or nil
func (b *box) childOfType(t boxType) *box {
	for _, child := range b.children {
		if child.isType(t) {
			return child
		}
	}
	return nil
}

/*
parseBoxes parse the box sequence within [start, end) of the source

	@param src io.ReaderAt - the source stream
	@param start int64 - absolute offset the sequence starts at
	@param end int64 - absolute offset the sequence ends at
	@param depth int - current recursion depth
	@returns the parsed boxes
*/
func parseBoxes(src io.ReaderAt, start, end int64, depth int) ([]*box, error) {
	if depth > 16 {
		return nil, fmt.Errorf("box nesting exceeds depth limit")
	}

	var result []*box
	offset := start
	for offset < end {
		if end-offset < 8 {
			return nil, fmt.Errorf("truncated box header at offset %d", offset)
		}

		var header [8]byte
		if _, err := src.ReadAt(header[:], offset); err != nil {
			return nil, err
		}
		size := int64(binary.BigEndian.Uint32(header[0:4]))
		parsed := &box{}
		copy(parsed.boxType[:], header[4:8])
		headerSize := int64(8)

		if size == 1 {
			// 64-bit largesize follows the type field
			var largesize [8]byte
			if _, err := src.ReadAt(largesize[:], offset+8); err != nil {
				return nil, err
			}
			size = int64(binary.BigEndian.Uint64(largesize[:]))
			headerSize += 8
		} else if size == 0 {
			// Box extends to the end of the enclosing sequence
			size = end - offset
		}

		if parsed.isType(typeUUID) {
			if _, err := src.ReadAt(parsed.userType[:], offset+headerSize); err != nil {
				return nil, err
			}
			headerSize += 16
		}

		if size < headerSize || offset+size > end {
			return nil, fmt.Errorf(
				"box '%s' at offset %d has invalid size %d", parsed.boxType, offset, size,
			)
		}

		parsed.headerSize = headerSize
		parsed.payloadOffset = offset + headerSize
		parsed.payloadSize = size - headerSize

		if containerTypes[parsed.boxType] {
			children, err := parseBoxes(src, parsed.payloadOffset, parsed.end(), depth+1)
			if err != nil {
				return nil, err
			}
			parsed.children = children
		} else if parsed.isType(typeMeta) {
			// `meta` is a full box. Its version and flags precede the children.
			if parsed.payloadSize < 4 {
				return nil, fmt.Errorf("'meta' box at offset %d too short", offset)
			}
			prefix := make([]byte, 4)
			if _, err := src.ReadAt(prefix, parsed.payloadOffset); err != nil {
				return nil, err
			}
			parsed.fullBoxPrefix = prefix
			children, err := parseBoxes(
				src, parsed.payloadOffset+4, parsed.end(), depth+1,
			)
			if err != nil {
				return nil, err
			}
			parsed.children = children
		}

		result = append(result, parsed)
		offset += size
	}

	return result, nil
}

/*
serializedSize the size of the box once serialized, header included

Synthetic boxes always use the compact 8-byte header plus the uuid usertype
when applicable. Boxes read from a source keep their original header form.
*/
func (b *box) serializedSize() int64 {
	headerSize := b.headerSize
	if headerSize == 0 {
		headerSize = 8
		if b.isType(typeUUID) {
			headerSize += 16
		}
	}
	size := headerSize + int64(len(b.fullBoxPrefix))
	if b.children != nil {
		for _, child := range b.children {
			size += child.serializedSize()
		}
	} else if b.payload != nil {
		size += int64(len(b.payload))
	} else {
		size += b.payloadSize
	}
	return size
}

/*
writeBox serialize the box into the writer

	@param w io.Writer - the output stream
	@param src io.ReaderAt - the source stream backing copy-through payloads
*/
func (b *box) writeBox(w io.Writer, src io.ReaderAt) error {
	size := b.serializedSize()
	headerSize := b.headerSize
	if headerSize == 0 {
		headerSize = 8
		if b.isType(typeUUID) {
			headerSize += 16
		}
	}

	var header [8]byte
	useLargesize := headerSize == 16
	if b.isType(typeUUID) {
		useLargesize = headerSize == 32
	}
	if !useLargesize && size > int64(^uint32(0)) {
		return fmt.Errorf("box '%s' exceeds 32-bit size field", b.boxType)
	}
	if useLargesize {
		binary.BigEndian.PutUint32(header[0:4], 1)
	} else {
		binary.BigEndian.PutUint32(header[0:4], uint32(size))
	}
	copy(header[4:8], b.boxType[:])
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if useLargesize {
		var largesize [8]byte
		binary.BigEndian.PutUint64(largesize[:], uint64(size))
		if _, err := w.Write(largesize[:]); err != nil {
			return err
		}
	}
	if b.isType(typeUUID) {
		if _, err := w.Write(b.userType[:]); err != nil {
			return err
		}
	}
	if len(b.fullBoxPrefix) > 0 {
		if _, err := w.Write(b.fullBoxPrefix); err != nil {
			return err
		}
	}

	if b.children != nil {
		for _, child := range b.children {
			if err := child.writeBox(w, src); err != nil {
				return err
			}
		}
		return nil
	}
	if b.payload != nil {
		_, err := w.Write(b.payload)
		return err
	}
	// Copy-through from the source
	_, err := io.Copy(w, io.NewSectionReader(src, b.payloadOffset, b.payloadSize))
	return err
}

/*
readPayload materialize the box payload

	@param src io.ReaderAt - the source stream
	@returns the payload bytes
*/
func (b *box) readPayload(src io.ReaderAt) ([]byte, error) {
	if b.payload != nil {
		return b.payload, nil
	}
	buf := make([]byte, b.payloadSize)
	if _, err := src.ReadAt(buf, b.payloadOffset); err != nil {
		return nil, err
	}
	return buf, nil
}
