package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Chunk codec: "FSBC" wire format
// ---------------------------------------------------------------------------
//
// Serialized chunks are the only representation allowed to cross asset
// boundaries. Format:
//
//	[magic:4 "FSBC"] [version:2 big-endian] [body: canonical CBOR]
//
// Canonical CBOR encoding is deterministic, so compiling the same source
// twice yields byte-identical output.

// ChunkMagic identifies serialized Fusabi chunks.
var ChunkMagic = []byte{'F', 'S', 'B', 'C'}

// chunkHeaderSize is magic plus the format version.
const chunkHeaderSize = 6

// Codec errors. Deserialize failures wrap one of these sentinels.
var (
	ErrTruncated          = errors.New("vm: bytecode too short")
	ErrBadMagic           = errors.New("vm: invalid bytecode magic")
	ErrUnsupportedVersion = errors.New("vm: unsupported bytecode version")
)

var chunkEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	chunkEncMode = em
}

// Serialize encodes a chunk to the FSBC wire format. It fails on chunks
// whose constant pool holds kinds the wire format cannot represent.
func Serialize(c *Chunk) ([]byte, error) {
	if c == nil {
		return nil, errors.New("vm: serialize nil chunk")
	}
	for i, k := range c.Constants {
		switch k.Kind {
		case KindInt, KindFloat, KindString:
		default:
			return nil, fmt.Errorf("vm: constant %d has unserializable kind %s", i, k.Kind)
		}
	}

	body, err := chunkEncMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("vm: encode chunk: %w", err)
	}

	buf := make([]byte, 0, chunkHeaderSize+len(body))
	buf = append(buf, ChunkMagic...)
	buf = binary.BigEndian.AppendUint16(buf, c.Version)
	buf = append(buf, body...)
	return buf, nil
}

// Deserialize decodes a chunk from the FSBC wire format. Malformed or
// version-mismatched input is rejected before the body is decoded.
func Deserialize(data []byte) (*Chunk, error) {
	if len(data) < chunkHeaderSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrTruncated, chunkHeaderSize, len(data))
	}
	if !bytes.Equal(data[0:4], ChunkMagic) {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrBadMagic, ChunkMagic, data[0:4])
	}
	version := binary.BigEndian.Uint16(data[4:6])
	if version > ChunkVersion {
		return nil, fmt.Errorf("%w: chunk version %d is newer than supported version %d",
			ErrUnsupportedVersion, version, ChunkVersion)
	}

	var c Chunk
	if err := cbor.Unmarshal(data[chunkHeaderSize:], &c); err != nil {
		return nil, fmt.Errorf("vm: decode chunk: %w", err)
	}
	if c.Version != version {
		return nil, fmt.Errorf("%w: header version %d does not match body version %d",
			ErrUnsupportedVersion, version, c.Version)
	}
	return &c, nil
}
