// Package asset implements the Fusabi script asset pipeline: the storable
// Script representation, the extension-dispatched loader, and the Store
// that owns loaded assets and hands out handles.
//
// Scripts hold serialized bytecode rather than live chunks so that a
// published asset is a plain, ownership-neutral byte buffer: safe to share
// read-only across any number of concurrent consumers, with deserialization
// deferred to the consumer that actually executes it.
package asset

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/fusabi-lang/fusabi/vm"
)

// Script is a loaded Fusabi script asset: a name plus the serialized
// bytecode ready for execution. Immutable once constructed; updates are
// published as new Script values, never patched in place.
type Script struct {
	// Name of the script, usually derived from the filename.
	Name string

	// Bytecode is the serialized chunk. Deserialize with Chunk to execute.
	Bytecode []byte
}

// NewScript creates a script asset. The bytecode buffer is copied so the
// asset cannot alias a caller-owned slice.
func NewScript(name string, bytecode []byte) *Script {
	owned := make([]byte, len(bytecode))
	copy(owned, bytecode)
	return &Script{Name: name, Bytecode: owned}
}

// Chunk deserializes the asset's bytecode into an executable chunk.
// This is not cheap; callers that execute repeatedly should hold on to
// the result rather than re-deserializing each run.
func (s *Script) Chunk() (*vm.Chunk, error) {
	chunk, err := vm.Deserialize(s.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("asset: script %q: %w", s.Name, err)
	}
	return chunk, nil
}

// ---------------------------------------------------------------------------
// .fzb container header
// ---------------------------------------------------------------------------

// HeaderMagic identifies a .fzb container header ("FZB1" little-endian).
const HeaderMagic uint32 = 0x31425A46

// HeaderVersion is the current container format version.
const HeaderVersion uint32 = 1

// HeaderSize is the encoded size of a Header in bytes.
const HeaderSize = 16

// Header is the optional metadata prefix of a .fzb file. Files without a
// header are accepted as raw serialized bytecode; files with one must
// carry a supported magic/version pair.
type Header struct {
	Magic     uint32
	Version   uint32
	Timestamp uint64 // Unix seconds at write time
}

// NewHeader returns a header for the current container version, stamped
// with the current time.
func NewHeader() Header {
	return Header{
		Magic:     HeaderMagic,
		Version:   HeaderVersion,
		Timestamp: uint64(time.Now().Unix()),
	}
}

// Encode serializes the header to its 16-byte little-endian form.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Version)
	binary.LittleEndian.PutUint64(buf[8:], h.Timestamp)
	return buf
}

// DecodeHeader reads a header from the start of data. The second return
// is false when data is too short or does not begin with the header
// magic, meaning the file carries no header at all.
func DecodeHeader(data []byte) (Header, bool) {
	if len(data) < HeaderSize {
		return Header{}, false
	}
	h := Header{
		Magic:     binary.LittleEndian.Uint32(data[0:]),
		Version:   binary.LittleEndian.Uint32(data[4:]),
		Timestamp: binary.LittleEndian.Uint64(data[8:]),
	}
	if h.Magic != HeaderMagic {
		return Header{}, false
	}
	return h, true
}
