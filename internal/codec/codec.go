// Package codec provides the canonical encoding and hashing used for
// run-log records and kernel state digests. Encoding is CBOR Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer form, no indefinite-length items. The same logical record
// always produces identical bytes, which is what makes the hash chain
// and replay comparison meaningful.
//
// Hashed structures must carry only integers, strings, byte slices,
// and nested structs of the same. No floating point ever enters a
// hashed field.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v with Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// MustMarshal encodes v and panics on failure. Hashed kernel records
// are plain integer/string structs; an encoding failure on one is a
// programming error, not a runtime condition.
func MustMarshal(v any) []byte {
	data, err := encMode.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("codec: canonical encoding failed: %v", err))
	}
	return data
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value, used to carry record
// payloads through the run log without re-decoding. Type alias so
// consumers import only internal/codec.
type RawMessage = cbor.RawMessage
