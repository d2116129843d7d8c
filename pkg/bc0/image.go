package bc0

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so the same program always encodes to
// the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bc0: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EncodeImage serializes a parsed Program to CBOR bytes.
func EncodeImage(p *Program) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// DecodeImage deserializes a Program previously written by EncodeImage.
func DecodeImage(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("bc0: unmarshal image: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("bc0: invalid image: %w", err)
	}
	return &p, nil
}
