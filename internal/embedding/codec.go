// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package embedding

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrMalformedVector is returned when a stored vector cannot be decoded.
var ErrMalformedVector = errors.New("malformed vector")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Float32 values keep their width so the round trip is exact.
	opts := cbor.CoreDetEncOptions()
	opts.ShortestFloat = cbor.ShortestFloatNone
	encMode, err = opts.EncMode()
	if err != nil {
		panic("embedding: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("embedding: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeVector serializes a vector for storage.
func EncodeVector(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return encMode.Marshal(vec)
}

// DecodeVector restores a vector written by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	var vec []float32
	if err := decMode.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedVector, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedVector)
	}
	return vec, nil
}
