package blockdir

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the size in bytes of a block hash (BLAKE2b-512).
const HashSize = blake2b.Size

// BlockHash identifies a block by the BLAKE2b-512 digest of its
// uncompressed content, rendered as 128 lowercase hex characters.
type BlockHash [HashSize]byte

// HashBytes computes the block hash of the given content.
func HashBytes(data []byte) BlockHash {
	return blake2b.Sum512(data)
}

// ParseHash parses a lowercase hex block hash.
func ParseHash(s string) (BlockHash, error) {
	var h BlockHash
	if len(s) != HashSize*2 {
		return h, fmt.Errorf("invalid block hash length %d", len(s))
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return h, fmt.Errorf("invalid block hash %q", s)
		}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid block hash %q: %w", s, err)
	}
	copy(h[:], raw)
	return h, nil
}

// String returns the lowercase hex form.
func (h BlockHash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler so hashes serialize as
// hex strings in JSON.
func (h BlockHash) MarshalText() ([]byte, error) {
	dst := make([]byte, HashSize*2)
	hex.Encode(dst, h[:])
	return dst, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *BlockHash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
