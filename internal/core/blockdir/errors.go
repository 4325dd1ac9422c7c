package blockdir

import (
	"fmt"
)

// BlockCorruptError means a block's decompressed content does not match
// its name.
type BlockCorruptError struct {
	Hash       BlockHash
	ActualHash BlockHash
}

func (e *BlockCorruptError) Error() string {
	return fmt.Sprintf("block %s corrupt; actual hash %s", e.Hash, e.ActualHash)
}

// BlockMissingError means an address points at a hash with no block file.
type BlockMissingError struct {
	Hash BlockHash
}

func (e *BlockMissingError) Error() string {
	return fmt.Sprintf("block %s is missing", e.Hash)
}

// AddressTooLongError means an address extends past the end of its
// block's decompressed content.
type AddressTooLongError struct {
	Address   Address
	ActualLen int
}

func (e *AddressTooLongError) Error() string {
	return fmt.Sprintf("address %s start %d len %d extends beyond decompressed block length %d",
		e.Address.Hash, e.Address.Start, e.Address.Len, e.ActualLen)
}

// ShortBlockError means index entries reference more bytes than the
// block actually holds.
type ShortBlockError struct {
	Hash          BlockHash
	ActualLen     int
	ReferencedLen uint64
}

func (e *ShortBlockError) Error() string {
	return fmt.Sprintf("block %s actual length is %d but indexes reference %d",
		e.Hash, e.ActualLen, e.ReferencedLen)
}

// WriteBlockError wraps an IO failure while storing a block.
type WriteBlockError struct {
	Hash BlockHash
	Err  error
}

func (e *WriteBlockError) Error() string {
	return fmt.Sprintf("write block %s: %v", e.Hash, e.Err)
}

func (e *WriteBlockError) Unwrap() error {
	return e.Err
}
