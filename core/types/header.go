package types

import (
	"math/big"
)

// Header is a block header. The tail fields after Nonce are present on the
// wire only from the hardfork that introduced them; a nil pointer means the
// field is absent from the encoding.
type Header struct {
	ParentHash  Hash
	OmmersHash  Hash
	Beneficiary Address
	StateRoot   Hash
	TxRoot      Hash
	ReceiptRoot Hash
	Bloom       Bloom
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Timestamp   uint64
	ExtraData   []byte
	MixHash     Hash // prevrandao after the merge
	Nonce       BlockNonce

	BaseFee          *big.Int // EIP-1559
	WithdrawalsRoot  *Hash    // EIP-4895
	BlobGasUsed      *uint64  // EIP-4844
	ExcessBlobGas    *uint64  // EIP-4844
	ParentBeaconRoot *Hash    // EIP-4788
	RequestsHash     *Hash    // EIP-7685
}

// Hash returns the keccak256 hash of the header's RLP encoding.
func (h *Header) Hash() Hash {
	enc, err := h.MarshalRLP()
	if err != nil {
		panic("types: header encoding failed: " + err.Error())
	}
	return keccak256Hash(enc)
}

// Copy returns a deep copy of the header.
func CopyHeader(h *Header) *Header {
	cpy := *h
	cpy.Difficulty = copyBig(h.Difficulty)
	cpy.Number = copyBig(h.Number)
	cpy.ExtraData = copyBytes(h.ExtraData)
	cpy.BaseFee = copyBig(h.BaseFee)
	cpy.WithdrawalsRoot = copyHashPtr(h.WithdrawalsRoot)
	cpy.ParentBeaconRoot = copyHashPtr(h.ParentBeaconRoot)
	cpy.RequestsHash = copyHashPtr(h.RequestsHash)
	cpy.BlobGasUsed = copyUint64Ptr(h.BlobGasUsed)
	cpy.ExcessBlobGas = copyUint64Ptr(h.ExcessBlobGas)
	return &cpy
}

func copyHashPtr(h *Hash) *Hash {
	if h == nil {
		return nil
	}
	cpy := *h
	return &cpy
}

func copyUint64Ptr(u *uint64) *uint64 {
	if u == nil {
		return nil
	}
	cpy := *u
	return &cpy
}
