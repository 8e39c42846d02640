package types

import (
	"golang.org/x/crypto/sha3"

	"github.com/NomicFoundation/edr-sub004/rlp"
)

// keccak256Hash computes the Keccak-256 hash of the concatenation of data.
func keccak256Hash(data ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}

// CreateAddress computes the address of a contract created by sender with
// the given nonce.
func CreateAddress(sender Address, nonce uint64) Address {
	enc, _ := rlp.EncodeToBytes(&struct {
		Sender Address
		Nonce  uint64
	}{sender, nonce})
	digest := keccak256Hash(enc)
	var addr Address
	copy(addr[:], digest[12:])
	return addr
}
