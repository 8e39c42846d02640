// Package crypto provides the hashing and signature primitives used by the
// chain: Keccak-256 and recoverable secp256k1 ECDSA signatures.
package crypto

import (
	"github.com/NomicFoundation/edr-sub004/core/types"
	"golang.org/x/crypto/sha3"
)

var (
	// KeccakEmpty is keccak256 of the empty string, the code hash of an
	// externally-owned account.
	KeccakEmpty = Keccak256Hash(nil)

	// KeccakNullRLP is keccak256 of the RLP encoding of the empty string,
	// the root hash of an empty trie.
	KeccakNullRLP = Keccak256Hash([]byte{0x80})
)

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
