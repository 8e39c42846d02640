package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/NomicFoundation/edr-sub004/core/types"
)

// SignatureLength is the byte length of a recoverable signature: R || S || V.
const SignatureLength = 65

var (
	// ErrInvalidSignatureLength is returned when a signature is not 65 bytes.
	ErrInvalidSignatureLength = errors.New("crypto: signature must be 65 bytes")

	// ErrRecoveryFailed is returned when public key recovery fails.
	ErrRecoveryFailed = errors.New("crypto: public key recovery failed")
)

// VerificationError is returned when a recovered signer does not match the
// expected address.
type VerificationError struct {
	Expected  types.Address
	Recovered types.Address
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("crypto: signer mismatch: expected %s, recovered %s", e.Expected, e.Recovered)
}

// GenerateKey generates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return gethcrypto.GenerateKey()
}

// HexToECDSA parses a hex-encoded secp256k1 private key.
func HexToECDSA(hexkey string) (*ecdsa.PrivateKey, error) {
	return gethcrypto.HexToECDSA(hexkey)
}

// Sign produces a recoverable 65-byte [R || S || V] signature over the given
// 32-byte hash. V is the raw recovery id (0 or 1).
func Sign(hash types.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	return gethcrypto.Sign(hash[:], key)
}

// PubkeyToAddress derives the Ethereum address of a public key:
// the low 20 bytes of keccak256 of the uncompressed point.
func PubkeyToAddress(pub ecdsa.PublicKey) types.Address {
	addr := gethcrypto.PubkeyToAddress(pub)
	return types.BytesToAddress(addr[:])
}

// RecoverAddress recovers the signer address from a 32-byte hash and the
// signature components. v must be the raw recovery id (0 or 1).
func RecoverAddress(hash types.Hash, r, s *big.Int, v byte) (types.Address, error) {
	if v > 1 {
		return types.Address{}, ErrRecoveryFailed
	}
	sig := make([]byte, SignatureLength)
	rb, sb := r.Bytes(), s.Bytes()
	if len(rb) > 32 || len(sb) > 32 {
		return types.Address{}, ErrInvalidSignatureLength
	}
	copy(sig[32-len(rb):32], rb)
	copy(sig[64-len(sb):64], sb)
	sig[64] = v

	pub, err := gethcrypto.SigToPub(hash[:], sig)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	return PubkeyToAddress(*pub), nil
}

// VerifySigner recovers the signer and checks it against expected, returning
// a VerificationError on mismatch.
func VerifySigner(expected types.Address, hash types.Hash, r, s *big.Int, v byte) error {
	recovered, err := RecoverAddress(hash, r, s, v)
	if err != nil {
		return err
	}
	if recovered != expected {
		return &VerificationError{Expected: expected, Recovered: recovered}
	}
	return nil
}
