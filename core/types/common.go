// Package types defines the core chain data structures: identifiers,
// accounts, transactions, receipts, logs, headers and blocks.
package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	HashLength    = 32
	AddressLength = 20
	BloomLength   = 256
	NonceLength   = 8
)

// Hash represents the 32-byte Keccak256 hash of data.
type Hash [HashLength]byte

// Address represents the 20-byte address of an account.
type Address [AddressLength]byte

// Bloom represents a 2048-bit logs bloom filter.
type Bloom [BloomLength]byte

// BlockNonce is the 8-byte block nonce (legacy PoW, always zero post-merge).
type BlockNonce [NonceLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Big returns the hash interpreted as a big-endian integer.
func (h Hash) Big() *big.Int { return new(big.Int).SetBytes(h[:]) }

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, expecting a 0x-prefixed
// 64-digit hex string.
func (h *Hash) UnmarshalText(input []byte) error {
	return unmarshalFixedText("Hash", input, h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// BigToHash converts a big integer to a Hash, truncating to the low 32 bytes.
func BigToHash(b *big.Int) Hash {
	return BytesToHash(b.Bytes())
}

// BytesToAddress converts bytes to Address, left-padding if shorter than 20 bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string to Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the hex string representation of the address.
func (a Address) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// SetBytes sets the address from a byte slice.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero returns whether the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, expecting a 0x-prefixed
// 40-digit hex string.
func (a *Address) UnmarshalText(input []byte) error {
	return unmarshalFixedText("Address", input, a[:])
}

// unmarshalFixedText decodes a 0x-prefixed hex string of exactly len(out)
// bytes into out.
func unmarshalFixedText(typename string, input, out []byte) error {
	s := string(input)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if len(s) != 2*len(out) {
		return fmt.Errorf("hex string of length %d does not fit %s (%d bytes)", len(s), typename, len(out))
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(out, decoded)
	return nil
}

// Account represents an account leaf in the state trie:
// [nonce, balance, storageRoot, codeHash].
type Account struct {
	Nonce    uint64
	Balance  *big.Int
	Root     Hash   // storage trie root (EmptyRootHash for no storage)
	CodeHash []byte // keccak256 of code (EmptyCodeHash for EOAs)
}

// NewAccount creates a new account with zero balance and empty storage.
func NewAccount() Account {
	return Account{
		Balance:  new(big.Int),
		CodeHash: EmptyCodeHash.Bytes(),
		Root:     EmptyRootHash,
	}
}

// IsEmpty reports whether the account is empty per EIP-161:
// zero nonce, zero balance and no code.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 &&
		(a.Balance == nil || a.Balance.Sign() == 0) &&
		(len(a.CodeHash) == 0 || BytesToHash(a.CodeHash) == EmptyCodeHash)
}

var (
	// EmptyRootHash is the root hash of an empty trie: keccak256(rlp("")).
	EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyCodeHash is the hash of empty EVM bytecode: keccak256 of the empty string.
	EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

	// EmptyOmmersHash is the hash of an empty ommer list: keccak256(rlp([])).
	EmptyOmmersHash = HexToHash("1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")
)

// MarshalText implements encoding.TextMarshaler.
func (n BlockNonce) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", n[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *BlockNonce) UnmarshalText(input []byte) error {
	return unmarshalFixedText("BlockNonce", input, n[:])
}

// MarshalText implements encoding.TextMarshaler.
func (b Bloom) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", b[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bloom) UnmarshalText(input []byte) error {
	return unmarshalFixedText("Bloom", input, b[:])
}

// fromHex decodes a hex string, stripping an optional "0x" prefix.
func fromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
