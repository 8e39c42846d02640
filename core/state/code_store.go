package state

import (
	"github.com/NomicFoundation/edr-sub004/core/types"
	"github.com/NomicFoundation/edr-sub004/crypto"
)

// CodeStore is a content-addressed bytecode store with reference counting.
// Deduplicated code survives as long as any account references it.
type CodeStore struct {
	codes map[types.Hash]*codeEntry
}

type codeEntry struct {
	code []byte
	refs int
}

// NewCodeStore creates an empty code store.
func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[types.Hash]*codeEntry)}
}

// Insert adds code and returns its hash, bumping the reference count if the
// code is already present. Empty code maps to the canonical empty hash
// without being stored.
func (cs *CodeStore) Insert(code []byte) types.Hash {
	if len(code) == 0 {
		return types.EmptyCodeHash
	}
	hash := crypto.Keccak256Hash(code)
	if entry, ok := cs.codes[hash]; ok {
		entry.refs++
		return hash
	}
	stored := make([]byte, len(code))
	copy(stored, code)
	cs.codes[hash] = &codeEntry{code: stored, refs: 1}
	return hash
}

// Get returns the code for hash, or nil if absent. The empty hash returns
// nil without error.
func (cs *CodeStore) Get(hash types.Hash) ([]byte, bool) {
	if hash == types.EmptyCodeHash || hash.IsZero() {
		return nil, true
	}
	entry, ok := cs.codes[hash]
	if !ok {
		return nil, false
	}
	return entry.code, true
}

// Remove decrements the reference count for hash, dropping the code when
// it reaches zero.
func (cs *CodeStore) Remove(hash types.Hash) {
	if hash == types.EmptyCodeHash || hash.IsZero() {
		return
	}
	entry, ok := cs.codes[hash]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(cs.codes, hash)
	}
}

// Copy returns an independent copy of the store.
func (cs *CodeStore) Copy() *CodeStore {
	cpy := &CodeStore{codes: make(map[types.Hash]*codeEntry, len(cs.codes))}
	for hash, entry := range cs.codes {
		cpy.codes[hash] = &codeEntry{code: entry.code, refs: entry.refs}
	}
	return cpy
}
