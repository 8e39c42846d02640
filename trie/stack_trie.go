package trie

import (
	"bytes"
	"errors"
)

// ErrUnorderedInsertion is returned when keys are not inserted in
// ascending order.
var ErrUnorderedInsertion = errors.New("trie: keys must be inserted in ascending order")

var errEmptyKey = errors.New("trie: empty key")

// StackTrie derives the root of a trie from key-sorted input. It is used
// for list commitments (transaction, receipt and withdrawal roots) where
// all pairs are known up front.
type StackTrie struct {
	trie    *Trie
	lastKey []byte
}

// NewStackTrie creates an empty builder.
func NewStackTrie() *StackTrie {
	return &StackTrie{trie: New()}
}

// Update inserts a key/value pair. Keys must arrive in strictly ascending
// lexicographic order.
func (st *StackTrie) Update(key, value []byte) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	if st.lastKey != nil && bytes.Compare(key, st.lastKey) <= 0 {
		return ErrUnorderedInsertion
	}
	st.lastKey = bytes.Clone(key)
	st.trie.Put(key, value)
	return nil
}

// Hash returns the root hash of the inserted pairs.
func (st *StackTrie) Hash() [32]byte {
	return st.trie.Hash()
}
