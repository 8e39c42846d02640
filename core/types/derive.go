package types

import (
	"bytes"
	"sort"

	"github.com/NomicFoundation/edr-sub004/rlp"
	"github.com/NomicFoundation/edr-sub004/trie"
)

// DerivableList is a list whose elements can be encoded into a trie to
// derive a commitment root.
type DerivableList interface {
	Len() int
	EncodeIndex(i int) ([]byte, error)
}

// DeriveRoot computes the Merkle-Patricia root of the list, keyed by
// rlp(index). Keys are inserted in lexicographic order since the trie
// builder requires sorted input and rlp(index) ordering is not numeric:
// rlp(1..127) sorts before rlp(0).
func DeriveRoot(list DerivableList) (Hash, error) {
	if list.Len() == 0 {
		return EmptyRootHash, nil
	}
	type pair struct {
		key, value []byte
	}
	pairs := make([]pair, list.Len())
	for i := 0; i < list.Len(); i++ {
		value, err := list.EncodeIndex(i)
		if err != nil {
			return Hash{}, err
		}
		pairs[i] = pair{key: rlp.AppendUint(nil, uint64(i)), value: value}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].key, pairs[j].key) < 0
	})

	builder := trie.NewStackTrie()
	for _, p := range pairs {
		if err := builder.Update(p.key, p.value); err != nil {
			return Hash{}, err
		}
	}
	return Hash(builder.Hash()), nil
}

// Transactions implements DerivableList over a transaction list.
type Transactions []*Transaction

func (txs Transactions) Len() int { return len(txs) }

// EncodeIndex returns the trie value for the i'th transaction: the envelope
// bytes, which for legacy transactions are the bare RLP list.
func (txs Transactions) EncodeIndex(i int) ([]byte, error) {
	return txs[i].EnvelopeRLP(), nil
}

// Receipts implements DerivableList over a receipt list.
type Receipts []*Receipt

func (rs Receipts) Len() int { return len(rs) }

func (rs Receipts) EncodeIndex(i int) ([]byte, error) {
	return rs[i].MarshalBinary()
}

func (ws Withdrawals) Len() int { return len(ws) }

func (ws Withdrawals) EncodeIndex(i int) ([]byte, error) {
	return rlp.EncodeToBytes(ws[i])
}
