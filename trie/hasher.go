package trie

import (
	"golang.org/x/crypto/sha3"

	"github.com/NomicFoundation/edr-sub004/rlp"
)

// EmptyRoot is the root hash of an empty trie: keccak256(rlp("")).
var EmptyRoot = [32]byte{
	0x56, 0xe8, 0x1f, 0x17, 0x1b, 0xcc, 0x55, 0xa6,
	0xff, 0x83, 0x45, 0xe6, 0x92, 0xc0, 0xf8, 0x6e,
	0x5b, 0x48, 0xe0, 0x1b, 0x99, 0x6c, 0xad, 0xc0,
	0x01, 0x62, 0x2f, 0xb5, 0xe3, 0x63, 0xb4, 0x21,
}

func keccak256(data []byte) [32]byte {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	var out [32]byte
	d.Sum(out[:0])
	return out
}

// encodeNode returns the full RLP encoding of n.
func encodeNode(n node) []byte {
	switch n := n.(type) {
	case valueNode:
		return rlp.EncodeBytes(n)
	case *shortNode:
		var payload []byte
		payload = append(payload, rlp.EncodeBytes(hexToCompact(n.Key))...)
		if val, ok := n.Val.(valueNode); ok && hasTerm(n.Key) {
			payload = append(payload, rlp.EncodeBytes(val)...)
		} else {
			payload = append(payload, nodeRef(n.Val)...)
		}
		return rlp.WrapList(payload)
	case *fullNode:
		var payload []byte
		for i := 0; i < 16; i++ {
			if n.Children[i] == nil {
				payload = append(payload, 0x80)
				continue
			}
			payload = append(payload, nodeRef(n.Children[i])...)
		}
		if val, ok := n.Children[16].(valueNode); ok {
			payload = append(payload, rlp.EncodeBytes(val)...)
		} else {
			payload = append(payload, 0x80)
		}
		return rlp.WrapList(payload)
	default:
		panic("trie: unknown node type")
	}
}

// nodeRef returns the reference to n from its parent: nodes whose encoding
// is shorter than 32 bytes are inlined, larger ones are replaced by their
// keccak256 hash.
func nodeRef(n node) []byte {
	enc := encodeNode(n)
	if len(enc) < 32 {
		return enc
	}
	h := keccak256(enc)
	return rlp.EncodeBytes(h[:])
}

// hashRoot returns the root hash of n.
func hashRoot(n node) [32]byte {
	if n == nil {
		return EmptyRoot
	}
	return keccak256(encodeNode(n))
}
