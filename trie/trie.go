package trie

import (
	"bytes"
)

// Trie is an in-memory Merkle Patricia Trie. Mutations copy the nodes
// along the touched path, so Copy is O(1) and copies never observe each
// other's writes.
type Trie struct {
	root node
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{}
}

// Copy returns an independent copy of the trie sharing unmodified nodes
// with the original.
func (t *Trie) Copy() *Trie {
	return &Trie{root: t.root}
}

// Get returns the value stored under key, or nil if absent.
func (t *Trie) Get(key []byte) []byte {
	n := t.root
	k := keybytesToHex(key)
	for {
		switch cur := n.(type) {
		case nil:
			return nil
		case valueNode:
			return bytes.Clone(cur)
		case *shortNode:
			if len(k) < len(cur.Key) || !bytes.Equal(cur.Key, k[:len(cur.Key)]) {
				return nil
			}
			k = k[len(cur.Key):]
			n = cur.Val
		case *fullNode:
			n = cur.Children[k[0]]
			k = k[1:]
		default:
			return nil
		}
	}
}

// Put stores value under key. A nil or empty value deletes the key.
func (t *Trie) Put(key, value []byte) {
	if len(value) == 0 {
		t.Delete(key)
		return
	}
	t.root = insert(t.root, keybytesToHex(key), valueNode(bytes.Clone(value)))
}

// Delete removes the value stored under key, if any.
func (t *Trie) Delete(key []byte) {
	t.root = remove(t.root, keybytesToHex(key))
}

// Hash returns the root hash of the trie.
func (t *Trie) Hash() [32]byte {
	return hashRoot(t.root)
}

func insert(n node, key []byte, value valueNode) node {
	if len(key) == 0 {
		return value
	}
	switch cur := n.(type) {
	case nil:
		return &shortNode{Key: key, Val: value}

	case *shortNode:
		match := prefixLen(key, cur.Key)
		if match == len(cur.Key) {
			return &shortNode{Key: cur.Key, Val: insert(cur.Val, key[match:], value)}
		}
		// Diverging keys: split into a branch. The terminator guarantees
		// no stored key is a strict prefix of another, so both sides
		// have at least one nibble past the match.
		branch := &fullNode{}
		branch.Children[cur.Key[match]] = shortOrVal(cur.Key[match+1:], cur.Val)
		branch.Children[key[match]] = shortOrVal(key[match+1:], value)
		if match == 0 {
			return branch
		}
		return &shortNode{Key: key[:match], Val: branch}

	case *fullNode:
		cpy := cur.copy()
		idx := key[0]
		cpy.Children[idx] = insert(cur.Children[idx], key[1:], value)
		return cpy

	case valueNode:
		// Keys carry a terminator nibble, so a value is only reachable
		// with an exhausted key, handled above.
		panic("trie: value node hit with remaining key")

	default:
		panic("trie: unknown node type")
	}
}

// shortOrVal wraps val in a shortNode for the remaining key, or returns it
// directly when no key is left.
func shortOrVal(key []byte, val node) node {
	if len(key) == 0 {
		return val
	}
	return &shortNode{Key: key, Val: val}
}

func remove(n node, key []byte) node {
	switch cur := n.(type) {
	case nil:
		return nil

	case valueNode:
		if len(key) == 0 {
			return nil
		}
		return cur

	case *shortNode:
		match := prefixLen(key, cur.Key)
		if match < len(cur.Key) {
			return cur
		}
		if match == len(key) {
			return nil
		}
		child := remove(cur.Val, key[match:])
		if child == nil {
			return nil
		}
		if short, ok := child.(*shortNode); ok {
			return &shortNode{Key: concat(cur.Key, short.Key), Val: short.Val}
		}
		return &shortNode{Key: cur.Key, Val: child}

	case *fullNode:
		cpy := cur.copy()
		idx := key[0]
		cpy.Children[idx] = remove(cur.Children[idx], key[1:])

		pos := -1
		count := 0
		for i, child := range cpy.Children {
			if child != nil {
				count++
				pos = i
			}
		}
		if count >= 2 {
			return cpy
		}
		if count == 0 {
			return nil
		}
		// A single child remains: collapse the branch into a shortNode.
		if pos == 16 {
			return &shortNode{Key: []byte{terminatorByte}, Val: cpy.Children[16]}
		}
		if short, ok := cpy.Children[pos].(*shortNode); ok {
			return &shortNode{Key: concat([]byte{byte(pos)}, short.Key), Val: short.Val}
		}
		return &shortNode{Key: []byte{byte(pos)}, Val: cpy.Children[pos]}

	default:
		panic("trie: unknown node type")
	}
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
