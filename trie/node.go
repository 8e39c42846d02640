package trie

type node interface {
	isNode()
}

// fullNode is a branch with one child per nibble plus a value slot at
// index 16 for keys ending at this node.
type fullNode struct {
	Children [17]node
}

// shortNode is an extension (Val is a child node) or a leaf (Val is a
// valueNode and Key carries the terminator).
type shortNode struct {
	Key []byte // hex encoding
	Val node
}

// valueNode holds a stored value.
type valueNode []byte

func (*fullNode) isNode()  {}
func (*shortNode) isNode() {}
func (valueNode) isNode()  {}

func (n *fullNode) copy() *fullNode {
	cpy := *n
	return &cpy
}

func (n *shortNode) copy() *shortNode {
	cpy := *n
	return &cpy
}
