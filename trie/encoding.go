package trie

// Key encodings used by the trie:
//
// KEYBYTES contains the actual key and is the input to the trie API.
// HEX has one byte per nibble, plus an optional trailing terminator
// marking a leaf. It is the in-memory form of node keys.
// COMPACT (hex-prefix encoding) packs two nibbles per byte with a flag
// nibble up front and is what goes into the node RLP.

// terminatorByte flags a hex key as ending at a value.
const terminatorByte = 16

func keybytesToHex(key []byte) []byte {
	nibbles := make([]byte, len(key)*2+1)
	for i, b := range key {
		nibbles[i*2] = b / 16
		nibbles[i*2+1] = b % 16
	}
	nibbles[len(nibbles)-1] = terminatorByte
	return nibbles
}

func hexToKeybytes(hex []byte) []byte {
	if hasTerm(hex) {
		hex = hex[:len(hex)-1]
	}
	if len(hex)%2 != 0 {
		panic("trie: odd length hex key")
	}
	key := make([]byte, len(hex)/2)
	for i := 0; i < len(key); i++ {
		key[i] = hex[i*2]<<4 | hex[i*2+1]
	}
	return key
}

func hexToCompact(hex []byte) []byte {
	terminator := byte(0)
	if hasTerm(hex) {
		terminator = 1
		hex = hex[:len(hex)-1]
	}
	buf := make([]byte, len(hex)/2+1)
	buf[0] = terminator << 5 // leaf flag 0x20
	if len(hex)&1 == 1 {
		buf[0] |= 1 << 4 // odd flag 0x10
		buf[0] |= hex[0]
		hex = hex[1:]
	}
	for i := 0; i < len(hex); i += 2 {
		buf[i/2+1] = hex[i]<<4 | hex[i+1]
	}
	return buf
}

func compactToHex(compact []byte) []byte {
	if len(compact) == 0 {
		return compact
	}
	base := keybytesToHex(compact)
	// The keybytes terminator applies only when the leaf flag is set.
	if base[0] < 2 {
		base = base[:len(base)-1]
	}
	// Skip the flag nibble, and the padding nibble for even keys.
	chop := 2 - base[0]&1
	return base[chop:]
}

// prefixLen returns the length of the common prefix of a and b.
func prefixLen(a, b []byte) int {
	var i int
	for i = 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

// hasTerm reports whether the hex key ends with the terminator.
func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == terminatorByte
}
