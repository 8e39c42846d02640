package trie

import (
	"bytes"
	"fmt"
	"testing"
)

func hashHex(h [32]byte) string {
	return fmt.Sprintf("%x", h[:])
}

func TestTrie_EmptyRoot(t *testing.T) {
	tr := New()
	if got := hashHex(tr.Hash()); got != hashHex(EmptyRoot) {
		t.Fatalf("empty root: %s", got)
	}
}

func TestTrie_KnownRoots(t *testing.T) {
	tr := New()
	entries := [][2]string{
		{"doe", "reindeer"},
		{"dog", "puppy"},
		{"dogglesworth", "cat"},
	}
	for _, e := range entries {
		tr.Put([]byte(e[0]), []byte(e[1]))
	}
	want := "8aad789dff2f538bca5d8ea56e8abe10f4c7ba3a5dea95fea4cd6e7c3a1168d3"
	if got := hashHex(tr.Hash()); got != want {
		t.Fatalf("root: got %s, want %s", got, want)
	}
}

func TestTrie_SingleLongValue(t *testing.T) {
	tr := New()
	tr.Put([]byte("A"), bytes.Repeat([]byte("a"), 50))
	want := "d23786fb4a010da3ce639d66d5e904a11dbc02746d1ce25029e53290cabf28ab"
	if got := hashHex(tr.Hash()); got != want {
		t.Fatalf("root: got %s, want %s", got, want)
	}
}

func TestTrie_DeleteVector(t *testing.T) {
	tr := New()
	entries := [][2]string{
		{"do", "verb"},
		{"ether", "wookiedoo"},
		{"horse", "stallion"},
		{"shaman", "horse"},
		{"doge", "coin"},
		{"ether", ""},
		{"dog", "puppy"},
		{"shaman", ""},
	}
	for _, e := range entries {
		if e[1] == "" {
			tr.Delete([]byte(e[0]))
		} else {
			tr.Put([]byte(e[0]), []byte(e[1]))
		}
	}
	want := "5991bb8c6514148a29db676a14ac506cd2cd5775ace63c30a4fe457715e9ac84"
	if got := hashHex(tr.Hash()); got != want {
		t.Fatalf("root: got %s, want %s", got, want)
	}
}

func TestTrie_GetAfterPut(t *testing.T) {
	tr := New()
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("doge"), []byte("coin"))
	if got := tr.Get([]byte("dog")); !bytes.Equal(got, []byte("puppy")) {
		t.Fatalf("dog: %q", got)
	}
	if got := tr.Get([]byte("doge")); !bytes.Equal(got, []byte("coin")) {
		t.Fatalf("doge: %q", got)
	}
	if got := tr.Get([]byte("cat")); got != nil {
		t.Fatalf("cat should be absent, got %q", got)
	}
}

func TestTrie_CopyIsIndependent(t *testing.T) {
	tr := New()
	tr.Put([]byte("dog"), []byte("puppy"))
	baseRoot := tr.Hash()

	cpy := tr.Copy()
	cpy.Put([]byte("dog"), []byte("cat"))
	cpy.Put([]byte("horse"), []byte("stallion"))

	if tr.Hash() != baseRoot {
		t.Fatal("mutation leaked into the original trie")
	}
	if cpy.Hash() == baseRoot {
		t.Fatal("copy root unchanged after mutation")
	}
	if got := tr.Get([]byte("dog")); !bytes.Equal(got, []byte("puppy")) {
		t.Fatalf("original value changed: %q", got)
	}
	if got := tr.Get([]byte("horse")); got != nil {
		t.Fatalf("original grew an entry: %q", got)
	}
}

func TestTrie_EmptyValueDeletes(t *testing.T) {
	tr := New()
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("dog"), nil)
	if got := hashHex(tr.Hash()); got != hashHex(EmptyRoot) {
		t.Fatalf("root after delete-by-empty: %s", got)
	}
}

func TestTrie_SetThenResetKeepsRoot(t *testing.T) {
	tr := New()
	tr.Put([]byte("dog"), []byte("puppy"))
	tr.Put([]byte("horse"), []byte("stallion"))
	root := tr.Hash()

	tr.Put([]byte("dog"), []byte("cat"))
	tr.Put([]byte("dog"), []byte("puppy"))
	if tr.Hash() != root {
		t.Fatal("set-then-reset changed the root")
	}

	tr.Put([]byte("shaman"), []byte("horse"))
	tr.Delete([]byte("shaman"))
	if tr.Hash() != root {
		t.Fatal("insert-then-delete changed the root")
	}
}

func TestStackTrie_MatchesTrie(t *testing.T) {
	keys := [][]byte{
		{0x01}, {0x02}, {0x03, 0x04}, {0x80},
	}
	tr := New()
	st := NewStackTrie()
	for i, key := range keys {
		value := []byte{byte(0x10 + i)}
		tr.Put(key, value)
		if err := st.Update(key, value); err != nil {
			t.Fatalf("update %x: %v", key, err)
		}
	}
	if tr.Hash() != st.Hash() {
		t.Fatalf("stack trie root %x differs from trie root %x", st.Hash(), tr.Hash())
	}
}

func TestStackTrie_RejectsUnorderedInsert(t *testing.T) {
	st := NewStackTrie()
	if err := st.Update([]byte{0x02}, []byte{0x01}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := st.Update([]byte{0x01}, []byte{0x01}); err != ErrUnorderedInsertion {
		t.Fatalf("expected ErrUnorderedInsertion, got %v", err)
	}
	if err := st.Update([]byte{0x02}, []byte{0x01}); err != ErrUnorderedInsertion {
		t.Fatalf("expected ErrUnorderedInsertion for duplicate, got %v", err)
	}
}

func TestCompactEncoding(t *testing.T) {
	cases := []struct {
		hex     []byte
		compact []byte
	}{
		{[]byte{}, []byte{0x00}},
		{[]byte{16}, []byte{0x20}},
		{[]byte{1, 2, 3, 4, 5}, []byte{0x11, 0x23, 0x45}},
		{[]byte{0, 1, 2, 3, 4, 5}, []byte{0x00, 0x01, 0x23, 0x45}},
		{[]byte{15, 1, 12, 11, 8, 16}, []byte{0x3f, 0x1c, 0xb8}},
		{[]byte{0, 15, 1, 12, 11, 8, 16}, []byte{0x20, 0x0f, 0x1c, 0xb8}},
	}
	for _, c := range cases {
		if got := hexToCompact(c.hex); !bytes.Equal(got, c.compact) {
			t.Fatalf("hexToCompact(%v): got %x, want %x", c.hex, got, c.compact)
		}
		if got := compactToHex(c.compact); !bytes.Equal(got, c.hex) {
			t.Fatalf("compactToHex(%x): got %v, want %v", c.compact, got, c.hex)
		}
	}
}
