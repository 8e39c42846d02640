package rlp

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestEncode_Uint(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "80"},
		{1, "01"},
		{0x7f, "7f"},
		{0x80, "8180"},
		{0x400, "820400"},
		{0xffffffff, "84ffffffff"},
	}
	for _, c := range cases {
		enc, err := EncodeToBytes(c.in)
		if err != nil {
			t.Fatalf("encode %d: %v", c.in, err)
		}
		if !bytes.Equal(enc, mustDecodeHex(t, c.want)) {
			t.Fatalf("encode %d: got %x, want %s", c.in, enc, c.want)
		}
	}
}

func TestEncode_Strings(t *testing.T) {
	cases := []struct {
		in   []byte
		want string
	}{
		{nil, "80"},
		{[]byte{0x00}, "00"},
		{[]byte{0x7f}, "7f"},
		{[]byte{0x80}, "8180"},
		{[]byte("dog"), "83646f67"},
		{bytes.Repeat([]byte{0x61}, 56), "b8386161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161"},
	}
	for _, c := range cases {
		enc, err := EncodeToBytes(c.in)
		if err != nil {
			t.Fatalf("encode %x: %v", c.in, err)
		}
		if !bytes.Equal(enc, mustDecodeHex(t, c.want)) {
			t.Fatalf("encode %x: got %x, want %s", c.in, enc, c.want)
		}
	}
}

func TestEncode_BigInt(t *testing.T) {
	enc, err := EncodeToBytes(big.NewInt(1024))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc, []byte{0x82, 0x04, 0x00}) {
		t.Fatalf("got %x", enc)
	}
	enc, err = EncodeToBytes(new(big.Int))
	if err != nil {
		t.Fatalf("encode zero: %v", err)
	}
	if !bytes.Equal(enc, []byte{0x80}) {
		t.Fatalf("zero big.Int: got %x", enc)
	}
}

type rlpPair struct {
	A uint64
	B []byte
}

func TestEncode_StructAsList(t *testing.T) {
	enc, err := EncodeToBytes(&rlpPair{A: 5, B: []byte("cat")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc, mustDecodeHex(t, "c50583636174")) {
		t.Fatalf("got %x", enc)
	}

	var decoded rlpPair
	if err := DecodeBytes(enc, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.A != 5 || !bytes.Equal(decoded.B, []byte("cat")) {
		t.Fatalf("roundtrip mismatch: %+v", decoded)
	}
}

func TestEncode_NilPointerAsEmpty(t *testing.T) {
	type holder struct {
		Value *big.Int
	}
	enc, err := EncodeToBytes(&holder{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc, []byte{0xc1, 0x80}) {
		t.Fatalf("got %x", enc)
	}
}

func TestEncode_ByteArrayAsString(t *testing.T) {
	var arr [4]byte
	copy(arr[:], "abcd")
	enc, err := EncodeToBytes(arr)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc, mustDecodeHex(t, "8461626364")) {
		t.Fatalf("got %x", enc)
	}
}

func TestDecode_SliceOfStrings(t *testing.T) {
	enc, err := EncodeToBytes([][]byte{[]byte("cat"), []byte("dog")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc, mustDecodeHex(t, "c88363617483646f67")) {
		t.Fatalf("got %x", enc)
	}
	var decoded [][]byte
	if err := DecodeBytes(enc, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 || string(decoded[0]) != "cat" || string(decoded[1]) != "dog" {
		t.Fatalf("roundtrip mismatch: %q", decoded)
	}
}

func TestDecode_RejectsLeadingZeroInSize(t *testing.T) {
	// "b80100" declares a 1-byte long-form string, which must use the
	// short form instead.
	var out []byte
	if err := DecodeBytes(mustDecodeHex(t, "b80100"), &out); err == nil {
		t.Fatal("expected error for non-canonical size")
	}
}

func TestDecode_RejectsNonCanonicalSingleByte(t *testing.T) {
	// 0x817f encodes 0x7f with a length prefix; the canonical form is
	// the bare byte.
	var out []byte
	if err := DecodeBytes(mustDecodeHex(t, "817f"), &out); err == nil {
		t.Fatal("expected error for non-canonical single byte")
	}
}

func TestDecode_Uint64RejectsLeadingZero(t *testing.T) {
	s := NewStreamFromBytes(mustDecodeHex(t, "820001"))
	if _, err := s.Uint64(); err == nil {
		t.Fatal("expected error for leading zero integer")
	}
}

func TestStream_ListTraversal(t *testing.T) {
	enc := mustDecodeHex(t, "c88363617483646f67")
	s := NewStreamFromBytes(enc)
	if _, err := s.List(); err != nil {
		t.Fatalf("list: %v", err)
	}
	first, err := s.Bytes()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if string(first) != "cat" {
		t.Fatalf("first: %q", first)
	}
	if s.AtListEnd() {
		t.Fatal("should not be at list end yet")
	}
	second, err := s.Bytes()
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if string(second) != "dog" {
		t.Fatalf("second: %q", second)
	}
	if !s.AtListEnd() {
		t.Fatal("expected list end")
	}
	if err := s.ListEnd(); err != nil {
		t.Fatalf("list end: %v", err)
	}
}

func TestStream_Raw(t *testing.T) {
	enc := mustDecodeHex(t, "c88363617483646f67")
	s := NewStreamFromBytes(enc)
	raw, err := s.Raw()
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if !bytes.Equal(raw, enc) {
		t.Fatalf("raw mismatch: %x", raw)
	}
}

func TestAppendUint(t *testing.T) {
	buf := AppendUint(nil, 0)
	if !bytes.Equal(buf, []byte{0x80}) {
		t.Fatalf("zero: %x", buf)
	}
	buf = AppendUint(nil, 1024)
	if !bytes.Equal(buf, []byte{0x82, 0x04, 0x00}) {
		t.Fatalf("1024: %x", buf)
	}
}

func TestWrapList(t *testing.T) {
	wrapped := WrapList(mustDecodeHex(t, "8363617483646f67"))
	if !bytes.Equal(wrapped, mustDecodeHex(t, "c88363617483646f67")) {
		t.Fatalf("got %x", wrapped)
	}
	if !bytes.Equal(WrapList(nil), []byte{0xc0}) {
		t.Fatalf("empty list: %x", WrapList(nil))
	}
}
