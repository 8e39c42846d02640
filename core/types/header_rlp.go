package types

import (
	"errors"

	"github.com/NomicFoundation/edr-sub004/rlp"
)

var errHeaderFieldGap = errors.New("header has a gap in its optional field tail")

// MarshalRLP encodes the header. Optional tail fields are written up to the
// last one that is set; a set field after an unset one is an error since
// the wire format cannot represent the gap.
func (h *Header) MarshalRLP() ([]byte, error) {
	var payload []byte
	appendField := func(val interface{}) error {
		enc, err := rlp.EncodeToBytes(val)
		if err != nil {
			return err
		}
		payload = append(payload, enc...)
		return nil
	}

	fixed := []interface{}{
		h.ParentHash, h.OmmersHash, h.Beneficiary,
		h.StateRoot, h.TxRoot, h.ReceiptRoot, h.Bloom,
		bigOrZero(h.Difficulty), bigOrZero(h.Number),
		h.GasLimit, h.GasUsed, h.Timestamp, h.ExtraData,
		h.MixHash, h.Nonce,
	}
	for _, field := range fixed {
		if err := appendField(field); err != nil {
			return nil, err
		}
	}

	tail := []struct {
		set bool
		val interface{}
	}{
		{h.BaseFee != nil, h.BaseFee},
		{h.WithdrawalsRoot != nil, h.WithdrawalsRoot},
		{h.BlobGasUsed != nil, h.BlobGasUsed},
		{h.ExcessBlobGas != nil, h.ExcessBlobGas},
		{h.ParentBeaconRoot != nil, h.ParentBeaconRoot},
		{h.RequestsHash != nil, h.RequestsHash},
	}
	last := -1
	for i, field := range tail {
		if field.set {
			last = i
		}
	}
	for i := 0; i <= last; i++ {
		if !tail[i].set {
			return nil, errHeaderFieldGap
		}
		if err := appendField(tail[i].val); err != nil {
			return nil, err
		}
	}
	return rlp.WrapList(payload), nil
}

// UnmarshalRLP decodes the header, accepting any valid prefix of the
// optional field tail.
func (h *Header) UnmarshalRLP(data []byte) error {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return err
	}

	decoded := Header{}
	readHash := func(dst *Hash) error {
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		if len(b) != HashLength {
			return rlp.ErrCanonSize
		}
		copy(dst[:], b)
		return nil
	}

	if err := readHash(&decoded.ParentHash); err != nil {
		return err
	}
	if err := readHash(&decoded.OmmersHash); err != nil {
		return err
	}
	beneficiary, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(beneficiary) != AddressLength {
		return rlp.ErrCanonSize
	}
	copy(decoded.Beneficiary[:], beneficiary)
	if err := readHash(&decoded.StateRoot); err != nil {
		return err
	}
	if err := readHash(&decoded.TxRoot); err != nil {
		return err
	}
	if err := readHash(&decoded.ReceiptRoot); err != nil {
		return err
	}
	bloomBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(bloomBytes) != BloomLength {
		return rlp.ErrCanonSize
	}
	copy(decoded.Bloom[:], bloomBytes)
	if decoded.Difficulty, err = s.BigInt(); err != nil {
		return err
	}
	if decoded.Number, err = s.BigInt(); err != nil {
		return err
	}
	if decoded.GasLimit, err = s.Uint64(); err != nil {
		return err
	}
	if decoded.GasUsed, err = s.Uint64(); err != nil {
		return err
	}
	if decoded.Timestamp, err = s.Uint64(); err != nil {
		return err
	}
	extra, err := s.Bytes()
	if err != nil {
		return err
	}
	decoded.ExtraData = copyBytes(extra)
	if err := readHash(&decoded.MixHash); err != nil {
		return err
	}
	nonceBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(nonceBytes) != NonceLength {
		return rlp.ErrCanonSize
	}
	copy(decoded.Nonce[:], nonceBytes)

	if !s.AtListEnd() {
		if decoded.BaseFee, err = s.BigInt(); err != nil {
			return err
		}
	}
	if !s.AtListEnd() {
		var root Hash
		if err := readHash(&root); err != nil {
			return err
		}
		decoded.WithdrawalsRoot = &root
	}
	if !s.AtListEnd() {
		used, err := s.Uint64()
		if err != nil {
			return err
		}
		decoded.BlobGasUsed = &used
	}
	if !s.AtListEnd() {
		excess, err := s.Uint64()
		if err != nil {
			return err
		}
		decoded.ExcessBlobGas = &excess
	}
	if !s.AtListEnd() {
		var root Hash
		if err := readHash(&root); err != nil {
			return err
		}
		decoded.ParentBeaconRoot = &root
	}
	if !s.AtListEnd() {
		var root Hash
		if err := readHash(&root); err != nil {
			return err
		}
		decoded.RequestsHash = &root
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	*h = decoded
	return nil
}
