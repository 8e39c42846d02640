package types

import (
	"github.com/NomicFoundation/edr-sub004/rlp"
)

// MarshalRLP encodes the block as [header, transactions, ommers] with a
// trailing withdrawals list when the header commits to one. Typed
// transactions are nested as byte strings.
func (b *Block) MarshalRLP() ([]byte, error) {
	if b.transactions != nil {
		for _, tx := range b.transactions {
			if tx.IsFakeSigned() {
				return nil, ErrFakeSignedEncoding
			}
		}
	}

	headerEnc, err := b.header.MarshalRLP()
	if err != nil {
		return nil, err
	}

	var txPayload []byte
	for _, tx := range b.transactions {
		enc, err := tx.encodeForList()
		if err != nil {
			return nil, err
		}
		txPayload = append(txPayload, enc...)
	}

	var ommerPayload []byte
	for _, ommer := range b.ommers {
		enc, err := ommer.MarshalRLP()
		if err != nil {
			return nil, err
		}
		ommerPayload = append(ommerPayload, enc...)
	}

	payload := headerEnc
	payload = append(payload, rlp.WrapList(txPayload)...)
	payload = append(payload, rlp.WrapList(ommerPayload)...)
	if b.header.WithdrawalsRoot != nil {
		withdrawalsEnc, err := rlp.EncodeToBytes(b.withdrawals)
		if err != nil {
			return nil, err
		}
		payload = append(payload, withdrawalsEnc...)
	}
	return rlp.WrapList(payload), nil
}

// UnmarshalRLP decodes a block from its wire encoding.
func (b *Block) UnmarshalRLP(data []byte) error {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return err
	}

	headerRaw, err := s.Raw()
	if err != nil {
		return err
	}
	header := new(Header)
	if err := header.UnmarshalRLP(headerRaw); err != nil {
		return err
	}

	var txs Transactions
	if _, err := s.List(); err != nil {
		return err
	}
	for !s.AtListEnd() {
		tx, err := decodeTxFromStream(s)
		if err != nil {
			return err
		}
		txs = append(txs, tx)
	}
	if err := s.ListEnd(); err != nil {
		return err
	}

	var ommers []*Header
	if _, err := s.List(); err != nil {
		return err
	}
	for !s.AtListEnd() {
		ommerRaw, err := s.Raw()
		if err != nil {
			return err
		}
		ommer := new(Header)
		if err := ommer.UnmarshalRLP(ommerRaw); err != nil {
			return err
		}
		ommers = append(ommers, ommer)
	}
	if err := s.ListEnd(); err != nil {
		return err
	}

	var withdrawals Withdrawals
	if !s.AtListEnd() {
		withdrawalsRaw, err := s.Raw()
		if err != nil {
			return err
		}
		if err := rlp.DecodeBytes(withdrawalsRaw, &withdrawals); err != nil {
			return err
		}
		if withdrawals == nil {
			withdrawals = Withdrawals{}
		}
	}
	if err := s.ListEnd(); err != nil {
		return err
	}

	*b = Block{
		header:       header,
		transactions: txs,
		ommers:       ommers,
		withdrawals:  withdrawals,
	}
	return nil
}
