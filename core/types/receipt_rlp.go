package types

import (
	"github.com/NomicFoundation/edr-sub004/rlp"
)

type receiptWire struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*logWire
}

type depositNonceReceiptWire struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*logWire
	DepositNonce      uint64
}

type depositVersionReceiptWire struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*logWire
	DepositNonce      uint64
	Version           uint64
}

func (r *Receipt) statusEncoding() ([]byte, error) {
	if len(r.PostState) > 0 {
		if len(r.PostState) != HashLength {
			return nil, errInvalidReceiptStatus
		}
		return r.PostState, nil
	}
	switch r.Status {
	case ReceiptStatusFailed:
		return nil, nil
	case ReceiptStatusSuccessful:
		return []byte{0x01}, nil
	default:
		return nil, errInvalidReceiptStatus
	}
}

func (r *Receipt) setStatus(enc []byte) error {
	switch {
	case len(enc) == 0:
		r.Status = ReceiptStatusFailed
	case len(enc) == 1 && enc[0] == 0x01:
		r.Status = ReceiptStatusSuccessful
	case len(enc) == HashLength:
		r.PostState = copyBytes(enc)
	default:
		return errInvalidReceiptStatus
	}
	return nil
}

// MarshalBinary returns the consensus encoding of the receipt: the bare
// RLP list for legacy receipts, or the transaction type byte followed by
// the RLP payload for typed receipts. Deposit receipts that carry a nonce
// extend the list; a version tag extends it further.
func (r *Receipt) MarshalBinary() ([]byte, error) {
	status, err := r.statusEncoding()
	if err != nil {
		return nil, err
	}
	logs := make([]*logWire, len(r.Logs))
	for i, log := range r.Logs {
		logs[i] = log.wire()
	}

	var payload []byte
	switch {
	case r.Type == DepositTxType && r.DepositReceiptVersion != nil:
		nonce := uint64(0)
		if r.DepositNonce != nil {
			nonce = *r.DepositNonce
		}
		payload, err = rlp.EncodeToBytes(&depositVersionReceiptWire{
			PostStateOrStatus: status, CumulativeGasUsed: r.CumulativeGasUsed,
			Bloom: r.Bloom, Logs: logs,
			DepositNonce: nonce, Version: *r.DepositReceiptVersion,
		})
	case r.Type == DepositTxType && r.DepositNonce != nil:
		payload, err = rlp.EncodeToBytes(&depositNonceReceiptWire{
			PostStateOrStatus: status, CumulativeGasUsed: r.CumulativeGasUsed,
			Bloom: r.Bloom, Logs: logs,
			DepositNonce: *r.DepositNonce,
		})
	default:
		payload, err = rlp.EncodeToBytes(&receiptWire{
			PostStateOrStatus: status, CumulativeGasUsed: r.CumulativeGasUsed,
			Bloom: r.Bloom, Logs: logs,
		})
	}
	if err != nil {
		return nil, err
	}
	if r.Type == LegacyTxType {
		return payload, nil
	}
	enc := make([]byte, 0, len(payload)+1)
	enc = append(enc, r.Type)
	return append(enc, payload...), nil
}

// UnmarshalBinary decodes the receipt from its consensus encoding.
func (r *Receipt) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyTransaction
	}
	txType := uint8(LegacyTxType)
	payload := data
	if data[0] <= 0x7f {
		switch data[0] {
		case AccessListTxType, DynamicFeeTxType, BlobTxType, SetCodeTxType, DepositTxType:
			txType = data[0]
			payload = data[1:]
		default:
			return ErrInvalidTransactionType
		}
	}

	s := rlp.NewStreamFromBytes(payload)
	if _, err := s.List(); err != nil {
		return err
	}
	status, err := s.Bytes()
	if err != nil {
		return err
	}
	decoded := Receipt{Type: txType}
	if err := decoded.setStatus(status); err != nil {
		return err
	}
	if decoded.CumulativeGasUsed, err = s.Uint64(); err != nil {
		return err
	}
	bloomBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	decoded.Bloom.SetBytes(bloomBytes)
	logsRaw, err := s.Raw()
	if err != nil {
		return err
	}
	var logs []*logWire
	if err := rlp.DecodeBytes(logsRaw, &logs); err != nil {
		return err
	}
	decoded.Logs = make([]*Log, len(logs))
	for i, w := range logs {
		decoded.Logs[i] = logFromWire(w)
	}
	if txType == DepositTxType && !s.AtListEnd() {
		nonce, err := s.Uint64()
		if err != nil {
			return err
		}
		decoded.DepositNonce = &nonce
		if !s.AtListEnd() {
			version, err := s.Uint64()
			if err != nil {
				return err
			}
			decoded.DepositReceiptVersion = &version
		}
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	*r = decoded
	return nil
}
