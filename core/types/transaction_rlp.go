package types

import (
	"errors"
	"math/big"

	"github.com/NomicFoundation/edr-sub004/rlp"
)

// ErrInvalidTransactionType is returned when decoding an envelope with an
// unknown transaction type byte.
var ErrInvalidTransactionType = errors.New("invalid transaction type")

// ErrEmptyTransaction is returned when decoding a zero-length envelope.
var ErrEmptyTransaction = errors.New("empty transaction encoding")

var errInvalidRecipient = errors.New("invalid recipient address length")

// Wire forms. The recipient is a byte string so an empty string round-trips
// to a nil To (contract creation).

type legacyTxWire struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int
}

type accessListTxWire struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

type dynamicFeeTxWire struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

type blobTxWire struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	BlobFeeCap *big.Int
	BlobHashes []Hash
	V, R, S    *big.Int
}

type setCodeTxWire struct {
	ChainID           *big.Int
	Nonce             uint64
	GasTipCap         *big.Int
	GasFeeCap         *big.Int
	Gas               uint64
	To                Address
	Value             *big.Int
	Data              []byte
	AccessList        AccessList
	AuthorizationList []Authorization
	V, R, S           *big.Int
}

type depositTxWire struct {
	SourceHash          Hash
	From                Address
	To                  []byte
	Mint                *big.Int
	Value               *big.Int
	Gas                 uint64
	IsSystemTransaction bool
	Data                []byte
}

func addrToWire(a *Address) []byte {
	if a == nil {
		return nil
	}
	return a.Bytes()
}

func wireToAddr(b []byte) (*Address, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) != AddressLength {
		return nil, errInvalidRecipient
	}
	var a Address
	copy(a[:], b)
	return &a, nil
}

// encodeTxData produces the canonical wire encoding of inner: the raw RLP
// list for legacy transactions, or the type byte followed by the RLP payload
// for typed transactions.
func encodeTxData(inner TxData) ([]byte, error) {
	switch tx := inner.(type) {
	case *LegacyTx:
		return rlp.EncodeToBytes(&legacyTxWire{
			Nonce: tx.Nonce, GasPrice: tx.GasPrice, Gas: tx.Gas,
			To: addrToWire(tx.To), Value: tx.Value, Data: tx.Data,
			V: tx.V, R: tx.R, S: tx.S,
		})
	case *AccessListTx:
		return encodeTyped(AccessListTxType, &accessListTxWire{
			ChainID: tx.ChainID, Nonce: tx.Nonce, GasPrice: tx.GasPrice,
			Gas: tx.Gas, To: addrToWire(tx.To), Value: tx.Value,
			Data: tx.Data, AccessList: tx.AccessList,
			V: tx.V, R: tx.R, S: tx.S,
		})
	case *DynamicFeeTx:
		return encodeTyped(DynamicFeeTxType, &dynamicFeeTxWire{
			ChainID: tx.ChainID, Nonce: tx.Nonce,
			GasTipCap: tx.GasTipCap, GasFeeCap: tx.GasFeeCap,
			Gas: tx.Gas, To: addrToWire(tx.To), Value: tx.Value,
			Data: tx.Data, AccessList: tx.AccessList,
			V: tx.V, R: tx.R, S: tx.S,
		})
	case *BlobTx:
		return encodeTyped(BlobTxType, &blobTxWire{
			ChainID: tx.ChainID, Nonce: tx.Nonce,
			GasTipCap: tx.GasTipCap, GasFeeCap: tx.GasFeeCap,
			Gas: tx.Gas, To: tx.To, Value: tx.Value,
			Data: tx.Data, AccessList: tx.AccessList,
			BlobFeeCap: tx.BlobFeeCap, BlobHashes: tx.BlobHashes,
			V: tx.V, R: tx.R, S: tx.S,
		})
	case *SetCodeTx:
		return encodeTyped(SetCodeTxType, &setCodeTxWire{
			ChainID: tx.ChainID, Nonce: tx.Nonce,
			GasTipCap: tx.GasTipCap, GasFeeCap: tx.GasFeeCap,
			Gas: tx.Gas, To: tx.To, Value: tx.Value,
			Data: tx.Data, AccessList: tx.AccessList,
			AuthorizationList: tx.AuthorizationList,
			V:                 tx.V, R: tx.R, S: tx.S,
		})
	case *DepositTx:
		return encodeTyped(DepositTxType, &depositTxWire{
			SourceHash: tx.SourceHash, From: tx.From,
			To: addrToWire(tx.To), Mint: tx.Mint, Value: tx.Value,
			Gas: tx.Gas, IsSystemTransaction: tx.IsSystemTransaction,
			Data: tx.Data,
		})
	default:
		return nil, ErrInvalidTransactionType
	}
}

func encodeTyped(txType byte, wire interface{}) ([]byte, error) {
	payload, err := rlp.EncodeToBytes(wire)
	if err != nil {
		return nil, err
	}
	enc := make([]byte, 0, len(payload)+1)
	enc = append(enc, txType)
	return append(enc, payload...), nil
}

// DecodeTransaction decodes a transaction from its canonical wire encoding.
func DecodeTransaction(data []byte) (*Transaction, error) {
	if len(data) == 0 {
		return nil, ErrEmptyTransaction
	}
	if data[0] > 0x7f {
		// Legacy transaction: the encoding is a bare RLP list.
		var wire legacyTxWire
		if err := rlp.DecodeBytes(data, &wire); err != nil {
			return nil, err
		}
		to, err := wireToAddr(wire.To)
		if err != nil {
			return nil, err
		}
		return wrapDecoded(&LegacyTx{
			Nonce: wire.Nonce, GasPrice: wire.GasPrice, Gas: wire.Gas,
			To: to, Value: wire.Value, Data: wire.Data,
			V: wire.V, R: wire.R, S: wire.S,
		}, data), nil
	}
	inner, err := decodeTypedTxData(data[0], data[1:])
	if err != nil {
		return nil, err
	}
	return wrapDecoded(inner, data), nil
}

func decodeTypedTxData(txType byte, payload []byte) (TxData, error) {
	switch txType {
	case AccessListTxType:
		var wire accessListTxWire
		if err := rlp.DecodeBytes(payload, &wire); err != nil {
			return nil, err
		}
		to, err := wireToAddr(wire.To)
		if err != nil {
			return nil, err
		}
		return &AccessListTx{
			ChainID: wire.ChainID, Nonce: wire.Nonce,
			GasPrice: wire.GasPrice, Gas: wire.Gas, To: to,
			Value: wire.Value, Data: wire.Data,
			AccessList: wire.AccessList,
			V:          wire.V, R: wire.R, S: wire.S,
		}, nil
	case DynamicFeeTxType:
		var wire dynamicFeeTxWire
		if err := rlp.DecodeBytes(payload, &wire); err != nil {
			return nil, err
		}
		to, err := wireToAddr(wire.To)
		if err != nil {
			return nil, err
		}
		return &DynamicFeeTx{
			ChainID: wire.ChainID, Nonce: wire.Nonce,
			GasTipCap: wire.GasTipCap, GasFeeCap: wire.GasFeeCap,
			Gas: wire.Gas, To: to, Value: wire.Value, Data: wire.Data,
			AccessList: wire.AccessList,
			V:          wire.V, R: wire.R, S: wire.S,
		}, nil
	case BlobTxType:
		var wire blobTxWire
		if err := rlp.DecodeBytes(payload, &wire); err != nil {
			return nil, err
		}
		return &BlobTx{
			ChainID: wire.ChainID, Nonce: wire.Nonce,
			GasTipCap: wire.GasTipCap, GasFeeCap: wire.GasFeeCap,
			Gas: wire.Gas, To: wire.To, Value: wire.Value,
			Data: wire.Data, AccessList: wire.AccessList,
			BlobFeeCap: wire.BlobFeeCap, BlobHashes: wire.BlobHashes,
			V:          wire.V, R: wire.R, S: wire.S,
		}, nil
	case SetCodeTxType:
		var wire setCodeTxWire
		if err := rlp.DecodeBytes(payload, &wire); err != nil {
			return nil, err
		}
		return &SetCodeTx{
			ChainID: wire.ChainID, Nonce: wire.Nonce,
			GasTipCap: wire.GasTipCap, GasFeeCap: wire.GasFeeCap,
			Gas: wire.Gas, To: wire.To, Value: wire.Value,
			Data: wire.Data, AccessList: wire.AccessList,
			AuthorizationList: wire.AuthorizationList,
			V:                 wire.V, R: wire.R, S: wire.S,
		}, nil
	case DepositTxType:
		var wire depositTxWire
		if err := rlp.DecodeBytes(payload, &wire); err != nil {
			return nil, err
		}
		to, err := wireToAddr(wire.To)
		if err != nil {
			return nil, err
		}
		return &DepositTx{
			SourceHash: wire.SourceHash, From: wire.From, To: to,
			Mint: wire.Mint, Value: wire.Value, Gas: wire.Gas,
			IsSystemTransaction: wire.IsSystemTransaction,
			Data:                wire.Data,
		}, nil
	default:
		return nil, ErrInvalidTransactionType
	}
}

// wrapDecoded builds a Transaction around already-decoded inner data,
// seeding the encoding cache with the original bytes.
func wrapDecoded(inner TxData, enc []byte) *Transaction {
	tx := &Transaction{inner: inner}
	buf := make([]byte, len(enc))
	copy(buf, enc)
	tx.encoding.Store(&buf)
	if dep, ok := inner.(*DepositTx); ok {
		from := dep.From
		tx.from.Store(&from)
	}
	return tx
}

// MarshalBinary returns the canonical wire encoding of the transaction.
// Fake-signed transactions cannot be marshaled: their signatures are
// placeholders that would recover a wrong sender.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	if tx.impersonated {
		return nil, ErrFakeSignedEncoding
	}
	enc := tx.EnvelopeRLP()
	buf := make([]byte, len(enc))
	copy(buf, enc)
	return buf, nil
}

// UnmarshalBinary decodes the transaction from its canonical wire encoding.
func (tx *Transaction) UnmarshalBinary(data []byte) error {
	decoded, err := DecodeTransaction(data)
	if err != nil {
		return err
	}
	*tx = *decoded
	return nil
}

// ErrFakeSignedEncoding is returned when a fake-signed transaction is
// asked for a wire encoding.
var ErrFakeSignedEncoding = errors.New("fake-signed transaction cannot be wire-encoded")

// encodeForList writes the transaction into a container list: typed
// transactions are nested as byte strings, legacy ones as raw lists.
func (tx *Transaction) encodeForList() ([]byte, error) {
	enc := tx.EnvelopeRLP()
	if tx.Type() == LegacyTxType {
		return enc, nil
	}
	return rlp.EncodeBytes(enc), nil
}

// decodeTxFromStream reads one transaction item from a container list.
func decodeTxFromStream(s *rlp.Stream) (*Transaction, error) {
	kind, _, err := s.Kind()
	if err != nil {
		return nil, err
	}
	if kind != rlp.List {
		enc, err := s.Bytes()
		if err != nil {
			return nil, err
		}
		return DecodeTransaction(enc)
	}
	raw, err := s.Raw()
	if err != nil {
		return nil, err
	}
	return DecodeTransaction(raw)
}
