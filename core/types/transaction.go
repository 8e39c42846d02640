package types

import (
	"math/big"
	"sync/atomic"
)

// Transaction type constants. Typed envelopes (EIP-2718) are discriminated
// by a leading type byte in [0x01, 0x7f]; legacy transactions start with an
// RLP list prefix.
const (
	LegacyTxType     = 0x00
	AccessListTxType = 0x01
	DynamicFeeTxType = 0x02
	BlobTxType       = 0x03
	SetCodeTxType    = 0x04
	DepositTxType    = 0x7e
)

// BlobGasPerBlob is the gas consumed by a single blob (2^17, EIP-4844).
const BlobGasPerBlob = 1 << 17

// Transaction is a signed transaction envelope. The hash, encoding and
// sender are computed lazily and cached.
type Transaction struct {
	inner TxData

	hash     atomic.Pointer[Hash]
	encoding atomic.Pointer[[]byte]
	from     atomic.Pointer[Address]

	// impersonated marks a fake-signed transaction: the signature is a
	// syntactic placeholder and from holds the impersonated sender.
	impersonated bool
}

// TxData is the underlying data of a transaction.
type TxData interface {
	txType() byte
	chainID() *big.Int
	accessList() AccessList
	data() []byte
	gas() uint64
	gasPrice() *big.Int
	gasTipCap() *big.Int
	gasFeeCap() *big.Int
	value() *big.Int
	nonce() uint64
	to() *Address

	copy() TxData
}

// AccessList is a list of address-slot pairs accessed by a transaction.
type AccessList []AccessTuple

// AccessTuple is a single address and its accessed storage slots.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// Authorization is an EIP-7702 authorization entry for SetCodeTx.
type Authorization struct {
	ChainID *big.Int
	Address Address
	Nonce   uint64
	V       *big.Int
	R       *big.Int
	S       *big.Int
}

// LegacyTx represents a legacy (type 0x00) transaction, replay-protected
// per EIP-155 when V encodes a chain id.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *Address
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int
}

func (tx *LegacyTx) txType() byte            { return LegacyTxType }
func (tx *LegacyTx) chainID() *big.Int       { return deriveChainID(tx.V) }
func (tx *LegacyTx) accessList() AccessList  { return nil }
func (tx *LegacyTx) data() []byte            { return tx.Data }
func (tx *LegacyTx) gas() uint64             { return tx.Gas }
func (tx *LegacyTx) gasPrice() *big.Int      { return tx.GasPrice }
func (tx *LegacyTx) gasTipCap() *big.Int     { return tx.GasPrice }
func (tx *LegacyTx) gasFeeCap() *big.Int     { return tx.GasPrice }
func (tx *LegacyTx) value() *big.Int         { return tx.Value }
func (tx *LegacyTx) nonce() uint64           { return tx.Nonce }
func (tx *LegacyTx) to() *Address            { return tx.To }
func (tx *LegacyTx) copy() TxData {
	cpy := &LegacyTx{
		Nonce: tx.Nonce,
		Gas:   tx.Gas,
		To:    copyAddressPtr(tx.To),
		Data:  copyBytes(tx.Data),
	}
	cpy.GasPrice = copyBig(tx.GasPrice)
	cpy.Value = copyBig(tx.Value)
	cpy.V, cpy.R, cpy.S = copyBig(tx.V), copyBig(tx.R), copyBig(tx.S)
	return cpy
}

// AccessListTx represents an EIP-2930 (type 0x01) transaction.
type AccessListTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

func (tx *AccessListTx) txType() byte           { return AccessListTxType }
func (tx *AccessListTx) chainID() *big.Int      { return tx.ChainID }
func (tx *AccessListTx) accessList() AccessList { return tx.AccessList }
func (tx *AccessListTx) data() []byte           { return tx.Data }
func (tx *AccessListTx) gas() uint64            { return tx.Gas }
func (tx *AccessListTx) gasPrice() *big.Int     { return tx.GasPrice }
func (tx *AccessListTx) gasTipCap() *big.Int    { return tx.GasPrice }
func (tx *AccessListTx) gasFeeCap() *big.Int    { return tx.GasPrice }
func (tx *AccessListTx) value() *big.Int        { return tx.Value }
func (tx *AccessListTx) nonce() uint64          { return tx.Nonce }
func (tx *AccessListTx) to() *Address           { return tx.To }
func (tx *AccessListTx) copy() TxData {
	cpy := &AccessListTx{
		Nonce: tx.Nonce,
		Gas:   tx.Gas,
		To:    copyAddressPtr(tx.To),
		Data:  copyBytes(tx.Data),
	}
	cpy.ChainID = copyBig(tx.ChainID)
	cpy.GasPrice = copyBig(tx.GasPrice)
	cpy.Value = copyBig(tx.Value)
	cpy.AccessList = copyAccessList(tx.AccessList)
	cpy.V, cpy.R, cpy.S = copyBig(tx.V), copyBig(tx.R), copyBig(tx.S)
	return cpy
}

// DynamicFeeTx represents an EIP-1559 (type 0x02) transaction.
type DynamicFeeTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int // maxPriorityFeePerGas
	GasFeeCap  *big.Int // maxFeePerGas
	Gas        uint64
	To         *Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *big.Int
}

func (tx *DynamicFeeTx) txType() byte           { return DynamicFeeTxType }
func (tx *DynamicFeeTx) chainID() *big.Int      { return tx.ChainID }
func (tx *DynamicFeeTx) accessList() AccessList { return tx.AccessList }
func (tx *DynamicFeeTx) data() []byte           { return tx.Data }
func (tx *DynamicFeeTx) gas() uint64            { return tx.Gas }
func (tx *DynamicFeeTx) gasPrice() *big.Int     { return tx.GasFeeCap }
func (tx *DynamicFeeTx) gasTipCap() *big.Int    { return tx.GasTipCap }
func (tx *DynamicFeeTx) gasFeeCap() *big.Int    { return tx.GasFeeCap }
func (tx *DynamicFeeTx) value() *big.Int        { return tx.Value }
func (tx *DynamicFeeTx) nonce() uint64          { return tx.Nonce }
func (tx *DynamicFeeTx) to() *Address           { return tx.To }
func (tx *DynamicFeeTx) copy() TxData {
	cpy := &DynamicFeeTx{
		Nonce: tx.Nonce,
		Gas:   tx.Gas,
		To:    copyAddressPtr(tx.To),
		Data:  copyBytes(tx.Data),
	}
	cpy.ChainID = copyBig(tx.ChainID)
	cpy.GasTipCap = copyBig(tx.GasTipCap)
	cpy.GasFeeCap = copyBig(tx.GasFeeCap)
	cpy.Value = copyBig(tx.Value)
	cpy.AccessList = copyAccessList(tx.AccessList)
	cpy.V, cpy.R, cpy.S = copyBig(tx.V), copyBig(tx.R), copyBig(tx.S)
	return cpy
}

// BlobTx represents an EIP-4844 (type 0x03) blob transaction. The To field
// is mandatory: blob transactions cannot create contracts.
type BlobTx struct {
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

func (tx *BlobTx) txType() byte           { return BlobTxType }
func (tx *BlobTx) chainID() *big.Int      { return tx.ChainID }
func (tx *BlobTx) accessList() AccessList { return tx.AccessList }
func (tx *BlobTx) data() []byte           { return tx.Data }
func (tx *BlobTx) gas() uint64            { return tx.Gas }
func (tx *BlobTx) gasPrice() *big.Int     { return tx.GasFeeCap }
func (tx *BlobTx) gasTipCap() *big.Int    { return tx.GasTipCap }
func (tx *BlobTx) gasFeeCap() *big.Int    { return tx.GasFeeCap }
func (tx *BlobTx) value() *big.Int        { return tx.Value }
func (tx *BlobTx) nonce() uint64          { return tx.Nonce }
func (tx *BlobTx) to() *Address           { addr := tx.To; return &addr }
func (tx *BlobTx) copy() TxData {
	cpy := &BlobTx{
		Nonce: tx.Nonce,
		Gas:   tx.Gas,
		To:    tx.To,
		Data:  copyBytes(tx.Data),
	}
	cpy.ChainID = copyBig(tx.ChainID)
	cpy.GasTipCap = copyBig(tx.GasTipCap)
	cpy.GasFeeCap = copyBig(tx.GasFeeCap)
	cpy.Value = copyBig(tx.Value)
	cpy.BlobFeeCap = copyBig(tx.BlobFeeCap)
	cpy.AccessList = copyAccessList(tx.AccessList)
	if tx.BlobHashes != nil {
		cpy.BlobHashes = make([]Hash, len(tx.BlobHashes))
		copy(cpy.BlobHashes, tx.BlobHashes)
	}
	cpy.V, cpy.R, cpy.S = copyBig(tx.V), copyBig(tx.R), copyBig(tx.S)
	return cpy
}

// SetCodeTx represents an EIP-7702 (type 0x04) set-code transaction. The To
// field is mandatory.
type SetCodeTx struct {
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

func (tx *SetCodeTx) txType() byte           { return SetCodeTxType }
func (tx *SetCodeTx) chainID() *big.Int      { return tx.ChainID }
func (tx *SetCodeTx) accessList() AccessList { return tx.AccessList }
func (tx *SetCodeTx) data() []byte           { return tx.Data }
func (tx *SetCodeTx) gas() uint64            { return tx.Gas }
func (tx *SetCodeTx) gasPrice() *big.Int     { return tx.GasFeeCap }
func (tx *SetCodeTx) gasTipCap() *big.Int    { return tx.GasTipCap }
func (tx *SetCodeTx) gasFeeCap() *big.Int    { return tx.GasFeeCap }
func (tx *SetCodeTx) value() *big.Int        { return tx.Value }
func (tx *SetCodeTx) nonce() uint64          { return tx.Nonce }
func (tx *SetCodeTx) to() *Address           { addr := tx.To; return &addr }
func (tx *SetCodeTx) copy() TxData {
	cpy := &SetCodeTx{
		Nonce: tx.Nonce,
		Gas:   tx.Gas,
		To:    tx.To,
		Data:  copyBytes(tx.Data),
	}
	cpy.ChainID = copyBig(tx.ChainID)
	cpy.GasTipCap = copyBig(tx.GasTipCap)
	cpy.GasFeeCap = copyBig(tx.GasFeeCap)
	cpy.Value = copyBig(tx.Value)
	cpy.AccessList = copyAccessList(tx.AccessList)
	if tx.AuthorizationList != nil {
		cpy.AuthorizationList = make([]Authorization, len(tx.AuthorizationList))
		for i, auth := range tx.AuthorizationList {
			cpy.AuthorizationList[i] = Authorization{
				Address: auth.Address,
				Nonce:   auth.Nonce,
				ChainID: copyBig(auth.ChainID),
				V:       copyBig(auth.V),
				R:       copyBig(auth.R),
				S:       copyBig(auth.S),
			}
		}
	}
	cpy.V, cpy.R, cpy.S = copyBig(tx.V), copyBig(tx.R), copyBig(tx.S)
	return cpy
}

// DepositTx represents a chain-extension deposit transaction (type 0x7e).
// Deposits carry no signature: the sender is part of the payload.
type DepositTx struct {
	SourceHash          Hash
	From                Address
	To                  *Address // nil means contract creation
	Mint                *big.Int
	Value               *big.Int
	Gas                 uint64
	IsSystemTransaction bool
	Data                []byte
}

func (tx *DepositTx) txType() byte           { return DepositTxType }
func (tx *DepositTx) chainID() *big.Int      { return new(big.Int) }
func (tx *DepositTx) accessList() AccessList { return nil }
func (tx *DepositTx) data() []byte           { return tx.Data }
func (tx *DepositTx) gas() uint64            { return tx.Gas }
func (tx *DepositTx) gasPrice() *big.Int     { return new(big.Int) }
func (tx *DepositTx) gasTipCap() *big.Int    { return new(big.Int) }
func (tx *DepositTx) gasFeeCap() *big.Int    { return new(big.Int) }
func (tx *DepositTx) value() *big.Int        { return tx.Value }
func (tx *DepositTx) nonce() uint64          { return 0 }
func (tx *DepositTx) to() *Address           { return tx.To }
func (tx *DepositTx) copy() TxData {
	cpy := &DepositTx{
		SourceHash:          tx.SourceHash,
		From:                tx.From,
		To:                  copyAddressPtr(tx.To),
		Gas:                 tx.Gas,
		IsSystemTransaction: tx.IsSystemTransaction,
		Data:                copyBytes(tx.Data),
	}
	cpy.Mint = copyBig(tx.Mint)
	cpy.Value = copyBig(tx.Value)
	return cpy
}

// NewTransaction creates a new transaction wrapping a copy of inner.
func NewTransaction(inner TxData) *Transaction {
	tx := &Transaction{inner: inner.copy()}
	if dep, ok := tx.inner.(*DepositTx); ok {
		from := dep.From
		tx.from.Store(&from)
	}
	return tx
}

// Type returns the transaction type byte.
func (tx *Transaction) Type() uint8 { return tx.inner.txType() }

// ChainId returns the chain ID of the transaction.
func (tx *Transaction) ChainId() *big.Int { return tx.inner.chainID() }

// AccessList returns the access list of the transaction, nil for types
// without one.
func (tx *Transaction) AccessList() AccessList { return tx.inner.accessList() }

// Data returns the input data of the transaction.
func (tx *Transaction) Data() []byte { return tx.inner.data() }

// Gas returns the gas limit of the transaction.
func (tx *Transaction) Gas() uint64 { return tx.inner.gas() }

// GasPrice returns the gas price of the transaction (the fee cap for
// dynamic-fee types).
func (tx *Transaction) GasPrice() *big.Int { return tx.inner.gasPrice() }

// GasTipCap returns maxPriorityFeePerGas.
func (tx *Transaction) GasTipCap() *big.Int { return tx.inner.gasTipCap() }

// GasFeeCap returns maxFeePerGas.
func (tx *Transaction) GasFeeCap() *big.Int { return tx.inner.gasFeeCap() }

// Value returns the value transfer amount of the transaction.
func (tx *Transaction) Value() *big.Int { return tx.inner.value() }

// Nonce returns the nonce of the transaction.
func (tx *Transaction) Nonce() uint64 { return tx.inner.nonce() }

// To returns the recipient address, or nil for contract creation.
func (tx *Transaction) To() *Address { return tx.inner.to() }

// EffectiveGasPrice returns the price actually paid per unit of gas under
// the given base fee: min(feeCap, baseFee + tipCap), or the raw gas price
// when no base fee applies.
func (tx *Transaction) EffectiveGasPrice(baseFee *big.Int) *big.Int {
	if baseFee == nil || tx.Type() == LegacyTxType || tx.Type() == AccessListTxType {
		return new(big.Int).Set(bigOrZero(tx.GasPrice()))
	}
	tip := new(big.Int).Add(baseFee, bigOrZero(tx.GasTipCap()))
	feeCap := bigOrZero(tx.GasFeeCap())
	if tip.Cmp(feeCap) > 0 {
		return new(big.Int).Set(feeCap)
	}
	return tip
}

// AuthorizationList returns the EIP-7702 authorization list, or nil for
// other transaction types.
func (tx *Transaction) AuthorizationList() []Authorization {
	if setCode, ok := tx.inner.(*SetCodeTx); ok {
		return setCode.AuthorizationList
	}
	return nil
}

// BlobGasFeeCap returns the blob gas fee cap for EIP-4844 transactions.
func (tx *Transaction) BlobGasFeeCap() *big.Int {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobFeeCap
	}
	return nil
}

// BlobHashes returns the versioned hashes for EIP-4844 transactions.
func (tx *Transaction) BlobHashes() []Hash {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobHashes
	}
	return nil
}

// BlobGas returns the blob gas used by an EIP-4844 transaction.
func (tx *Transaction) BlobGas() uint64 {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return uint64(len(blob.BlobHashes)) * BlobGasPerBlob
	}
	return 0
}

// SourceHash returns the deposit source hash, or the zero hash for
// non-deposit transactions.
func (tx *Transaction) SourceHash() Hash {
	if dep, ok := tx.inner.(*DepositTx); ok {
		return dep.SourceHash
	}
	return Hash{}
}

// Mint returns the deposit mint amount, or nil for non-deposit transactions.
func (tx *Transaction) Mint() *big.Int {
	if dep, ok := tx.inner.(*DepositTx); ok {
		return dep.Mint
	}
	return nil
}

// IsDeposit reports whether the transaction is a deposit.
func (tx *Transaction) IsDeposit() bool { return tx.Type() == DepositTxType }

// RawSignatureValues returns the V, R, S signature values of the transaction.
// Deposits have no signature and return nils.
func (tx *Transaction) RawSignatureValues() (v, r, s *big.Int) {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		return t.V, t.R, t.S
	case *AccessListTx:
		return t.V, t.R, t.S
	case *DynamicFeeTx:
		return t.V, t.R, t.S
	case *BlobTx:
		return t.V, t.R, t.S
	case *SetCodeTx:
		return t.V, t.R, t.S
	default:
		return nil, nil, nil
	}
}

// setSignatureValues writes the signature into the inner data.
func (tx *Transaction) setSignatureValues(v, r, s *big.Int) {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		t.V, t.R, t.S = v, r, s
	case *AccessListTx:
		t.V, t.R, t.S = v, r, s
	case *DynamicFeeTx:
		t.V, t.R, t.S = v, r, s
	case *BlobTx:
		t.V, t.R, t.S = v, r, s
	case *SetCodeTx:
		t.V, t.R, t.S = v, r, s
	}
}

// Hash returns the transaction hash: keccak256 of the enveloped RLP
// encoding (type byte prepended for non-legacy types). Cached on first call.
func (tx *Transaction) Hash() Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	h := keccak256Hash(tx.EnvelopeRLP())
	tx.hash.Store(&h)
	return h
}

// EnvelopeRLP returns the canonical wire encoding of the transaction,
// caching it on first call.
func (tx *Transaction) EnvelopeRLP() []byte {
	if enc := tx.encoding.Load(); enc != nil {
		return *enc
	}
	enc, err := encodeTxData(tx.inner)
	if err != nil {
		// Encoding only fails on malformed inner data which cannot be
		// constructed through the public API.
		panic("types: transaction encoding failed: " + err.Error())
	}
	tx.encoding.Store(&enc)
	return enc
}

// Size returns the length of the wire encoding in bytes.
func (tx *Transaction) Size() uint64 {
	return uint64(len(tx.EnvelopeRLP()))
}

// SetSender caches the sender address on the transaction.
func (tx *Transaction) SetSender(addr Address) {
	a := addr
	tx.from.Store(&a)
}

// Sender returns the cached sender address, or nil if not yet recovered.
func (tx *Transaction) Sender() *Address {
	return tx.from.Load()
}

// IsFakeSigned reports whether the transaction carries a placeholder
// signature from an impersonated sender. Fake-signed transactions must
// never be treated as signature-verified nor put on the wire.
func (tx *Transaction) IsFakeSigned() bool { return tx.impersonated }

// Helpers

func copyAddressPtr(a *Address) *Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}

func copyBig(i *big.Int) *big.Int {
	if i == nil {
		return nil
	}
	return new(big.Int).Set(i)
}

func bigOrZero(i *big.Int) *big.Int {
	if i == nil {
		return new(big.Int)
	}
	return i
}

func copyAccessList(al AccessList) AccessList {
	if al == nil {
		return nil
	}
	cpy := make(AccessList, len(al))
	for i, tuple := range al {
		cpy[i] = AccessTuple{
			Address:     tuple.Address,
			StorageKeys: make([]Hash, len(tuple.StorageKeys)),
		}
		copy(cpy[i].StorageKeys, tuple.StorageKeys)
	}
	return cpy
}

// deriveChainID derives the chain ID from a legacy V value.
// EIP-155: v = chainID*2 + 35 or chainID*2 + 36; pre-155 v is 27 or 28.
func deriveChainID(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	if v.BitLen() <= 8 {
		val := v.Uint64()
		if val == 27 || val == 28 {
			return new(big.Int)
		}
	}
	chainID := new(big.Int).Sub(v, big.NewInt(35))
	chainID.Div(chainID, big.NewInt(2))
	return chainID
}
