package types

import (
	"errors"
	"math/big"
)

var (
	// ErrRecipientRequired is returned when a request form that cannot
	// create a contract (blob, set-code) omits the recipient.
	ErrRecipientRequired = errors.New("transaction type requires a recipient")

	// ErrGasPriceConflict is returned when a request carries both a raw
	// gas price and EIP-1559 fee-cap fields.
	ErrGasPriceConflict = errors.New("both gasPrice and maxFeePerGas specified")
)

// TransactionRequest is a loosely typed send or call request as received
// over RPC. Nil fields are unset and are filled from ResolveDefaults when
// the request is narrowed to a concrete transaction type.
type TransactionRequest struct {
	From                 *Address
	To                   *Address
	Gas                  *uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerBlobGas     *big.Int
	Value                *big.Int
	Nonce                *uint64
	Data                 []byte
	AccessList           AccessList
	BlobHashes           []Hash
	AuthorizationList    []Authorization
	ChainID              *big.Int
}

// ResolveDefaults supplies provider-side values for fields a request leaves
// unset: the next suggested gas price and tip, the next block's base fee
// (nil before London), the sender's next nonce, the block gas limit and the
// configured chain id.
type ResolveDefaults struct {
	GasPrice    *big.Int
	PriorityFee *big.Int
	BaseFee     *big.Int
	Nonce       uint64
	GasLimit    uint64
	ChainID     *big.Int
}

// Resolve narrows the request to the most specific transaction type it can
// express. Selection order: set-code if an authorization list is present,
// blob if blob hashes are present, dynamic-fee if the chain is past London
// and the request either omits a raw gas price or names a fee-cap field,
// access-list if an access list is present, legacy otherwise.
func (r *TransactionRequest) Resolve(d ResolveDefaults) (TxData, error) {
	if r.GasPrice != nil && (r.MaxFeePerGas != nil || r.MaxPriorityFeePerGas != nil) {
		return nil, ErrGasPriceConflict
	}

	nonce := d.Nonce
	if r.Nonce != nil {
		nonce = *r.Nonce
	}
	gas := d.GasLimit
	if r.Gas != nil {
		gas = *r.Gas
	}
	value := new(big.Int)
	if r.Value != nil {
		value = new(big.Int).Set(r.Value)
	}
	chainID := d.ChainID
	if r.ChainID != nil {
		chainID = r.ChainID
	}

	switch {
	case len(r.AuthorizationList) > 0:
		if r.To == nil {
			return nil, ErrRecipientRequired
		}
		tipCap, feeCap := r.resolveFeeCaps(d)
		return &SetCodeTx{
			ChainID:           copyBig(chainID),
			Nonce:             nonce,
			GasTipCap:         tipCap,
			GasFeeCap:         feeCap,
			Gas:               gas,
			To:                *r.To,
			Value:             value,
			Data:              copyBytes(r.Data),
			AccessList:        r.AccessList,
			AuthorizationList: r.AuthorizationList,
		}, nil

	case len(r.BlobHashes) > 0:
		if r.To == nil {
			return nil, ErrRecipientRequired
		}
		tipCap, feeCap := r.resolveFeeCaps(d)
		return &BlobTx{
			ChainID:    copyBig(chainID),
			Nonce:      nonce,
			GasTipCap:  tipCap,
			GasFeeCap:  feeCap,
			Gas:        gas,
			To:         *r.To,
			Value:      value,
			Data:       copyBytes(r.Data),
			AccessList: r.AccessList,
			BlobFeeCap: copyBig(r.MaxFeePerBlobGas),
			BlobHashes: r.BlobHashes,
		}, nil

	case d.BaseFee != nil && (r.GasPrice == nil || r.MaxFeePerGas != nil || r.MaxPriorityFeePerGas != nil):
		tipCap, feeCap := r.resolveFeeCaps(d)
		return &DynamicFeeTx{
			ChainID:    copyBig(chainID),
			Nonce:      nonce,
			GasTipCap:  tipCap,
			GasFeeCap:  feeCap,
			Gas:        gas,
			To:         copyAddressPtr(r.To),
			Value:      value,
			Data:       copyBytes(r.Data),
			AccessList: r.AccessList,
		}, nil

	case len(r.AccessList) > 0:
		return &AccessListTx{
			ChainID:    copyBig(chainID),
			Nonce:      nonce,
			GasPrice:   r.resolveGasPrice(d),
			Gas:        gas,
			To:         copyAddressPtr(r.To),
			Value:      value,
			Data:       copyBytes(r.Data),
			AccessList: r.AccessList,
		}, nil

	default:
		return &LegacyTx{
			Nonce:    nonce,
			GasPrice: r.resolveGasPrice(d),
			Gas:      gas,
			To:       copyAddressPtr(r.To),
			Value:    value,
			Data:     copyBytes(r.Data),
		}, nil
	}
}

func (r *TransactionRequest) resolveGasPrice(d ResolveDefaults) *big.Int {
	if r.GasPrice != nil {
		return new(big.Int).Set(r.GasPrice)
	}
	if d.GasPrice != nil {
		return new(big.Int).Set(d.GasPrice)
	}
	return new(big.Int)
}

// resolveFeeCaps fills the dynamic-fee pair. A missing fee cap defaults to
// tip + 2 * next base fee.
func (r *TransactionRequest) resolveFeeCaps(d ResolveDefaults) (tipCap, feeCap *big.Int) {
	tipCap = new(big.Int)
	switch {
	case r.MaxPriorityFeePerGas != nil:
		tipCap.Set(r.MaxPriorityFeePerGas)
	case d.PriorityFee != nil:
		tipCap.Set(d.PriorityFee)
	}
	if r.MaxFeePerGas != nil {
		return tipCap, new(big.Int).Set(r.MaxFeePerGas)
	}
	feeCap = new(big.Int).Set(tipCap)
	if d.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Lsh(d.BaseFee, 1))
	}
	return tipCap, feeCap
}
