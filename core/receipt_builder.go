package core

import (
	"github.com/NomicFoundation/edr-sub004/core/state"
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// ReceiptBuilder constructs consensus receipts for executed transactions.
// Implementations select the receipt shape per hardfork and chain.
type ReceiptBuilder interface {
	// BuildReceipt is called after a transaction executed. preState is
	// the state before the transaction; st the state after.
	BuildReceipt(tx *types.Transaction, result *ExecutionResult, cumulativeGas uint64, preState, st state.Reader, hardfork Hardfork) (*types.Receipt, error)
}

// EthReceiptBuilder builds mainline receipts: a post-state root before
// Byzantium, a status afterwards.
type EthReceiptBuilder struct{}

var _ ReceiptBuilder = (*EthReceiptBuilder)(nil)

func (*EthReceiptBuilder) BuildReceipt(tx *types.Transaction, result *ExecutionResult, cumulativeGas uint64, preState, st state.Reader, hardfork Hardfork) (*types.Receipt, error) {
	status := types.ReceiptStatusFailed
	if result.Success {
		status = types.ReceiptStatusSuccessful
	}
	var postState []byte
	if !hardfork.HasReceiptStatus() {
		root, err := st.StateRoot()
		if err != nil {
			return nil, err
		}
		postState = root.Bytes()
	}
	return types.NewReceipt(tx.Type(), postState, status, cumulativeGas, result.Logs), nil
}

// DepositReceiptBuilder extends the mainline receipts with deposit
// bookkeeping: the sender nonce the deposit consumed and, when the version
// tag is enabled, the deposit receipt version.
type DepositReceiptBuilder struct {
	eth EthReceiptBuilder

	// TagVersion adds the deposit receipt version field to deposit
	// receipts, as later chain revisions require.
	TagVersion bool
}

var _ ReceiptBuilder = (*DepositReceiptBuilder)(nil)

func (b *DepositReceiptBuilder) BuildReceipt(tx *types.Transaction, result *ExecutionResult, cumulativeGas uint64, preState, st state.Reader, hardfork Hardfork) (*types.Receipt, error) {
	receipt, err := b.eth.BuildReceipt(tx, result, cumulativeGas, preState, st, hardfork)
	if err != nil {
		return nil, err
	}
	if tx.Type() != types.DepositTxType {
		return receipt, nil
	}

	// The nonce the deposit consumed is the sender's pre-execution nonce.
	var nonce uint64
	if sender := tx.Sender(); sender != nil {
		info, err := preState.Basic(*sender)
		if err != nil {
			return nil, err
		}
		if info != nil {
			nonce = info.Nonce
		}
	}
	receipt.DepositNonce = &nonce
	if b.TagVersion {
		version := types.DepositReceiptVersion
		receipt.DepositReceiptVersion = &version
	}
	return receipt, nil
}
