package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/NomicFoundation/edr-sub004/core/types"
)

// Genesis construction and validation errors.

// MissingPrevrandaoError indicates a post-merge genesis without a mix hash.
type MissingPrevrandaoError struct{}

func (*MissingPrevrandaoError) Error() string {
	return "genesis requires a prevrandao value after the merge"
}

// InvalidBlockNumberError indicates a block number that does not follow
// its parent (or a non-zero genesis number).
type InvalidBlockNumberError struct {
	Actual   uint64
	Expected uint64
}

func (e *InvalidBlockNumberError) Error() string {
	return fmt.Sprintf("invalid block number %d, expected %d", e.Actual, e.Expected)
}

// MissingWithdrawalsError indicates an absent withdrawals root at a
// hardfork that requires one.
type MissingWithdrawalsError struct{}

func (*MissingWithdrawalsError) Error() string {
	return "block requires a withdrawals root at this hardfork"
}

// Insert validation errors.

// InvalidParentHashError indicates a parent hash that does not match the
// current tip.
type InvalidParentHashError struct {
	Actual   types.Hash
	Expected types.Hash
}

func (e *InvalidParentHashError) Error() string {
	return fmt.Sprintf("invalid parent hash %s, expected %s", e.Actual.Hex(), e.Expected.Hex())
}

// InvalidTimestampError indicates a timestamp not after the parent's.
type InvalidTimestampError struct {
	Actual uint64
	Parent uint64
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %d, parent has %d", e.Actual, e.Parent)
}

// InvalidGasUsedError indicates gas used exceeding the block gas limit.
type InvalidGasUsedError struct {
	GasUsed  uint64
	GasLimit uint64
}

func (e *InvalidGasUsedError) Error() string {
	return fmt.Sprintf("gas used %d exceeds gas limit %d", e.GasUsed, e.GasLimit)
}

// InvalidGasLimitError indicates a gas limit outside the bound allowed
// relative to the parent.
type InvalidGasLimitError struct {
	GasLimit uint64
	Parent   uint64
}

func (e *InvalidGasLimitError) Error() string {
	return fmt.Sprintf("gas limit %d out of bounds relative to parent's %d", e.GasLimit, e.Parent)
}

// InvalidBaseFeeError indicates a base fee disagreeing with the EIP-1559
// formula over the parent.
type InvalidBaseFeeError struct {
	Actual   *big.Int
	Expected *big.Int
}

func (e *InvalidBaseFeeError) Error() string {
	return fmt.Sprintf("invalid base fee %v, expected %v", e.Actual, e.Expected)
}

// InvalidBlobGasError indicates blob gas fields inconsistent with the
// parent's excess blob gas.
type InvalidBlobGasError struct {
	Reason string
}

func (e *InvalidBlobGasError) Error() string {
	return "invalid blob gas: " + e.Reason
}

// Lookup errors.

// UnknownBlockNumberError indicates a block number past the current tip.
type UnknownBlockNumberError struct {
	Number uint64
}

func (e *UnknownBlockNumberError) Error() string {
	return fmt.Sprintf("unknown block number %d", e.Number)
}

// Builder errors.

// UnsupportedHardforkError indicates a hardfork earlier than the minimum
// the builder supports.
type UnsupportedHardforkError struct {
	Hardfork Hardfork
}

func (e *UnsupportedHardforkError) Error() string {
	return fmt.Sprintf("unsupported hardfork %s", e.Hardfork)
}

// ExceedsBlockGasLimitError indicates a transaction whose gas limit does
// not fit in the block's remaining gas.
type ExceedsBlockGasLimitError struct {
	TxGasLimit   uint64
	GasRemaining uint64
}

func (e *ExceedsBlockGasLimitError) Error() string {
	return fmt.Sprintf("transaction gas limit %d exceeds remaining block gas %d", e.TxGasLimit, e.GasRemaining)
}

// ExceedsBlockBlobGasLimitError indicates a blob transaction overflowing
// the per-block blob gas budget.
type ExceedsBlockBlobGasLimitError struct {
	TxBlobGas   uint64
	RunningBlob uint64
}

func (e *ExceedsBlockBlobGasLimitError) Error() string {
	return fmt.Sprintf("blob gas %d plus running total %d exceeds the block blob budget", e.TxBlobGas, e.RunningBlob)
}

// Execution errors.

var (
	// ErrEip1559Unsupported is returned for transactions with max-fee
	// fields before London.
	ErrEip1559Unsupported = errors.New("eip-1559 transactions are not supported at this hardfork")

	// ErrEip2930Unsupported is returned for access-list transactions
	// before Berlin.
	ErrEip2930Unsupported = errors.New("eip-2930 transactions are not supported at this hardfork")

	// ErrEip7702Unsupported is returned for set-code transactions before
	// Prague.
	ErrEip7702Unsupported = errors.New("eip-7702 transactions are not supported at this hardfork")

	// ErrBlobTxUnsupported is returned for blob transactions before Cancun.
	ErrBlobTxUnsupported = errors.New("blob transactions are not supported at this hardfork")

	// ErrDuplicateTransaction is returned when a transaction already in
	// the block is added again.
	ErrDuplicateTransaction = errors.New("transaction already included in the block")

	// ErrNonceTooLow is returned when a transaction's nonce is behind the
	// sender account.
	ErrNonceTooLow = errors.New("nonce too low")

	// ErrNonceTooHigh is returned when a transaction's nonce is ahead of
	// the sender account.
	ErrNonceTooHigh = errors.New("nonce too high")

	// ErrInsufficientFunds is returned when the sender cannot cover value
	// plus the maximum gas cost.
	ErrInsufficientFunds = errors.New("insufficient funds for gas * price + value")

	// ErrIntrinsicGas is returned when the transaction's gas limit is
	// below its intrinsic cost.
	ErrIntrinsicGas = errors.New("intrinsic gas too low")

	// ErrFeeCapTooLow is returned when the fee cap is below the block
	// base fee.
	ErrFeeCapTooLow = errors.New("max fee per gas below block base fee")
)

// TransactionError wraps an execution failure together with the index of
// the offending transaction.
type TransactionError struct {
	Index int
	Hash  types.Hash
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %d (%s): %v", e.Index, e.Hash.Hex(), e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
