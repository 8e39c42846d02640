package core

import (
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// ValidateNextBlock checks that block is a valid successor of parent under
// the chain config. It returns the first violation found.
func ValidateNextBlock(config *ChainConfig, parent, block *types.Block) error {
	parentHeader := parent.Header()
	header := block.Header()

	expectedNumber := parent.NumberU64() + 1
	if block.NumberU64() != expectedNumber {
		return &InvalidBlockNumberError{Actual: block.NumberU64(), Expected: expectedNumber}
	}
	if header.ParentHash != parent.Hash() {
		return &InvalidParentHashError{Actual: header.ParentHash, Expected: parent.Hash()}
	}
	if header.Timestamp < parentHeader.Timestamp ||
		(header.Timestamp == parentHeader.Timestamp && !config.AllowEqualTimestamp) {
		return &InvalidTimestampError{Actual: header.Timestamp, Parent: parentHeader.Timestamp}
	}
	if header.GasUsed > header.GasLimit {
		return &InvalidGasUsedError{GasUsed: header.GasUsed, GasLimit: header.GasLimit}
	}
	if err := validateGasLimit(parentHeader.GasLimit, header.GasLimit); err != nil {
		return err
	}

	if config.Hardfork.HasBaseFee() {
		expected := CalcBaseFee(parentHeader)
		if header.BaseFee == nil || header.BaseFee.Cmp(expected) != 0 {
			return &InvalidBaseFeeError{Actual: header.BaseFee, Expected: expected}
		}
	}
	if config.Hardfork.HasWithdrawals() && header.WithdrawalsRoot == nil {
		return &MissingWithdrawalsError{}
	}
	if config.Hardfork.HasBlobGas() {
		if header.BlobGasUsed == nil || header.ExcessBlobGas == nil {
			return &InvalidBlobGasError{Reason: "blob gas fields missing"}
		}
		if *header.BlobGasUsed > MaxBlobGasPerBlock {
			return &InvalidBlobGasError{Reason: "blob gas used exceeds the block budget"}
		}
		var parentExcess, parentUsed uint64
		if parentHeader.ExcessBlobGas != nil {
			parentExcess = *parentHeader.ExcessBlobGas
		}
		if parentHeader.BlobGasUsed != nil {
			parentUsed = *parentHeader.BlobGasUsed
		}
		if *header.ExcessBlobGas != CalcExcessBlobGas(parentExcess, parentUsed) {
			return &InvalidBlobGasError{Reason: "excess blob gas disagrees with parent"}
		}
	}
	return nil
}

// validateGasLimit bounds the gas limit's movement relative to the parent.
func validateGasLimit(parentLimit, limit uint64) error {
	if limit < MinGasLimit {
		return &InvalidGasLimitError{GasLimit: limit, Parent: parentLimit}
	}
	bound := parentLimit / GasLimitBoundDivisor
	var diff uint64
	if limit > parentLimit {
		diff = limit - parentLimit
	} else {
		diff = parentLimit - limit
	}
	if diff != 0 && diff >= bound {
		return &InvalidGasLimitError{GasLimit: limit, Parent: parentLimit}
	}
	return nil
}
