package core

import (
	"math/big"

	"github.com/NomicFoundation/edr-sub004/core/types"
)

const (
	// GasLimitBoundDivisor bounds how far a gas limit may move per block.
	GasLimitBoundDivisor = 1024

	// MinGasLimit is the lowest gas limit a block may declare.
	MinGasLimit = 5000

	// ElasticityMultiplier bounds block size relative to the gas target.
	ElasticityMultiplier = 2

	// BaseFeeChangeDenominator bounds base fee movement per block.
	BaseFeeChangeDenominator = 8

	// InitialBaseFee is the base fee of the first EIP-1559 block.
	InitialBaseFee = 1_000_000_000

	// MaxExtraDataSize caps the header extra-data field.
	MaxExtraDataSize = 32
)

// CalcBaseFee computes the base fee of the block following parent per the
// EIP-1559 update rule. When the parent has no base fee (the fork block),
// the initial base fee is returned.
func CalcBaseFee(parent *types.Header) *big.Int {
	if parent.BaseFee == nil {
		return big.NewInt(InitialBaseFee)
	}

	gasTarget := parent.GasLimit / ElasticityMultiplier
	parentBaseFee := parent.BaseFee

	switch {
	case parent.GasUsed == gasTarget:
		return new(big.Int).Set(parentBaseFee)

	case parent.GasUsed > gasTarget:
		gasUsedDelta := new(big.Int).SetUint64(parent.GasUsed - gasTarget)
		delta := new(big.Int).Mul(parentBaseFee, gasUsedDelta)
		delta.Div(delta, new(big.Int).SetUint64(gasTarget))
		delta.Div(delta, big.NewInt(BaseFeeChangeDenominator))
		if delta.Sign() == 0 {
			delta.SetUint64(1)
		}
		return delta.Add(parentBaseFee, delta)

	default:
		gasUsedDelta := new(big.Int).SetUint64(gasTarget - parent.GasUsed)
		delta := new(big.Int).Mul(parentBaseFee, gasUsedDelta)
		delta.Div(delta, new(big.Int).SetUint64(gasTarget))
		delta.Div(delta, big.NewInt(BaseFeeChangeDenominator))
		baseFee := new(big.Int).Sub(parentBaseFee, delta)
		if baseFee.Sign() < 0 {
			baseFee.SetUint64(0)
		}
		return baseFee
	}
}
