package core

import (
	"math/big"
)

const (
	// TargetBlobGasPerBlock is the blob gas target (three blobs).
	TargetBlobGasPerBlock = 3 * 131072

	// MaxBlobGasPerBlock is the blob gas budget (six blobs).
	MaxBlobGasPerBlock = 6 * 131072

	// MinBlobGasPrice is the floor of the blob gas price.
	MinBlobGasPrice = 1

	// BlobGasPriceUpdateFraction controls how fast the blob gas price
	// responds to excess blob gas.
	BlobGasPriceUpdateFraction = 3338477
)

// CalcExcessBlobGas computes a block's excess blob gas from its parent's
// excess and usage.
func CalcExcessBlobGas(parentExcess, parentUsed uint64) uint64 {
	total := parentExcess + parentUsed
	if total < TargetBlobGasPerBlock {
		return 0
	}
	return total - TargetBlobGasPerBlock
}

// CalcBlobGasPrice computes the blob gas price for a block with the given
// excess blob gas.
func CalcBlobGasPrice(excessBlobGas uint64) *big.Int {
	return fakeExponential(
		big.NewInt(MinBlobGasPrice),
		new(big.Int).SetUint64(excessBlobGas),
		big.NewInt(BlobGasPriceUpdateFraction),
	)
}

// fakeExponential approximates factor * e^(numerator/denominator) with
// integer arithmetic by Taylor expansion.
func fakeExponential(factor, numerator, denominator *big.Int) *big.Int {
	output := new(big.Int)
	accum := new(big.Int).Mul(factor, denominator)
	for i := 1; accum.Sign() > 0; i++ {
		output.Add(output, accum)
		accum.Mul(accum, numerator)
		accum.Div(accum, denominator)
		accum.Div(accum, big.NewInt(int64(i)))
	}
	return output.Div(output, denominator)
}
