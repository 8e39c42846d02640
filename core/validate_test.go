package core

import (
	"errors"
	"math/big"
	"testing"

	"github.com/NomicFoundation/edr-sub004/core/types"
)

// childHeader returns a header that validates against parent at the given
// hardfork before any test-specific corruption.
func childHeader(parent *types.Block, hardfork Hardfork) *types.Header {
	parentHeader := parent.Header()
	header := &types.Header{
		ParentHash: parent.Hash(),
		OmmersHash: types.EmptyOmmersHash,
		Difficulty: new(big.Int),
		Number:     new(big.Int).SetUint64(parent.NumberU64() + 1),
		GasLimit:   parentHeader.GasLimit,
		Timestamp:  parentHeader.Timestamp + 1,
	}
	if hardfork.HasBaseFee() {
		header.BaseFee = CalcBaseFee(parentHeader)
	}
	if hardfork.HasBlobGas() {
		var parentExcess, parentUsed uint64
		if parentHeader.ExcessBlobGas != nil {
			parentExcess = *parentHeader.ExcessBlobGas
		}
		if parentHeader.BlobGasUsed != nil {
			parentUsed = *parentHeader.BlobGasUsed
		}
		excess := CalcExcessBlobGas(parentExcess, parentUsed)
		header.ExcessBlobGas = &excess
		used := uint64(0)
		header.BlobGasUsed = &used
		beacon := types.Hash{}
		header.ParentBeaconRoot = &beacon
	}
	return header
}

func sealChild(t *testing.T, header *types.Header, hardfork Hardfork) *types.Block {
	t.Helper()
	var withdrawals types.Withdrawals
	if hardfork.HasWithdrawals() {
		withdrawals = types.Withdrawals{}
	}
	block, err := types.NewBlock(header, nil, nil, withdrawals)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	return block
}

func TestValidateNextBlock_AcceptsValidChild(t *testing.T) {
	sender := testSenderAddress(t)
	bc := newFundedChain(t, Cancun, sender, oneEther)
	parent, _ := bc.BlockByNumber(0)

	child := sealChild(t, childHeader(parent, Cancun), Cancun)
	if err := ValidateNextBlock(bc.Config(), parent, child); err != nil {
		t.Fatalf("valid child rejected: %v", err)
	}
}

func TestValidateNextBlock_Rejections(t *testing.T) {
	sender := testSenderAddress(t)
	bc := newFundedChain(t, Cancun, sender, oneEther)
	parent, _ := bc.BlockByNumber(0)

	cases := []struct {
		name    string
		corrupt func(h *types.Header)
		check   func(err error) bool
	}{
		{
			name:    "wrong number",
			corrupt: func(h *types.Header) { h.Number = big.NewInt(7) },
			check: func(err error) bool {
				var e *InvalidBlockNumberError
				return errors.As(err, &e) && e.Expected == 1
			},
		},
		{
			name:    "wrong parent hash",
			corrupt: func(h *types.Header) { h.ParentHash = types.Hash{0x01} },
			check: func(err error) bool {
				var e *InvalidParentHashError
				return errors.As(err, &e)
			},
		},
		{
			name:    "timestamp not advancing",
			corrupt: func(h *types.Header) { h.Timestamp = parent.Header().Timestamp },
			check: func(err error) bool {
				var e *InvalidTimestampError
				return errors.As(err, &e)
			},
		},
		{
			name:    "gas used above limit",
			corrupt: func(h *types.Header) { h.GasUsed = h.GasLimit + 1 },
			check: func(err error) bool {
				var e *InvalidGasUsedError
				return errors.As(err, &e)
			},
		},
		{
			name:    "gas limit jump",
			corrupt: func(h *types.Header) { h.GasLimit = h.GasLimit * 2 },
			check: func(err error) bool {
				var e *InvalidGasLimitError
				return errors.As(err, &e)
			},
		},
		{
			name:    "wrong base fee",
			corrupt: func(h *types.Header) { h.BaseFee = big.NewInt(1) },
			check: func(err error) bool {
				var e *InvalidBaseFeeError
				return errors.As(err, &e)
			},
		},
		{
			name:    "missing blob gas fields",
			corrupt: func(h *types.Header) { h.BlobGasUsed = nil; h.ExcessBlobGas = nil },
			check: func(err error) bool {
				var e *InvalidBlobGasError
				return errors.As(err, &e)
			},
		},
		{
			name: "excess blob gas disagrees",
			corrupt: func(h *types.Header) {
				excess := uint64(TargetBlobGasPerBlock)
				h.ExcessBlobGas = &excess
			},
			check: func(err error) bool {
				var e *InvalidBlobGasError
				return errors.As(err, &e)
			},
		},
	}

	for _, tc := range cases {
		header := childHeader(parent, Cancun)
		tc.corrupt(header)
		child := sealChild(t, header, Cancun)
		err := ValidateNextBlock(bc.Config(), parent, child)
		if err == nil || !tc.check(err) {
			t.Fatalf("%s: got %v", tc.name, err)
		}
	}
}

func TestValidateNextBlock_MissingWithdrawals(t *testing.T) {
	sender := testSenderAddress(t)
	bc := newFundedChain(t, Shanghai, sender, oneEther)
	parent, _ := bc.BlockByNumber(0)

	// Seal without a withdrawals list so the root is absent.
	child := sealChild(t, childHeader(parent, Shanghai), London)
	err := ValidateNextBlock(bc.Config(), parent, child)
	var missing *MissingWithdrawalsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing withdrawals, got %v", err)
	}
}

func TestValidateNextBlock_EqualTimestamp(t *testing.T) {
	sender := testSenderAddress(t)
	bc := newFundedChain(t, Shanghai, sender, oneEther)
	parent, _ := bc.BlockByNumber(0)

	header := childHeader(parent, Shanghai)
	header.Timestamp = parent.Header().Timestamp
	child := sealChild(t, header, Shanghai)

	if err := ValidateNextBlock(bc.Config(), parent, child); err == nil {
		t.Fatal("equal timestamp accepted without the config flag")
	}

	permissive := bc.Config().Copy()
	permissive.AllowEqualTimestamp = true
	if err := ValidateNextBlock(permissive, parent, child); err != nil {
		t.Fatalf("equal timestamp rejected with the config flag: %v", err)
	}
}

func TestValidateGasLimit_Bounds(t *testing.T) {
	const parent = 1_024_000
	bound := uint64(parent / GasLimitBoundDivisor)

	if err := validateGasLimit(parent, parent); err != nil {
		t.Fatalf("unchanged limit: %v", err)
	}
	if err := validateGasLimit(parent, parent+bound-1); err != nil {
		t.Fatalf("increase inside the bound: %v", err)
	}
	if err := validateGasLimit(parent, parent+bound); err == nil {
		t.Fatal("increase at the bound accepted")
	}
	if err := validateGasLimit(parent, parent-bound); err == nil {
		t.Fatal("decrease at the bound accepted")
	}
	if err := validateGasLimit(parent, MinGasLimit-1); err == nil {
		t.Fatal("limit below the minimum accepted")
	}
}
