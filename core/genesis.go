package core

import (
	"math/big"
	"time"

	"github.com/NomicFoundation/edr-sub004/core/state"
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// DefaultGenesisGasLimit is the gas limit used when none is specified.
const DefaultGenesisGasLimit = 6_000_000

// GenesisOptions configures the construction of a genesis block.
type GenesisOptions struct {
	// Timestamp in seconds; zero means the current wall clock.
	Timestamp uint64

	// GasLimit of the genesis block; zero means DefaultGenesisGasLimit.
	GasLimit uint64

	// ExtraData for the header, up to MaxExtraDataSize bytes.
	ExtraData []byte

	// MixHash becomes the prevrandao value. Required after the merge.
	MixHash *types.Hash

	// BaseFee overrides the initial base fee after London.
	BaseFee *big.Int

	// Beneficiary receives block rewards; the zero address by default.
	Beneficiary types.Address
}

// NewGenesisBlock commits the allocation diff to a fresh state and builds
// the genesis block committing to its root.
func NewGenesisBlock(config *ChainConfig, diff *state.StateDiff, opts GenesisOptions) (*types.Block, *state.TrieState, error) {
	genesisState := state.NewTrieState()
	if diff != nil {
		if err := genesisState.Commit(diff); err != nil {
			return nil, nil, err
		}
	}
	root, err := genesisState.StateRoot()
	if err != nil {
		return nil, nil, err
	}

	timestamp := opts.Timestamp
	if timestamp == 0 {
		timestamp = uint64(time.Now().Unix())
	}
	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGenesisGasLimit
	}

	header := &types.Header{
		OmmersHash:  types.EmptyOmmersHash,
		Beneficiary: opts.Beneficiary,
		StateRoot:   root,
		Difficulty:  new(big.Int),
		Number:      new(big.Int),
		GasLimit:    gasLimit,
		Timestamp:   timestamp,
		ExtraData:   opts.ExtraData,
	}
	if config.Hardfork.HasPrevrandao() {
		if opts.MixHash == nil {
			return nil, nil, &MissingPrevrandaoError{}
		}
		header.MixHash = *opts.MixHash
	} else {
		header.Difficulty = big.NewInt(1)
		if opts.MixHash != nil {
			header.MixHash = *opts.MixHash
		}
	}
	if config.Hardfork.HasBaseFee() {
		if opts.BaseFee != nil {
			header.BaseFee = new(big.Int).Set(opts.BaseFee)
		} else {
			header.BaseFee = big.NewInt(InitialBaseFee)
		}
	}
	if config.Hardfork.HasBlobGas() {
		zero := uint64(0)
		header.BlobGasUsed = &zero
		excess := uint64(0)
		header.ExcessBlobGas = &excess
		beacon := types.Hash{}
		header.ParentBeaconRoot = &beacon
	}

	var withdrawals types.Withdrawals
	if config.Hardfork.HasWithdrawals() {
		withdrawals = types.Withdrawals{}
	}
	block, err := types.NewBlock(header, nil, nil, withdrawals)
	if err != nil {
		return nil, nil, err
	}
	return block, genesisState, nil
}

// validateGenesisBlock checks the constraints the engine places on the
// genesis block it is constructed with.
func validateGenesisBlock(config *ChainConfig, block *types.Block) error {
	if block.NumberU64() != 0 {
		return &InvalidBlockNumberError{Actual: block.NumberU64(), Expected: 0}
	}
	if config.Hardfork.HasWithdrawals() && block.Header().WithdrawalsRoot == nil {
		return &MissingWithdrawalsError{}
	}
	return nil
}
