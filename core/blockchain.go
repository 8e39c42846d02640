package core

import (
	"math/big"
	"sort"

	"github.com/NomicFoundation/edr-sub004/core/state"
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// Blockchain is the local chain engine: a linear chain of blocks with
// sparse reservations, per-block state diffs and log filtering. Reads are
// safe to share; mutations require exclusive access.
type Blockchain struct {
	config  *ChainConfig
	storage *SparseBlockStorage

	genesisDiff *state.StateDiff
}

// NewBlockchain creates a chain from a genesis block. The diff is the
// allocation the genesis state was built from; it seeds historical state
// reconstruction.
func NewBlockchain(config *ChainConfig, genesis *types.Block, genesisDiff *state.StateDiff) (*Blockchain, error) {
	if err := validateGenesisBlock(config, genesis); err != nil {
		return nil, err
	}
	bc := &Blockchain{
		config:      config.Copy(),
		storage:     NewSparseBlockStorage(),
		genesisDiff: genesisDiff,
	}
	difficulty := new(big.Int)
	if genesis.Difficulty() != nil {
		difficulty = genesis.Difficulty()
	}
	bc.storage.Insert(genesis, difficulty, genesisDiff)
	return bc, nil
}

// Config returns the chain config.
func (bc *Blockchain) Config() *ChainConfig { return bc.config }

// ChainID returns the chain ID.
func (bc *Blockchain) ChainID() *big.Int { return new(big.Int).Set(bc.config.ChainID) }

// Hardfork returns the chain's hardfork.
func (bc *Blockchain) Hardfork() Hardfork { return bc.config.Hardfork }

// LastBlockNumber returns the number of the logical tip, which may be
// inside a reserved range.
func (bc *Blockchain) LastBlockNumber() uint64 {
	return bc.storage.LastBlockNumber()
}

// LastBlock returns the block at the tip, materializing it if reserved.
func (bc *Blockchain) LastBlock() (*types.Block, error) {
	return bc.BlockByNumber(bc.storage.LastBlockNumber())
}

// BlockByHash returns the block with the given hash, or nil.
func (bc *Blockchain) BlockByHash(hash types.Hash) (*types.Block, error) {
	stored := bc.storage.BlockByHash(hash)
	if stored == nil {
		return nil, nil
	}
	return stored.block, nil
}

// BlockByNumber returns the block with the given number, or nil when it is
// past the tip. Reserved blocks are materialized on demand.
func (bc *Blockchain) BlockByNumber(number uint64) (*types.Block, error) {
	stored, err := bc.storage.BlockByNumber(number)
	if err != nil || stored == nil {
		return nil, err
	}
	return stored.block, nil
}

// BlockHashByNumber returns the hash of the block with the given number,
// or the zero hash when absent.
func (bc *Blockchain) BlockHashByNumber(number uint64) (types.Hash, error) {
	block, err := bc.BlockByNumber(number)
	if err != nil || block == nil {
		return types.Hash{}, err
	}
	return block.Hash(), nil
}

// BlockByTransactionHash returns the block containing the transaction.
func (bc *Blockchain) BlockByTransactionHash(txHash types.Hash) (*types.Block, error) {
	stored := bc.storage.BlockByTransactionHash(txHash)
	if stored == nil {
		return nil, nil
	}
	return stored.block, nil
}

// ReceiptByTransactionHash returns the receipt for the transaction.
func (bc *Blockchain) ReceiptByTransactionHash(txHash types.Hash) (*types.Receipt, error) {
	return bc.storage.ReceiptByTransactionHash(txHash), nil
}

// TotalDifficultyByHash returns the cumulative difficulty of the block, or
// nil when the hash is unknown.
func (bc *Blockchain) TotalDifficultyByHash(hash types.Hash) (*big.Int, error) {
	return bc.storage.TotalDifficultyByHash(hash), nil
}

// InsertBlock validates the block against the tip, computes its cumulative
// difficulty, stores the state diff and indexes everything. The returned
// total difficulty is the new cumulative value.
func (bc *Blockchain) InsertBlock(block *types.Block, diff *state.StateDiff) (*big.Int, error) {
	parent, err := bc.LastBlock()
	if err != nil {
		return nil, err
	}
	if err := ValidateNextBlock(bc.config, parent, block); err != nil {
		return nil, err
	}
	parentTotal := bc.storage.TotalDifficultyByHash(parent.Hash())
	if parentTotal == nil {
		// The tip was just looked up; a missing difficulty is our own
		// bookkeeping bug.
		panic("core: total difficulty missing for stored block")
	}
	total := new(big.Int).Set(parentTotal)
	if block.Difficulty() != nil {
		total.Add(total, block.Difficulty())
	}
	bc.storage.Insert(block, total, diff)
	return total, nil
}

// ReserveBlocks extends the chain by additional empty blocks spaced by
// interval seconds without materializing them. No-op when additional is 0.
func (bc *Blockchain) ReserveBlocks(additional uint64, interval uint64) error {
	if additional == 0 {
		return nil
	}
	tip, err := bc.LastBlock()
	if err != nil {
		return err
	}
	header := tip.Header()
	template := &reservation{
		previousNumber:    tip.NumberU64(),
		previousTimestamp: header.Timestamp,
		previousBaseFee:   header.BaseFee,
		previousStateRoot: header.StateRoot,
		previousTotalDiff: bc.storage.TotalDifficultyByHash(tip.Hash()),
		previousGasLimit:  header.GasLimit,
		hardfork:          bc.config.Hardfork,
	}
	bc.storage.Reserve(additional, interval, template)
	return nil
}

// RevertToBlock drops every block above number, including reservations.
func (bc *Blockchain) RevertToBlock(number uint64) error {
	if !bc.storage.RevertToBlock(number) {
		return &UnknownBlockNumberError{Number: number}
	}
	return nil
}

// Logs returns every log in the criteria's block range matching its
// address and topic constraints, in (block number, log index) order.
// Blooms are consulted before visiting a block's receipts.
func (bc *Blockchain) Logs(criteria FilterCriteria) ([]*types.Log, error) {
	to := criteria.ToBlock
	if to > bc.storage.LastBlockNumber() {
		to = bc.storage.LastBlockNumber()
	}
	// Reserved blocks are empty, so only materialized blocks are
	// consulted.
	numbers := make([]uint64, 0)
	for n := range bc.storage.byNumber {
		if n >= criteria.FromBlock && n <= to {
			numbers = append(numbers, n)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	var logs []*types.Log
	for _, n := range numbers {
		stored := bc.storage.byNumber[n]
		if !criteria.bloomCandidate(stored.block.Header().Bloom) {
			continue
		}
		for _, receipt := range stored.block.Receipts() {
			for _, log := range receipt.Logs {
				if criteria.matches(log) {
					logs = append(logs, log)
				}
			}
		}
	}
	return logs, nil
}

// StateAtBlockNumber reconstructs the state as of just after block number
// by replaying the stored diffs from genesis, layering the per-block
// overrides in block order.
func (bc *Blockchain) StateAtBlockNumber(number uint64, overrides state.BlockOverrides) (*state.TrieState, error) {
	if number > bc.storage.LastBlockNumber() {
		return nil, &UnknownBlockNumberError{Number: number}
	}
	// Only materialized blocks carry diffs; reserved blocks are empty.
	// Visit the numbers that actually have something to apply, in order.
	diffNumbers := make(map[uint64]struct{})
	for n, stored := range bc.storage.byNumber {
		if n <= number && stored.stateDiff != nil {
			diffNumbers[n] = struct{}{}
		}
	}
	for n := range overrides {
		if n <= number {
			diffNumbers[n] = struct{}{}
		}
	}
	ordered := make([]uint64, 0, len(diffNumbers))
	for n := range diffNumbers {
		ordered = append(ordered, n)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	st := state.NewTrieState()
	for _, n := range ordered {
		if stored := bc.storage.byNumber[n]; stored != nil && stored.stateDiff != nil {
			if err := st.Commit(stored.stateDiff); err != nil {
				return nil, err
			}
		}
		if override, ok := overrides[n]; ok && override.Diff != nil {
			if err := st.Commit(override.Diff); err != nil {
				return nil, err
			}
		}
	}
	return st, nil
}
