package core

import (
	"context"
	"math/big"
	"sync"

	"github.com/NomicFoundation/edr-sub004/core/state"
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// RemoteChainReader is the view of an upstream node a forked chain reads
// through. Implementations convert wire data into internal blocks and
// decide per block whether a response is reorg-safe.
type RemoteChainReader interface {
	// BlockByNumber returns the block and its total difficulty, or a nil
	// block when the number is unknown upstream.
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, *big.Int, error)

	// BlockByHash is the by-hash analog of BlockByNumber.
	BlockByHash(ctx context.Context, hash types.Hash) (*types.Block, *big.Int, error)

	// BlockHashByTransactionHash resolves the hash of the block that
	// contains the transaction, or the zero hash when unknown.
	BlockHashByTransactionHash(ctx context.Context, txHash types.Hash) (types.Hash, error)

	// ReceiptByTransactionHash returns the receipt, or nil when unknown.
	ReceiptByTransactionHash(ctx context.Context, txHash types.Hash) (*types.Receipt, error)

	// IsCacheableBlockNumber reports whether the block is deep enough
	// below the upstream head to never be reorged away.
	IsCacheableBlockNumber(ctx context.Context, number uint64) (bool, error)
}

// ForkedBlockchain layers a local chain on top of a remote one: blocks at
// or below the fork point are read through a caching remote reader, blocks
// above it live in local sparse storage.
type ForkedBlockchain struct {
	ctx    context.Context
	reader RemoteChainReader

	config        *ChainConfig
	remoteChainID *big.Int
	forkBlock     uint64

	local      *SparseBlockStorage
	lastNumber uint64

	// Remote cache. Monotonic within a fork: entries are only added.
	mu             sync.RWMutex
	remoteByHash   map[types.Hash]*storedBlock
	remoteByNumber map[uint64]*storedBlock
	remoteByTx     map[types.Hash]*storedBlock
	remoteReceipts map[types.Hash]*types.Receipt
}

// NewForkedBlockchain creates a forked chain branching off the remote
// chain at forkBlock. config governs the local chain above the fork
// point; remoteChainID is what the upstream chain reports for blocks at
// or below it. ctx bounds every remote read the chain issues.
func NewForkedBlockchain(ctx context.Context, reader RemoteChainReader, config *ChainConfig, remoteChainID *big.Int, forkBlock uint64) (*ForkedBlockchain, error) {
	fb := &ForkedBlockchain{
		ctx:            ctx,
		reader:         reader,
		config:         config.Copy(),
		remoteChainID:  new(big.Int).Set(remoteChainID),
		forkBlock:      forkBlock,
		local:          NewSparseBlockStorage(),
		lastNumber:     forkBlock,
		remoteByHash:   make(map[types.Hash]*storedBlock),
		remoteByNumber: make(map[uint64]*storedBlock),
		remoteByTx:     make(map[types.Hash]*storedBlock),
		remoteReceipts: make(map[types.Hash]*types.Receipt),
	}
	// The fork block must exist; fetching it now also seeds the cache
	// with the parent every local insert validates against.
	stored, err := fb.remoteBlockByNumber(forkBlock)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, &UnknownBlockNumberError{Number: forkBlock}
	}
	return fb, nil
}

// Config returns the local chain config.
func (fb *ForkedBlockchain) Config() *ChainConfig { return fb.config }

// ForkBlockNumber returns the block number the chain branched off at.
func (fb *ForkedBlockchain) ForkBlockNumber() uint64 { return fb.forkBlock }

// ChainIDAtBlockNumber returns the chain id governing the given block:
// the remote chain's id at or below the fork point, the local one above.
func (fb *ForkedBlockchain) ChainIDAtBlockNumber(number uint64) *big.Int {
	if number <= fb.forkBlock {
		return new(big.Int).Set(fb.remoteChainID)
	}
	return new(big.Int).Set(fb.config.ChainID)
}

// LastBlockNumber returns the logical tip, including reserved ranges.
func (fb *ForkedBlockchain) LastBlockNumber() uint64 { return fb.lastNumber }

// LastBlock returns the block at the tip.
func (fb *ForkedBlockchain) LastBlock() (*types.Block, error) {
	return fb.BlockByNumber(fb.lastNumber)
}

// BlockByNumber dispatches by fork point: remote at or below, local above.
func (fb *ForkedBlockchain) BlockByNumber(number uint64) (*types.Block, error) {
	if number <= fb.forkBlock {
		stored, err := fb.remoteBlockByNumber(number)
		if err != nil || stored == nil {
			return nil, err
		}
		return stored.block, nil
	}
	stored, err := fb.local.BlockByNumber(number)
	if err != nil || stored == nil {
		return nil, err
	}
	return stored.block, nil
}

// BlockHashByNumber returns the block hash, or the zero hash when absent.
func (fb *ForkedBlockchain) BlockHashByNumber(number uint64) (types.Hash, error) {
	block, err := fb.BlockByNumber(number)
	if err != nil || block == nil {
		return types.Hash{}, err
	}
	return block.Hash(), nil
}

// BlockByHash consults local storage first, then the remote chain.
func (fb *ForkedBlockchain) BlockByHash(hash types.Hash) (*types.Block, error) {
	if stored := fb.local.BlockByHash(hash); stored != nil {
		return stored.block, nil
	}
	stored, err := fb.remoteBlockByHash(hash)
	if err != nil || stored == nil {
		return nil, err
	}
	return stored.block, nil
}

// BlockByTransactionHash returns the block containing the transaction,
// searching local storage before the remote chain.
func (fb *ForkedBlockchain) BlockByTransactionHash(txHash types.Hash) (*types.Block, error) {
	if stored := fb.local.BlockByTransactionHash(txHash); stored != nil {
		return stored.block, nil
	}
	fb.mu.RLock()
	stored, hit := fb.remoteByTx[txHash]
	fb.mu.RUnlock()
	if hit {
		return stored.block, nil
	}
	blockHash, err := fb.reader.BlockHashByTransactionHash(fb.ctx, txHash)
	if err != nil {
		return nil, err
	}
	if blockHash.IsZero() {
		return nil, nil
	}
	return fb.BlockByHash(blockHash)
}

// ReceiptByTransactionHash returns the receipt for the transaction.
func (fb *ForkedBlockchain) ReceiptByTransactionHash(txHash types.Hash) (*types.Receipt, error) {
	if receipt := fb.local.ReceiptByTransactionHash(txHash); receipt != nil {
		return receipt, nil
	}
	fb.mu.RLock()
	receipt, hit := fb.remoteReceipts[txHash]
	fb.mu.RUnlock()
	if hit {
		return receipt, nil
	}
	receipt, err := fb.reader.ReceiptByTransactionHash(fb.ctx, txHash)
	if err != nil || receipt == nil {
		return nil, err
	}
	cacheable, err := fb.reader.IsCacheableBlockNumber(fb.ctx, receipt.BlockNumber)
	if err != nil {
		return nil, err
	}
	if cacheable {
		fb.mu.Lock()
		fb.remoteReceipts[txHash] = receipt
		fb.mu.Unlock()
	}
	return receipt, nil
}

// TotalDifficultyByHash returns the cumulative difficulty, or nil when
// the hash is unknown on both sides of the fork.
func (fb *ForkedBlockchain) TotalDifficultyByHash(hash types.Hash) (*big.Int, error) {
	if td := fb.local.TotalDifficultyByHash(hash); td != nil {
		return td, nil
	}
	stored, err := fb.remoteBlockByHash(hash)
	if err != nil || stored == nil {
		return nil, err
	}
	return new(big.Int).Set(stored.totalDifficulty), nil
}

// InsertBlock appends a locally mined block above the fork point.
func (fb *ForkedBlockchain) InsertBlock(block *types.Block, diff *state.StateDiff) (*big.Int, error) {
	parent, err := fb.LastBlock()
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, &UnknownBlockNumberError{Number: fb.lastNumber}
	}
	if err := ValidateNextBlock(fb.config, parent, block); err != nil {
		return nil, err
	}
	parentTotal, err := fb.TotalDifficultyByHash(parent.Hash())
	if err != nil {
		return nil, err
	}
	if parentTotal == nil {
		panic("core: total difficulty missing for stored block")
	}
	total := new(big.Int).Set(parentTotal)
	if block.Difficulty() != nil {
		total.Add(total, block.Difficulty())
	}
	fb.local.Insert(block, total, diff)
	fb.lastNumber = fb.local.LastBlockNumber()
	return total, nil
}

// ReserveBlocks extends the local chain by additional empty blocks spaced
// by interval seconds. No-op when additional is 0.
func (fb *ForkedBlockchain) ReserveBlocks(additional uint64, interval uint64) error {
	if additional == 0 {
		return nil
	}
	tip, err := fb.LastBlock()
	if err != nil {
		return err
	}
	if tip == nil {
		return &UnknownBlockNumberError{Number: fb.lastNumber}
	}
	tipTotal, err := fb.TotalDifficultyByHash(tip.Hash())
	if err != nil {
		return err
	}
	header := tip.Header()
	template := &reservation{
		previousNumber:    tip.NumberU64(),
		previousTimestamp: header.Timestamp,
		previousBaseFee:   header.BaseFee,
		previousStateRoot: header.StateRoot,
		previousTotalDiff: tipTotal,
		previousGasLimit:  header.GasLimit,
		hardfork:          fb.config.Hardfork,
	}
	if fb.local.empty {
		// Sparse storage has not seen a block yet; align its tip with
		// the fork point so the reservation starts above it.
		fb.local.lastNumber = fb.lastNumber
		fb.local.empty = false
	}
	fb.local.Reserve(additional, interval, template)
	fb.lastNumber = fb.local.LastBlockNumber()
	return nil
}

// RevertToBlock drops every local block above number. Reverting into the
// remote range is not possible.
func (fb *ForkedBlockchain) RevertToBlock(number uint64) error {
	if number < fb.forkBlock || number > fb.lastNumber {
		return &UnknownBlockNumberError{Number: number}
	}
	if number == fb.forkBlock {
		fb.local = NewSparseBlockStorage()
	} else if !fb.local.RevertToBlock(number) {
		return &UnknownBlockNumberError{Number: number}
	}
	fb.lastNumber = number
	return nil
}

// remoteBlockByNumber reads through the remote cache by number.
func (fb *ForkedBlockchain) remoteBlockByNumber(number uint64) (*storedBlock, error) {
	fb.mu.RLock()
	stored, hit := fb.remoteByNumber[number]
	fb.mu.RUnlock()
	if hit {
		return stored, nil
	}
	block, td, err := fb.reader.BlockByNumber(fb.ctx, number)
	if err != nil || block == nil {
		return nil, err
	}
	return fb.cacheRemoteBlock(block, td)
}

// remoteBlockByHash reads through the remote cache by hash.
func (fb *ForkedBlockchain) remoteBlockByHash(hash types.Hash) (*storedBlock, error) {
	fb.mu.RLock()
	stored, hit := fb.remoteByHash[hash]
	fb.mu.RUnlock()
	if hit {
		return stored, nil
	}
	block, td, err := fb.reader.BlockByHash(fb.ctx, hash)
	if err != nil || block == nil {
		return nil, err
	}
	return fb.cacheRemoteBlock(block, td)
}

// cacheRemoteBlock inserts a fetched block into the cache when it is
// reorg-safe. Partial fetches never reach the cache.
func (fb *ForkedBlockchain) cacheRemoteBlock(block *types.Block, td *big.Int) (*storedBlock, error) {
	if td == nil {
		td = new(big.Int)
	}
	stored := &storedBlock{block: block, totalDifficulty: td}
	cacheable, err := fb.reader.IsCacheableBlockNumber(fb.ctx, block.NumberU64())
	if err != nil {
		return nil, err
	}
	if cacheable {
		fb.mu.Lock()
		fb.remoteByHash[block.Hash()] = stored
		fb.remoteByNumber[block.NumberU64()] = stored
		for _, tx := range block.Transactions() {
			fb.remoteByTx[tx.Hash()] = stored
		}
		fb.mu.Unlock()
	}
	return stored, nil
}
