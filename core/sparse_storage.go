package core

import (
	"math/big"

	"github.com/NomicFoundation/edr-sub004/core/state"
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// storedBlock couples a block with its cumulative difficulty and the state
// diff its execution produced.
type storedBlock struct {
	block           *types.Block
	totalDifficulty *big.Int
	stateDiff       *state.StateDiff
}

// reservation is a compact template for a range of not-yet-materialized
// empty blocks. Blocks in the range are synthesized on demand.
type reservation struct {
	first    uint64
	last     uint64
	interval uint64

	previousNumber    uint64
	previousTimestamp uint64
	previousBaseFee   *big.Int
	previousStateRoot types.Hash
	previousTotalDiff *big.Int
	previousGasLimit  uint64
	hardfork          Hardfork
}

// SparseBlockStorage holds blocks indexed by hash, number and transaction
// hash, with support for reserved (lazily materialized) block ranges.
type SparseBlockStorage struct {
	byHash       map[types.Hash]*storedBlock
	byNumber     map[uint64]*storedBlock
	blockByTx    map[types.Hash]*storedBlock
	receiptByTx  map[types.Hash]*types.Receipt
	reservations []*reservation
	lastNumber   uint64
	empty        bool
}

// NewSparseBlockStorage creates empty storage.
func NewSparseBlockStorage() *SparseBlockStorage {
	return &SparseBlockStorage{
		byHash:      make(map[types.Hash]*storedBlock),
		byNumber:    make(map[uint64]*storedBlock),
		blockByTx:   make(map[types.Hash]*storedBlock),
		receiptByTx: make(map[types.Hash]*types.Receipt),
		empty:       true,
	}
}

// LastBlockNumber returns the logical tip, including reserved ranges.
func (s *SparseBlockStorage) LastBlockNumber() uint64 { return s.lastNumber }

// Insert stores a block with its cumulative difficulty and state diff and
// indexes its transactions and receipts.
func (s *SparseBlockStorage) Insert(block *types.Block, totalDifficulty *big.Int, diff *state.StateDiff) {
	stored := &storedBlock{
		block:           block,
		totalDifficulty: totalDifficulty,
		stateDiff:       diff,
	}
	s.byHash[block.Hash()] = stored
	s.byNumber[block.NumberU64()] = stored
	for _, tx := range block.Transactions() {
		s.blockByTx[tx.Hash()] = stored
	}
	for _, receipt := range block.Receipts() {
		s.receiptByTx[receipt.TxHash] = receipt
	}
	if s.empty || block.NumberU64() > s.lastNumber {
		s.lastNumber = block.NumberU64()
	}
	s.empty = false
}

// Reserve extends the logical tip by additional blocks spaced by interval
// seconds, using template as the realization context. No-op when
// additional is zero.
func (s *SparseBlockStorage) Reserve(additional uint64, interval uint64, template *reservation) {
	if additional == 0 {
		return
	}
	r := *template
	r.first = s.lastNumber + 1
	r.last = s.lastNumber + additional
	r.interval = interval
	s.reservations = append(s.reservations, &r)
	s.lastNumber = r.last
}

// BlockByHash returns the stored block or nil. Reserved blocks are only
// reachable by hash once materialized.
func (s *SparseBlockStorage) BlockByHash(hash types.Hash) *storedBlock {
	return s.byHash[hash]
}

// BlockByNumber returns the stored block, materializing through a
// reservation when the number falls inside one.
func (s *SparseBlockStorage) BlockByNumber(number uint64) (*storedBlock, error) {
	if stored, ok := s.byNumber[number]; ok {
		return stored, nil
	}
	for _, r := range s.reservations {
		if number >= r.first && number <= r.last {
			return s.materialize(r, number)
		}
	}
	return nil, nil
}

// BlockByTransactionHash returns the block containing the transaction.
func (s *SparseBlockStorage) BlockByTransactionHash(txHash types.Hash) *storedBlock {
	return s.blockByTx[txHash]
}

// ReceiptByTransactionHash returns the receipt of the transaction.
func (s *SparseBlockStorage) ReceiptByTransactionHash(txHash types.Hash) *types.Receipt {
	return s.receiptByTx[txHash]
}

// TotalDifficultyByHash returns the cumulative difficulty of the block.
func (s *SparseBlockStorage) TotalDifficultyByHash(hash types.Hash) *big.Int {
	stored, ok := s.byHash[hash]
	if !ok {
		return nil
	}
	return new(big.Int).Set(stored.totalDifficulty)
}

// RevertToBlock drops all blocks and reservations above number. It reports
// whether anything at or below the number exists.
func (s *SparseBlockStorage) RevertToBlock(number uint64) bool {
	if s.empty || number > s.lastNumber {
		return false
	}
	for n, stored := range s.byNumber {
		if n <= number {
			continue
		}
		delete(s.byNumber, n)
		delete(s.byHash, stored.block.Hash())
		for _, tx := range stored.block.Transactions() {
			delete(s.blockByTx, tx.Hash())
		}
		for _, receipt := range stored.block.Receipts() {
			delete(s.receiptByTx, receipt.TxHash)
		}
	}
	kept := s.reservations[:0]
	for _, r := range s.reservations {
		if r.first > number {
			continue
		}
		if r.last > number {
			r.last = number
		}
		kept = append(kept, r)
	}
	s.reservations = kept
	s.lastNumber = number
	return true
}

// materialize realizes one reserved block and caches it, so repeated
// lookups return the identical block.
func (s *SparseBlockStorage) materialize(r *reservation, number uint64) (*storedBlock, error) {
	header := &types.Header{
		OmmersHash: types.EmptyOmmersHash,
		StateRoot:  r.previousStateRoot,
		Difficulty: new(big.Int),
		Number:     new(big.Int).SetUint64(number),
		GasLimit:   r.previousGasLimit,
		Timestamp:  r.previousTimestamp + r.interval*(number-r.previousNumber),
	}
	if parent, ok := s.byNumber[number-1]; ok {
		header.ParentHash = parent.block.Hash()
	}
	if r.hardfork.HasBaseFee() {
		if r.previousBaseFee != nil {
			header.BaseFee = new(big.Int).Set(r.previousBaseFee)
		} else {
			header.BaseFee = big.NewInt(InitialBaseFee)
		}
	}
	if r.hardfork.HasBlobGas() {
		zero := uint64(0)
		header.BlobGasUsed = &zero
		excess := uint64(0)
		header.ExcessBlobGas = &excess
		beacon := types.Hash{}
		header.ParentBeaconRoot = &beacon
	}
	var withdrawals types.Withdrawals
	if r.hardfork.HasWithdrawals() {
		withdrawals = types.Withdrawals{}
	}
	block, err := types.NewBlock(header, nil, types.Receipts{}, withdrawals)
	if err != nil {
		return nil, err
	}

	stored := &storedBlock{
		block:           block,
		totalDifficulty: new(big.Int).Set(r.previousTotalDiff),
	}
	s.byHash[block.Hash()] = stored
	s.byNumber[number] = stored
	return stored, nil
}
