package core

import (
	"math/big"
	"time"

	"github.com/NomicFoundation/edr-sub004/core/state"
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// HeaderOverrides pins builder-time header fields that would otherwise be
// derived from the parent block or deferred to finalization.
type HeaderOverrides struct {
	Beneficiary *types.Address
	GasLimit    *uint64
	Timestamp   uint64 // zero defers to finalize, which uses the wall clock
	BaseFee     *big.Int
	MixHash     *types.Hash
	ExtraData   []byte
	StateRoot   *types.Hash
}

// Reward credits an address during finalization.
type Reward struct {
	Address types.Address
	Amount  *big.Int
}

// BuildResult is the outcome of sealing a block.
type BuildResult struct {
	Block   *types.Block
	State   state.State
	Diff    *state.StateDiff
	Results []*ExecutionResult
}

// BlockBuilder accumulates transactions into a pending block on top of a
// parent chain and a base state.
type BlockBuilder struct {
	blockchain     *Blockchain
	st             state.State
	config         *ChainConfig
	executor       Executor
	receiptBuilder ReceiptBuilder
	inspector      Inspector

	parent *types.Block
	header *types.Header

	transactions types.Transactions
	receipts     types.Receipts
	results      []*ExecutionResult
	diff         *state.StateDiff
	included     map[types.Hash]struct{}

	blobGasUsed   uint64
	nextLogIndex  uint
	stateRootPins *types.Hash
}

// MinimumBuilderHardfork is the earliest hardfork the builder supports.
const MinimumBuilderHardfork = Byzantium

// NewBlockBuilder prepares a builder on top of the blockchain's tip.
func NewBlockBuilder(bc *Blockchain, st state.State, executor Executor, receiptBuilder ReceiptBuilder, inspector Inspector, overrides HeaderOverrides) (*BlockBuilder, error) {
	config := bc.Config()
	if !config.Hardfork.AtLeast(MinimumBuilderHardfork) {
		return nil, &UnsupportedHardforkError{Hardfork: config.Hardfork}
	}
	parent, err := bc.LastBlock()
	if err != nil {
		return nil, err
	}
	parentHeader := parent.Header()

	header := &types.Header{
		ParentHash: parent.Hash(),
		OmmersHash: types.EmptyOmmersHash,
		Difficulty: new(big.Int),
		Number:     new(big.Int).SetUint64(parent.NumberU64() + 1),
		GasLimit:   parentHeader.GasLimit,
		Timestamp:  overrides.Timestamp,
		ExtraData:  overrides.ExtraData,
	}
	if overrides.Beneficiary != nil {
		header.Beneficiary = *overrides.Beneficiary
	}
	if overrides.GasLimit != nil {
		header.GasLimit = *overrides.GasLimit
	}
	if overrides.MixHash != nil {
		header.MixHash = *overrides.MixHash
	}
	if !config.Hardfork.HasPrevrandao() {
		header.Difficulty = big.NewInt(1)
	}
	if config.Hardfork.HasBaseFee() {
		if overrides.BaseFee != nil {
			header.BaseFee = new(big.Int).Set(overrides.BaseFee)
		} else {
			header.BaseFee = CalcBaseFee(parentHeader)
		}
	}
	if config.Hardfork.HasBlobGas() {
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

	return &BlockBuilder{
		blockchain:     bc,
		st:             st,
		config:         config,
		executor:       executor,
		receiptBuilder: receiptBuilder,
		inspector:      inspector,
		parent:         parent,
		header:         header,
		diff:           state.NewStateDiff(),
		included:       make(map[types.Hash]struct{}),
		stateRootPins:  overrides.StateRoot,
	}, nil
}

// GasRemaining returns the gas left in the block under construction.
func (b *BlockBuilder) GasRemaining() uint64 {
	return b.header.GasLimit - b.header.GasUsed
}

// AddTransaction executes tx against the pending block. On a validation
// or execution error the builder is left unchanged so the caller may
// continue with other transactions.
func (b *BlockBuilder) AddTransaction(tx *types.Transaction) (*ExecutionResult, error) {
	if _, dup := b.included[tx.Hash()]; dup {
		return nil, ErrDuplicateTransaction
	}
	if tx.Gas() > b.GasRemaining() {
		return nil, &ExceedsBlockGasLimitError{TxGasLimit: tx.Gas(), GasRemaining: b.GasRemaining()}
	}
	txBlobGas := tx.BlobGas()
	if txBlobGas > 0 && b.blobGasUsed+txBlobGas > MaxBlobGasPerBlock {
		return nil, &ExceedsBlockBlobGasLimitError{TxBlobGas: txBlobGas, RunningBlob: b.blobGasUsed}
	}

	env := b.blockEnv()
	preState := snapshotSender(b.st, tx)

	result, txDiff, err := b.executor.Run(b.blockchain, b.st, b.config, tx, env, b.inspector)
	if err != nil {
		return nil, &TransactionError{Index: len(b.transactions), Hash: tx.Hash(), Err: err}
	}

	b.diff.Merge(txDiff)
	b.header.GasUsed += result.GasUsed
	if txBlobGas > 0 {
		b.blobGasUsed += txBlobGas
		if b.header.BlobGasUsed != nil {
			*b.header.BlobGasUsed = b.blobGasUsed
		}
	}

	receipt, err := b.receiptBuilder.BuildReceipt(tx, result, b.header.GasUsed, preState, b.st, b.config.Hardfork)
	if err != nil {
		return nil, err
	}
	receipt.TxHash = tx.Hash()
	receipt.TransactionIndex = uint(len(b.transactions))
	receipt.GasUsed = result.GasUsed
	receipt.EffectiveGasPrice = tx.EffectiveGasPrice(b.header.BaseFee)
	receipt.BlockNumber = b.header.Number.Uint64()
	receipt.ContractAddress = result.ContractAddress
	if tx.Type() == types.BlobTxType {
		receipt.BlobGasUsed = txBlobGas
		receipt.BlobGasPrice = env.BlobGasPrice
	}
	for _, log := range receipt.Logs {
		log.BlockNumber = b.header.Number.Uint64()
		log.TxHash = tx.Hash()
		log.TxIndex = receipt.TransactionIndex
		log.LogIndex = b.nextLogIndex
		b.nextLogIndex++
	}

	b.included[tx.Hash()] = struct{}{}
	b.transactions = append(b.transactions, tx)
	b.receipts = append(b.receipts, receipt)
	b.results = append(b.results, result)
	return result, nil
}

// Finalize credits the rewards, completes the header and seals the block.
func (b *BlockBuilder) Finalize(rewards []Reward) (*BuildResult, error) {
	for _, reward := range rewards {
		if reward.Amount == nil || reward.Amount.Sign() <= 0 {
			continue
		}
		addr := reward.Address
		if err := b.st.ModifyAccount(addr, func(info *state.AccountInfo) {
			info.Balance.Add(info.Balance, reward.Amount)
		}); err != nil {
			return nil, err
		}
		credited, err := b.st.Basic(addr)
		if err != nil {
			return nil, err
		}
		b.diff.SetAccount(addr, credited, false)
	}

	if b.header.Timestamp == 0 {
		b.header.Timestamp = uint64(time.Now().Unix())
	}
	if b.stateRootPins != nil {
		b.header.StateRoot = *b.stateRootPins
	} else {
		root, err := b.st.StateRoot()
		if err != nil {
			return nil, err
		}
		b.header.StateRoot = root
	}

	var withdrawals types.Withdrawals
	if b.config.Hardfork.HasWithdrawals() {
		withdrawals = types.Withdrawals{}
	}
	block, err := types.NewBlock(b.header, b.transactions, b.receipts, withdrawals)
	if err != nil {
		return nil, err
	}
	blockHash := block.Hash()
	for _, receipt := range b.receipts {
		receipt.BlockHash = blockHash
		for _, log := range receipt.Logs {
			log.BlockHash = blockHash
		}
	}

	return &BuildResult{
		Block:   block,
		State:   b.st,
		Diff:    b.diff,
		Results: b.results,
	}, nil
}

// blockEnv derives the execution environment from the pending header.
func (b *BlockBuilder) blockEnv() *BlockEnv {
	env := &BlockEnv{
		Number:      b.header.Number.Uint64(),
		Beneficiary: b.header.Beneficiary,
		Timestamp:   b.header.Timestamp,
		GasLimit:    b.header.GasLimit,
		BaseFee:     b.header.BaseFee,
		Prevrandao:  b.header.MixHash,
	}
	if b.header.ExcessBlobGas != nil {
		env.BlobGasPrice = CalcBlobGasPrice(*b.header.ExcessBlobGas)
	}
	return env
}

// senderSnapshot freezes the sender's pre-execution account so receipt
// builders can read it after the state has advanced.
type senderSnapshot struct {
	state.Reader
	addr types.Address
	info *state.AccountInfo
}

func snapshotSender(st state.State, tx *types.Transaction) state.Reader {
	snap := &senderSnapshot{Reader: st}
	if sender := tx.Sender(); sender != nil {
		snap.addr = *sender
		if info, err := st.Basic(*sender); err == nil {
			snap.info = info
		}
	}
	return snap
}

func (s *senderSnapshot) Basic(addr types.Address) (*state.AccountInfo, error) {
	if addr == s.addr && s.info != nil {
		return s.info.Copy(), nil
	}
	return s.Reader.Basic(addr)
}
