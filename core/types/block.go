package types

import (
	"math/big"
	"sync/atomic"
)

// Block is a complete block. Blocks built locally keep their receipts
// attached so callers can serve them without re-execution; blocks decoded
// from the wire or fetched remotely carry none.
type Block struct {
	header       *Header
	transactions Transactions
	ommers       []*Header
	withdrawals  Withdrawals

	receipts Receipts

	hash atomic.Pointer[Hash]
	size atomic.Uint64
}

// NewBlock assembles a block and derives the commitment fields of the
// header from its contents: transaction root, receipt root, logs bloom,
// gas used and, when withdrawals are attached, the withdrawals root.
func NewBlock(header *Header, txs Transactions, receipts Receipts, withdrawals Withdrawals) (*Block, error) {
	b := &Block{
		header:       CopyHeader(header),
		transactions: txs,
		receipts:     receipts,
	}

	var err error
	if b.header.TxRoot, err = DeriveRoot(txs); err != nil {
		return nil, err
	}
	if b.header.ReceiptRoot, err = DeriveRoot(receipts); err != nil {
		return nil, err
	}
	b.header.Bloom = CreateBloom(receipts)
	if len(receipts) > 0 {
		b.header.GasUsed = receipts[len(receipts)-1].CumulativeGasUsed
	} else {
		b.header.GasUsed = 0
	}
	if withdrawals != nil {
		b.withdrawals = withdrawals
		root, err := DeriveRoot(withdrawals)
		if err != nil {
			return nil, err
		}
		b.header.WithdrawalsRoot = &root
	}
	return b, nil
}

// NewBlockWithHeader builds a block trusting the header's commitment
// fields as given.
func NewBlockWithHeader(header *Header) *Block {
	return &Block{header: CopyHeader(header)}
}

// WithBody returns a copy of the block with the given body contents.
func (b *Block) WithBody(txs Transactions, ommers []*Header, withdrawals Withdrawals) *Block {
	block := &Block{
		header:       b.header,
		transactions: txs,
		ommers:       ommers,
		withdrawals:  withdrawals,
		receipts:     b.receipts,
	}
	return block
}

// WithReceipts returns a copy of the block with receipts attached.
func (b *Block) WithReceipts(receipts Receipts) *Block {
	return &Block{
		header:       b.header,
		transactions: b.transactions,
		ommers:       b.ommers,
		withdrawals:  b.withdrawals,
		receipts:     receipts,
	}
}

// Header returns a copy of the block header.
func (b *Block) Header() *Header { return CopyHeader(b.header) }

// Transactions returns the block's transactions.
func (b *Block) Transactions() Transactions { return b.transactions }

// Ommers returns the block's ommer headers. Empty after the merge.
func (b *Block) Ommers() []*Header { return b.ommers }

// Withdrawals returns the block's withdrawals, nil before their hardfork.
func (b *Block) Withdrawals() Withdrawals { return b.withdrawals }

// Receipts returns the attached receipts, nil unless the block was built
// locally or receipts were attached explicitly.
func (b *Block) Receipts() Receipts { return b.receipts }

// Hash returns the block hash: the keccak256 hash of the header encoding.
// Cached on first call.
func (b *Block) Hash() Hash {
	if h := b.hash.Load(); h != nil {
		return *h
	}
	h := b.header.Hash()
	b.hash.Store(&h)
	return h
}

// Number returns the block number.
func (b *Block) Number() *big.Int { return copyBig(b.header.Number) }

// NumberU64 returns the block number as a uint64.
func (b *Block) NumberU64() uint64 {
	if b.header.Number == nil {
		return 0
	}
	return b.header.Number.Uint64()
}

// ParentHash returns the parent block hash.
func (b *Block) ParentHash() Hash { return b.header.ParentHash }

// StateRoot returns the post-state root committed by the header.
func (b *Block) StateRoot() Hash { return b.header.StateRoot }

// Timestamp returns the block timestamp in seconds.
func (b *Block) Timestamp() uint64 { return b.header.Timestamp }

// GasLimit returns the block gas limit.
func (b *Block) GasLimit() uint64 { return b.header.GasLimit }

// GasUsed returns the total gas used by the block.
func (b *Block) GasUsed() uint64 { return b.header.GasUsed }

// BaseFee returns the block base fee, nil before its hardfork.
func (b *Block) BaseFee() *big.Int { return copyBig(b.header.BaseFee) }

// Difficulty returns the block difficulty, zero after the merge.
func (b *Block) Difficulty() *big.Int { return copyBig(b.header.Difficulty) }

// ExcessBlobGas returns the excess blob gas of the block, nil before its
// hardfork.
func (b *Block) ExcessBlobGas() *uint64 { return copyUint64Ptr(b.header.ExcessBlobGas) }

// Size returns the byte length of the block's RLP encoding, cached after
// the first call.
func (b *Block) Size() uint64 {
	if size := b.size.Load(); size > 0 {
		return size
	}
	enc, err := b.MarshalRLP()
	if err != nil {
		return 0
	}
	b.size.Store(uint64(len(enc)))
	return uint64(len(enc))
}

// Transaction returns the transaction with the given hash, or nil.
func (b *Block) Transaction(hash Hash) *Transaction {
	for _, tx := range b.transactions {
		if tx.Hash() == hash {
			return tx
		}
	}
	return nil
}
