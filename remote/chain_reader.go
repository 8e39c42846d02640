package remote

import (
	"context"
	"errors"
	"math/big"

	"github.com/NomicFoundation/edr-sub004/core"
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// TerminalTotalDifficulty is the mainnet merge TTD. Some upstream nodes
// stopped reporting totalDifficulty after the merge; ChainReader can fall
// back to this constant for such blocks.
var TerminalTotalDifficulty, _ = new(big.Int).SetString("58750000000000000000000", 10)

// ChainReader adapts a Client to the forked blockchain's remote view,
// converting wire blocks and receipts into their internal forms.
type ChainReader struct {
	client *Client

	// FallbackToTTD substitutes TerminalTotalDifficulty when the
	// upstream omits totalDifficulty. Compatibility gate for post-merge
	// nodes that dropped the field.
	FallbackToTTD bool
}

var _ core.RemoteChainReader = (*ChainReader)(nil)

// NewChainReader wraps client for forked chain reads.
func NewChainReader(client *Client) *ChainReader {
	return &ChainReader{client: client}
}

// BlockByNumber implements core.RemoteChainReader.
func (r *ChainReader) BlockByNumber(ctx context.Context, number uint64) (*types.Block, *big.Int, error) {
	wire, err := r.client.BlockByNumber(ctx, number, true)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return r.convert(wire)
}

// BlockByHash implements core.RemoteChainReader.
func (r *ChainReader) BlockByHash(ctx context.Context, hash types.Hash) (*types.Block, *big.Int, error) {
	wire, err := r.client.BlockByHash(ctx, hash, true)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return r.convert(wire)
}

// BlockHashByTransactionHash implements core.RemoteChainReader.
func (r *ChainReader) BlockHashByTransactionHash(ctx context.Context, txHash types.Hash) (types.Hash, error) {
	wire, err := r.client.TransactionByHash(ctx, txHash)
	if errors.Is(err, ErrNotFound) {
		return types.Hash{}, nil
	}
	if err != nil {
		return types.Hash{}, err
	}
	if wire.BlockHash == nil {
		return types.Hash{}, nil
	}
	return *wire.BlockHash, nil
}

// ReceiptByTransactionHash implements core.RemoteChainReader.
func (r *ChainReader) ReceiptByTransactionHash(ctx context.Context, txHash types.Hash) (*types.Receipt, error) {
	wire, err := r.client.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return wire.ToReceipt(), nil
}

// IsCacheableBlockNumber implements core.RemoteChainReader.
func (r *ChainReader) IsCacheableBlockNumber(ctx context.Context, number uint64) (bool, error) {
	return r.client.IsCacheableBlockNumber(ctx, number)
}

func (r *ChainReader) convert(wire *Block) (*types.Block, *big.Int, error) {
	block, err := wire.ToBlock()
	if err != nil {
		return nil, nil, err
	}
	td := optionalBig(wire.TotalDifficulty)
	if td == nil && r.FallbackToTTD {
		td = new(big.Int).Set(TerminalTotalDifficulty)
	}
	return block, td, nil
}
