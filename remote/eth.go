package remote

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/NomicFoundation/edr-sub004/core/state"
	"github.com/NomicFoundation/edr-sub004/core/types"
	"github.com/NomicFoundation/edr-sub004/crypto"
)

// BlockNumber returns the remote head block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_blockNumber", false); err != nil {
		return 0, err
	}
	c.observeHead(uint64(result))
	return uint64(result), nil
}

// ChainID returns the chain id reported by eth_chainId.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.call(ctx, &result, "eth_chainId", true); err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

// NetworkID returns the network id reported by net_version.
func (c *Client) NetworkID(ctx context.Context) (*big.Int, error) {
	var result string
	if err := c.call(ctx, &result, "net_version", true); err != nil {
		return nil, err
	}
	id, ok := new(big.Int).SetString(result, 10)
	if !ok {
		return nil, &ParseError{Method: "net_version", Err: fmt.Errorf("not a decimal number: %q", result)}
	}
	return id, nil
}

// BlockByHash fetches a block by hash. Blocks addressed by hash are
// immutable, so responses are always cached.
func (c *Client) BlockByHash(ctx context.Context, hash types.Hash, fullTx bool) (*Block, error) {
	var result Block
	if err := c.call(ctx, &result, "eth_getBlockByHash", true, hash, fullTx); err != nil {
		return nil, err
	}
	return &result, nil
}

// BlockByNumber fetches a block by number. Responses are cached only
// when the block is reorg-safe.
func (c *Client) BlockByNumber(ctx context.Context, number uint64, fullTx bool) (*Block, error) {
	cacheable, err := c.IsCacheableBlockNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	var result Block
	if err := c.call(ctx, &result, "eth_getBlockByNumber", cacheable, hexutil.Uint64(number), fullTx); err != nil {
		return nil, err
	}
	return &result, nil
}

// Balance returns the balance of addr at the given block number.
func (c *Client) Balance(ctx context.Context, addr types.Address, blockNumber uint64) (*big.Int, error) {
	cacheable, err := c.IsCacheableBlockNumber(ctx, blockNumber)
	if err != nil {
		return nil, err
	}
	var result hexutil.Big
	if err := c.call(ctx, &result, "eth_getBalance", cacheable, addr, hexutil.Uint64(blockNumber)); err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

// TransactionCount returns the nonce of addr at the given block number.
func (c *Client) TransactionCount(ctx context.Context, addr types.Address, blockNumber uint64) (uint64, error) {
	cacheable, err := c.IsCacheableBlockNumber(ctx, blockNumber)
	if err != nil {
		return 0, err
	}
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_getTransactionCount", cacheable, addr, hexutil.Uint64(blockNumber)); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// Code returns the bytecode of addr at the given block number.
func (c *Client) Code(ctx context.Context, addr types.Address, blockNumber uint64) ([]byte, error) {
	cacheable, err := c.IsCacheableBlockNumber(ctx, blockNumber)
	if err != nil {
		return nil, err
	}
	var result hexutil.Bytes
	if err := c.call(ctx, &result, "eth_getCode", cacheable, addr, hexutil.Uint64(blockNumber)); err != nil {
		return nil, err
	}
	return result, nil
}

// StorageAt returns the value of a storage slot at the given block number.
func (c *Client) StorageAt(ctx context.Context, addr types.Address, slot types.Hash, blockNumber uint64) (types.Hash, error) {
	cacheable, err := c.IsCacheableBlockNumber(ctx, blockNumber)
	if err != nil {
		return types.Hash{}, err
	}
	var result types.Hash
	if err := c.call(ctx, &result, "eth_getStorageAt", cacheable, addr, slot, hexutil.Uint64(blockNumber)); err != nil {
		return types.Hash{}, err
	}
	return result, nil
}

// AccountInfo composes balance, nonce and code reads in parallel into a
// complete account. An account with no balance, no nonce and no code is
// reported as absent.
func (c *Client) AccountInfo(ctx context.Context, addr types.Address, blockNumber uint64) (*state.AccountInfo, error) {
	var (
		balance *big.Int
		nonce   uint64
		code    []byte

		balanceErr, nonceErr, codeErr error
	)
	done := make(chan struct{}, 3)
	go func() {
		balance, balanceErr = c.Balance(ctx, addr, blockNumber)
		done <- struct{}{}
	}()
	go func() {
		nonce, nonceErr = c.TransactionCount(ctx, addr, blockNumber)
		done <- struct{}{}
	}()
	go func() {
		code, codeErr = c.Code(ctx, addr, blockNumber)
		done <- struct{}{}
	}()
	for i := 0; i < 3; i++ {
		<-done
	}
	for _, err := range []error{balanceErr, nonceErr, codeErr} {
		if err != nil {
			return nil, err
		}
	}

	if balance.Sign() == 0 && nonce == 0 && len(code) == 0 {
		return nil, nil
	}
	info := &state.AccountInfo{
		Balance:  balance,
		Nonce:    nonce,
		CodeHash: types.EmptyCodeHash,
	}
	if len(code) > 0 {
		info.Code = code
		info.CodeHash = crypto.Keccak256Hash(code)
	}
	return info, nil
}

// TransactionByHash fetches a transaction in its wire form.
func (c *Client) TransactionByHash(ctx context.Context, hash types.Hash) (*Transaction, error) {
	var result Transaction
	if err := c.call(ctx, &result, "eth_getTransactionByHash", true, hash); err != nil {
		return nil, err
	}
	return &result, nil
}

// TransactionReceipt fetches a transaction receipt.
func (c *Client) TransactionReceipt(ctx context.Context, hash types.Hash) (*Receipt, error) {
	var result Receipt
	if err := c.call(ctx, &result, "eth_getTransactionReceipt", true, hash); err != nil {
		return nil, err
	}
	return &result, nil
}

// TransactionReceipts fetches the receipts for all hashes in parallel,
// preserving order. A single missing receipt fails the whole batch.
func (c *Client) TransactionReceipts(ctx context.Context, hashes []types.Hash) ([]*Receipt, error) {
	receipts := make([]*Receipt, len(hashes))
	errs := make([]error, len(hashes))
	done := make(chan int, len(hashes))
	for i, hash := range hashes {
		go func(i int, hash types.Hash) {
			receipts[i], errs[i] = c.TransactionReceipt(ctx, hash)
			done <- i
		}(i, hash)
	}
	for range hashes {
		<-done
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return receipts, nil
}

// logFilter is the eth_getLogs parameter object.
type logFilter struct {
	FromBlock hexutil.Uint64  `json:"fromBlock"`
	ToBlock   hexutil.Uint64  `json:"toBlock"`
	Address   []types.Address `json:"address,omitempty"`
	Topics    [][]types.Hash  `json:"topics,omitempty"`
}

// Logs fetches the logs in [from, to] matching the address and topic
// filters. Empty filters match everything.
func (c *Client) Logs(ctx context.Context, from, to uint64, addresses []types.Address, topics [][]types.Hash) ([]*Log, error) {
	cacheable, err := c.IsCacheableBlockNumber(ctx, to)
	if err != nil {
		return nil, err
	}
	filter := logFilter{
		FromBlock: hexutil.Uint64(from),
		ToBlock:   hexutil.Uint64(to),
		Address:   addresses,
		Topics:    topics,
	}
	var result []*Log
	if err := c.call(ctx, &result, "eth_getLogs", cacheable, filter); err != nil {
		return nil, err
	}
	return result, nil
}

// FeeHistory fetches the base fee and reward history ending at newest.
func (c *Client) FeeHistory(ctx context.Context, count uint64, newest uint64, percentiles []float64) (*FeeHistory, error) {
	var result FeeHistory
	if err := c.call(ctx, &result, "eth_feeHistory", false, hexutil.Uint64(count), hexutil.Uint64(newest), percentiles); err != nil {
		return nil, err
	}
	return &result, nil
}

// ForkMetadata describes the upstream chain a fork is based on.
type ForkMetadata struct {
	ChainID           *big.Int
	NetworkID         *big.Int
	LatestBlockNumber uint64
}

// GetForkMetadata fetches the chain id, network id and head number in
// parallel.
func (c *Client) GetForkMetadata(ctx context.Context) (*ForkMetadata, error) {
	var (
		meta ForkMetadata

		chainErr, netErr, headErr error
	)
	done := make(chan struct{}, 3)
	go func() {
		meta.ChainID, chainErr = c.ChainID(ctx)
		done <- struct{}{}
	}()
	go func() {
		meta.NetworkID, netErr = c.NetworkID(ctx)
		done <- struct{}{}
	}()
	go func() {
		meta.LatestBlockNumber, headErr = c.BlockNumber(ctx)
		done <- struct{}{}
	}()
	for i := 0; i < 3; i++ {
		<-done
	}
	for _, err := range []error{chainErr, netErr, headErr} {
		if err != nil {
			return nil, err
		}
	}
	return &meta, nil
}

// StateSource adapts the client into a state.RemoteSource pinned at one
// block number.
type StateSource struct {
	ctx         context.Context
	client      *Client
	blockNumber uint64
}

var _ state.RemoteSource = (*StateSource)(nil)

// NewStateSource pins the client at blockNumber. ctx bounds every read
// issued through the source.
func NewStateSource(ctx context.Context, client *Client, blockNumber uint64) *StateSource {
	return &StateSource{ctx: ctx, client: client, blockNumber: blockNumber}
}

// AccountInfo implements state.RemoteSource.
func (s *StateSource) AccountInfo(addr types.Address) (*state.AccountInfo, error) {
	return s.client.AccountInfo(s.ctx, addr, s.blockNumber)
}

// StorageSlot implements state.RemoteSource.
func (s *StateSource) StorageSlot(addr types.Address, slot types.Hash) (*uint256.Int, error) {
	value, err := s.client.StorageAt(s.ctx, addr, slot, s.blockNumber)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(value[:]), nil
}
