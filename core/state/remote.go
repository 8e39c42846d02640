package state

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/NomicFoundation/edr-sub004/core/types"
)

// RemoteSource supplies account data from a remote node pinned to the fork
// block. Implementations block until the data is available.
type RemoteSource interface {
	// AccountInfo returns the full account including code, or nil when
	// the account does not exist remotely.
	AccountInfo(addr types.Address) (*AccountInfo, error)

	// StorageSlot returns the value of a storage slot, zero when unset.
	StorageSlot(addr types.Address, slot types.Hash) (*uint256.Int, error)
}

type slotKey struct {
	addr types.Address
	slot types.Hash
}

// CachedRemoteState memoizes remote reads behind a mutex. Entries are only
// written after a fetch fully succeeds, so a failed or cancelled call
// leaves the cache unchanged.
type CachedRemoteState struct {
	source RemoteSource

	mu       sync.Mutex
	accounts map[types.Address]*AccountInfo // nil value = known absent
	codes    map[types.Hash][]byte
	storage  map[slotKey]*uint256.Int
}

// NewCachedRemoteState wraps a remote source with caching.
func NewCachedRemoteState(source RemoteSource) *CachedRemoteState {
	return &CachedRemoteState{
		source:   source,
		accounts: make(map[types.Address]*AccountInfo),
		codes:    make(map[types.Hash][]byte),
		storage:  make(map[slotKey]*uint256.Int),
	}
}

// Basic returns the remote account without code, or nil when absent.
func (c *CachedRemoteState) Basic(addr types.Address) (*AccountInfo, error) {
	info, err := c.account(addr)
	if err != nil || info == nil {
		return nil, err
	}
	cpy := info.Copy()
	cpy.Code = nil
	return cpy, nil
}

// CodeByHash returns remotely fetched code. Code becomes known when the
// owning account is first fetched.
func (c *CachedRemoteState) CodeByHash(hash types.Hash) ([]byte, bool) {
	if hash == types.EmptyCodeHash || hash.IsZero() {
		return nil, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.codes[hash]
	return code, ok
}

// Storage returns the remote value of a storage slot.
func (c *CachedRemoteState) Storage(addr types.Address, slot types.Hash) (*uint256.Int, error) {
	key := slotKey{addr: addr, slot: slot}
	c.mu.Lock()
	if value, ok := c.storage[key]; ok {
		c.mu.Unlock()
		return value.Clone(), nil
	}
	c.mu.Unlock()

	value, err := c.source.StorageSlot(addr, slot)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = uint256.NewInt(0)
	}
	c.mu.Lock()
	c.storage[key] = value.Clone()
	c.mu.Unlock()
	return value, nil
}

func (c *CachedRemoteState) account(addr types.Address) (*AccountInfo, error) {
	c.mu.Lock()
	if info, ok := c.accounts[addr]; ok {
		c.mu.Unlock()
		return info, nil
	}
	c.mu.Unlock()

	info, err := c.source.AccountInfo(addr)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.accounts[addr] = info
	if info != nil && len(info.Code) > 0 {
		c.codes[info.CodeHash] = info.Code
	}
	c.mu.Unlock()
	return info, nil
}
