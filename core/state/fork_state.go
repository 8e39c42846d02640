package state

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/NomicFoundation/edr-sub004/core/types"
	"github.com/NomicFoundation/edr-sub004/crypto"
)

// RootGenerator mints virtual state roots for fork mode. Implementations
// must be deterministic for a given construction so tests can replay them.
type RootGenerator interface {
	Next() types.Hash
}

// SeededRootGenerator derives a root sequence from a seed hash.
type SeededRootGenerator struct {
	seed    types.Hash
	counter uint64
}

// NewSeededRootGenerator creates a generator producing
// keccak256(seed || counter) for an incrementing counter.
func NewSeededRootGenerator(seed types.Hash) *SeededRootGenerator {
	return &SeededRootGenerator{seed: seed}
}

func (g *SeededRootGenerator) Next() types.Hash {
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], g.counter)
	g.counter++
	return crypto.Keccak256Hash(g.seed.Bytes(), counter[:])
}

// ForkState layers a local trie state over a cached remote source. Writes
// always land locally; reads fall through to the remote node unless the
// local layer shadows them.
type ForkState struct {
	local  *TrieState
	remote *CachedRemoteState

	// removedRemoteAccounts shadows accounts deleted locally that still
	// exist remotely, so reads do not resurrect them.
	removedRemoteAccounts map[types.Address]struct{}

	// removedStorageSlots shadows slots cleared to zero locally, so the
	// non-zero remote value does not bleed through.
	removedStorageSlots map[slotKey]struct{}

	// The published root pair: the remote root is opaque, so a fresh
	// virtual root is minted whenever the local root changes.
	rootMu                 sync.RWMutex
	publishedRoot          types.Hash
	localRootAtPublication types.Hash
	roots                  RootGenerator
}

var _ State = (*ForkState)(nil)

// NewForkState composes a fork state over a remote source. forkRoot is the
// state root reported by the fork block and becomes the initial published
// root; roots mints replacements as local changes accumulate.
func NewForkState(remote *CachedRemoteState, forkRoot types.Hash, roots RootGenerator) *ForkState {
	local := NewTrieState()
	localRoot, _ := local.StateRoot()
	return &ForkState{
		local:                  local,
		remote:                 remote,
		removedRemoteAccounts:  make(map[types.Address]struct{}),
		removedStorageSlots:    make(map[slotKey]struct{}),
		publishedRoot:          forkRoot,
		localRootAtPublication: localRoot,
		roots:                  roots,
	}
}

// Basic returns the local account when present, otherwise the remote one
// unless it was removed locally.
func (f *ForkState) Basic(addr types.Address) (*AccountInfo, error) {
	info, err := f.local.Basic(addr)
	if err != nil || info != nil {
		return info, err
	}
	if _, removed := f.removedRemoteAccounts[addr]; removed {
		return nil, nil
	}
	return f.remote.Basic(addr)
}

// CodeByHash consults the local store first, then the remote cache.
func (f *ForkState) CodeByHash(hash types.Hash) ([]byte, error) {
	code, err := f.local.CodeByHash(hash)
	if err == nil {
		return code, nil
	}
	if remoteCode, ok := f.remote.CodeByHash(hash); ok {
		return remoteCode, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidCodeHash, hash.Hex())
}

// Storage returns the local value when it is non-zero or the slot was
// cleared locally; otherwise the remote value.
func (f *ForkState) Storage(addr types.Address, slot types.Hash) (*uint256.Int, error) {
	value, err := f.local.Storage(addr, slot)
	if err != nil {
		return nil, err
	}
	if !value.IsZero() {
		return value, nil
	}
	if _, removed := f.removedStorageSlots[slotKey{addr: addr, slot: slot}]; removed {
		return uint256.NewInt(0), nil
	}
	if _, removedAccount := f.removedRemoteAccounts[addr]; removedAccount {
		return uint256.NewInt(0), nil
	}
	return f.remote.Storage(addr, slot)
}

// InsertAccount writes the account into the local layer.
func (f *ForkState) InsertAccount(addr types.Address, info *AccountInfo) error {
	delete(f.removedRemoteAccounts, addr)
	return f.local.InsertAccount(addr, info)
}

// ModifyAccount modifies the account in the local layer, seeding it from
// the remote account when it is not yet local.
func (f *ForkState) ModifyAccount(addr types.Address, modify func(info *AccountInfo)) error {
	local, err := f.local.Basic(addr)
	if err != nil {
		return err
	}
	if local == nil {
		if _, removed := f.removedRemoteAccounts[addr]; !removed {
			remote, err := f.remote.Basic(addr)
			if err != nil {
				return err
			}
			if remote != nil {
				if code, ok := f.remote.CodeByHash(remote.CodeHash); ok {
					remote.Code = code
				}
				if err := f.local.InsertAccount(addr, remote); err != nil {
					return err
				}
			}
		}
	}
	delete(f.removedRemoteAccounts, addr)
	return f.local.ModifyAccount(addr, modify)
}

// RemoveAccount removes the account from the local layer and shadows any
// remote counterpart.
func (f *ForkState) RemoveAccount(addr types.Address) (*AccountInfo, error) {
	removed, err := f.local.RemoveAccount(addr)
	if err != nil {
		return nil, err
	}
	if removed != nil {
		f.removedRemoteAccounts[addr] = struct{}{}
		return removed, nil
	}
	remote, err := f.remote.Basic(addr)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, nil
	}
	f.removedRemoteAccounts[addr] = struct{}{}
	return remote, nil
}

// SetAccountStorageSlot writes into the local layer; clearing a slot to
// zero records the shadow so remote values do not reappear.
func (f *ForkState) SetAccountStorageSlot(addr types.Address, slot types.Hash, value *uint256.Int) (*uint256.Int, error) {
	prev, err := f.Storage(addr, slot)
	if err != nil {
		return nil, err
	}
	if _, err := f.local.SetAccountStorageSlot(addr, slot, value); err != nil {
		return nil, err
	}
	key := slotKey{addr: addr, slot: slot}
	if value == nil || value.IsZero() {
		f.removedStorageSlots[key] = struct{}{}
	} else {
		delete(f.removedStorageSlots, key)
	}
	return prev, nil
}

// Commit applies the diff to the local layer, maintaining the shadow sets
// for destroyed accounts and cleared slots.
func (f *ForkState) Commit(diff *StateDiff) error {
	for addr, change := range diff.Changes {
		if change.SelfDestructed || change.Account == nil {
			if _, err := f.RemoveAccount(addr); err != nil {
				return err
			}
			continue
		}
		if err := f.InsertAccount(addr, change.Account); err != nil {
			return err
		}
		for slot, value := range change.Storage {
			if _, err := f.SetAccountStorageSlot(addr, slot, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// StateRoot returns the published virtual root, minting a fresh one when
// the local layer changed since the last publication. Two concurrent calls
// observing the same contents return the same root.
func (f *ForkState) StateRoot() (types.Hash, error) {
	localRoot, err := f.local.StateRoot()
	if err != nil {
		return types.Hash{}, err
	}

	f.rootMu.RLock()
	if f.localRootAtPublication == localRoot {
		published := f.publishedRoot
		f.rootMu.RUnlock()
		return published, nil
	}
	f.rootMu.RUnlock()

	f.rootMu.Lock()
	defer f.rootMu.Unlock()
	// Another caller may have published while the lock was released.
	if f.localRootAtPublication == localRoot {
		return f.publishedRoot, nil
	}
	f.publishedRoot = f.roots.Next()
	f.localRootAtPublication = localRoot
	return f.publishedRoot, nil
}

// Serialize dumps the local overlay. Remote state is not enumerable.
func (f *ForkState) Serialize() string {
	return f.local.Serialize()
}

// Copy returns an independent snapshot sharing the remote cache.
func (f *ForkState) Copy() *ForkState {
	cpy := &ForkState{
		local:                  f.local.Copy(),
		remote:                 f.remote,
		removedRemoteAccounts:  make(map[types.Address]struct{}, len(f.removedRemoteAccounts)),
		removedStorageSlots:    make(map[slotKey]struct{}, len(f.removedStorageSlots)),
		roots:                  f.roots,
		publishedRoot:          f.publishedRoot,
		localRootAtPublication: f.localRootAtPublication,
	}
	for addr := range f.removedRemoteAccounts {
		cpy.removedRemoteAccounts[addr] = struct{}{}
	}
	for key := range f.removedStorageSlots {
		cpy.removedStorageSlots[key] = struct{}{}
	}
	return cpy
}
