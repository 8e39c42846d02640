package state

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/NomicFoundation/edr-sub004/core/types"
)

// AccountInfo is the account view used by the state engine: the basic
// fields plus optionally the code itself.
type AccountInfo struct {
	Balance  *big.Int
	Nonce    uint64
	CodeHash types.Hash
	Code     []byte
}

// NewAccountInfo returns an empty account info.
func NewAccountInfo() *AccountInfo {
	return &AccountInfo{Balance: new(big.Int), CodeHash: types.EmptyCodeHash}
}

// IsEmpty reports whether the account is empty per EIP-161: zero balance,
// zero nonce and no code.
func (a *AccountInfo) IsEmpty() bool {
	return (a.Balance == nil || a.Balance.Sign() == 0) &&
		a.Nonce == 0 &&
		(a.CodeHash == types.EmptyCodeHash || a.CodeHash.IsZero())
}

// Copy returns a deep copy of the account info.
func (a *AccountInfo) Copy() *AccountInfo {
	cpy := &AccountInfo{Nonce: a.Nonce, CodeHash: a.CodeHash}
	if a.Balance != nil {
		cpy.Balance = new(big.Int).Set(a.Balance)
	}
	if a.Code != nil {
		cpy.Code = make([]byte, len(a.Code))
		copy(cpy.Code, a.Code)
	}
	return cpy
}

// AccountChange is the per-account payload of a StateDiff.
type AccountChange struct {
	// Account is the post-change account, nil when the account was
	// destroyed.
	Account *AccountInfo

	// Created marks accounts that first appeared in this change set.
	// Empty accounts that were not created are pruned on commit.
	Created bool

	// SelfDestructed marks accounts destroyed by the change set.
	SelfDestructed bool

	// Storage holds the changed slots; a zero value clears the slot.
	Storage map[types.Hash]*uint256.Int
}

// StateDiff is an atomic batch of account changes produced by executing
// transactions or constructing a genesis allocation.
type StateDiff struct {
	Changes map[types.Address]*AccountChange
}

// NewStateDiff creates an empty diff.
func NewStateDiff() *StateDiff {
	return &StateDiff{Changes: make(map[types.Address]*AccountChange)}
}

// change returns the change entry for addr, creating it if needed.
func (d *StateDiff) change(addr types.Address) *AccountChange {
	entry, ok := d.Changes[addr]
	if !ok {
		entry = &AccountChange{Storage: make(map[types.Hash]*uint256.Int)}
		d.Changes[addr] = entry
	}
	return entry
}

// SetAccount records the post-change account for addr.
func (d *StateDiff) SetAccount(addr types.Address, info *AccountInfo, created bool) {
	entry := d.change(addr)
	entry.Account = info.Copy()
	entry.SelfDestructed = false
	if created {
		entry.Created = true
	}
}

// DestroyAccount records the destruction of addr.
func (d *StateDiff) DestroyAccount(addr types.Address) {
	entry := d.change(addr)
	entry.Account = nil
	entry.SelfDestructed = true
	entry.Storage = make(map[types.Hash]*uint256.Int)
}

// SetStorage records a storage slot change for addr.
func (d *StateDiff) SetStorage(addr types.Address, slot types.Hash, value *uint256.Int) {
	entry := d.change(addr)
	if value == nil {
		value = uint256.NewInt(0)
	}
	entry.Storage[slot] = value.Clone()
}

// Merge folds other into d, with other taking precedence.
func (d *StateDiff) Merge(other *StateDiff) {
	for addr, change := range other.Changes {
		if change.SelfDestructed {
			d.DestroyAccount(addr)
			continue
		}
		entry := d.change(addr)
		if change.Account != nil {
			entry.Account = change.Account.Copy()
			entry.SelfDestructed = false
		}
		if change.Created {
			entry.Created = true
		}
		for slot, value := range change.Storage {
			entry.Storage[slot] = value.Clone()
		}
	}
}

// Copy returns a deep copy of the diff.
func (d *StateDiff) Copy() *StateDiff {
	cpy := NewStateDiff()
	cpy.Merge(d)
	return cpy
}
