package state

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"github.com/NomicFoundation/edr-sub004/core/types"
	"github.com/NomicFoundation/edr-sub004/crypto"
	"github.com/NomicFoundation/edr-sub004/rlp"
	"github.com/NomicFoundation/edr-sub004/trie"
)

// ErrInvalidCodeHash is returned when a caller asks for code under a hash
// the state has never stored. This is the caller's invariant violation.
var ErrInvalidCodeHash = errors.New("no code stored for hash")

// Reader is the read-only surface of a state.
type Reader interface {
	// Basic returns the account info without code, or nil if absent.
	Basic(addr types.Address) (*AccountInfo, error)

	// CodeByHash returns the bytecode for a code hash.
	CodeByHash(hash types.Hash) ([]byte, error)

	// Storage returns the value of a storage slot, zero when the account
	// or slot is absent.
	Storage(addr types.Address, slot types.Hash) (*uint256.Int, error)

	// StateRoot returns the commitment root over the current contents.
	StateRoot() (types.Hash, error)
}

// State is a fully mutable state engine.
type State interface {
	Reader

	InsertAccount(addr types.Address, info *AccountInfo) error
	ModifyAccount(addr types.Address, modify func(info *AccountInfo)) error
	RemoveAccount(addr types.Address) (*AccountInfo, error)
	SetAccountStorageSlot(addr types.Address, slot types.Hash, value *uint256.Int) (*uint256.Int, error)
	Commit(diff *StateDiff) error
	Serialize() string
}

// accountRecord pairs the account fields with its storage sub-trie.
type accountRecord struct {
	info    AccountInfo // Code is never populated here
	storage map[types.Hash]*uint256.Int
}

func (r *accountRecord) copy() *accountRecord {
	cpy := &accountRecord{
		info:    AccountInfo{Nonce: r.info.Nonce, CodeHash: r.info.CodeHash},
		storage: make(map[types.Hash]*uint256.Int, len(r.storage)),
	}
	if r.info.Balance != nil {
		cpy.info.Balance = new(big.Int).Set(r.info.Balance)
	}
	for slot, value := range r.storage {
		cpy.storage[slot] = value.Clone()
	}
	return cpy
}

// accountLeaf is the RLP account encoding stored in the trie.
type accountLeaf struct {
	Nonce    uint64
	Balance  *big.Int
	Root     types.Hash
	CodeHash []byte
}

// TrieState is the local state engine: accounts and storage backed by
// path-copying Merkle Patricia tries plus a reference-counted code store.
type TrieState struct {
	accounts map[types.Address]*accountRecord
	trie     *trie.Trie
	codes    *CodeStore
}

var _ State = (*TrieState)(nil)

// NewTrieState creates an empty state.
func NewTrieState() *TrieState {
	return &TrieState{
		accounts: make(map[types.Address]*accountRecord),
		trie:     trie.New(),
		codes:    NewCodeStore(),
	}
}

// Copy returns an independent snapshot. The account trie shares structure
// with the original; bookkeeping maps are copied.
func (s *TrieState) Copy() *TrieState {
	cpy := &TrieState{
		accounts: make(map[types.Address]*accountRecord, len(s.accounts)),
		trie:     s.trie.Copy(),
		codes:    s.codes.Copy(),
	}
	for addr, record := range s.accounts {
		cpy.accounts[addr] = record.copy()
	}
	return cpy
}

// Basic returns the account info without code, or nil if absent.
func (s *TrieState) Basic(addr types.Address) (*AccountInfo, error) {
	record, ok := s.accounts[addr]
	if !ok {
		return nil, nil
	}
	info := record.info
	if info.Balance == nil {
		info.Balance = new(big.Int)
	} else {
		info.Balance = new(big.Int).Set(info.Balance)
	}
	return &info, nil
}

// CodeByHash returns the bytecode stored under hash.
func (s *TrieState) CodeByHash(hash types.Hash) ([]byte, error) {
	code, ok := s.codes.Get(hash)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCodeHash, hash.Hex())
	}
	return code, nil
}

// Storage returns the value of a slot, zero when absent.
func (s *TrieState) Storage(addr types.Address, slot types.Hash) (*uint256.Int, error) {
	record, ok := s.accounts[addr]
	if !ok {
		return uint256.NewInt(0), nil
	}
	value, ok := record.storage[slot]
	if !ok {
		return uint256.NewInt(0), nil
	}
	return value.Clone(), nil
}

// InsertAccount replaces the account wholesale. Code carried on info is
// inserted into the code store and the stored hash updated accordingly.
func (s *TrieState) InsertAccount(addr types.Address, info *AccountInfo) error {
	if old, ok := s.accounts[addr]; ok {
		s.codes.Remove(old.info.CodeHash)
	}
	record := &accountRecord{storage: make(map[types.Hash]*uint256.Int)}
	if old, ok := s.accounts[addr]; ok {
		record.storage = old.storage
	}
	record.info.Nonce = info.Nonce
	record.info.Balance = new(big.Int)
	if info.Balance != nil {
		record.info.Balance.Set(info.Balance)
	}
	if info.Code != nil {
		record.info.CodeHash = s.codes.Insert(info.Code)
	} else {
		record.info.CodeHash = info.CodeHash
		if record.info.CodeHash.IsZero() {
			record.info.CodeHash = types.EmptyCodeHash
		}
	}
	s.accounts[addr] = record
	return s.writeAccountLeaf(addr, record)
}

// ModifyAccount reads or defaults the account, loads its code, applies
// modify and writes the result back. A changed code swaps refcounts.
func (s *TrieState) ModifyAccount(addr types.Address, modify func(info *AccountInfo)) error {
	record, ok := s.accounts[addr]
	if !ok {
		record = &accountRecord{
			info:    AccountInfo{Balance: new(big.Int), CodeHash: types.EmptyCodeHash},
			storage: make(map[types.Hash]*uint256.Int),
		}
	}
	info := record.info
	info.Balance = new(big.Int)
	if record.info.Balance != nil {
		info.Balance.Set(record.info.Balance)
	}
	if code, found := s.codes.Get(info.CodeHash); found {
		info.Code = code
	}
	oldHash := info.CodeHash
	oldCode := info.Code

	modify(&info)

	if !bytes.Equal(oldCode, info.Code) {
		s.codes.Remove(oldHash)
		info.CodeHash = s.codes.Insert(info.Code)
	}
	record.info = AccountInfo{
		Nonce:    info.Nonce,
		Balance:  info.Balance,
		CodeHash: info.CodeHash,
	}
	s.accounts[addr] = record
	return s.writeAccountLeaf(addr, record)
}

// RemoveAccount removes the account and its storage, dropping its code
// reference. Returns the removed account info, nil if it did not exist.
func (s *TrieState) RemoveAccount(addr types.Address) (*AccountInfo, error) {
	record, ok := s.accounts[addr]
	if !ok {
		return nil, nil
	}
	delete(s.accounts, addr)
	s.codes.Remove(record.info.CodeHash)
	s.trie.Delete(crypto.Keccak256(addr.Bytes()))
	removed := record.info
	if removed.Balance == nil {
		removed.Balance = new(big.Int)
	}
	return &removed, nil
}

// SetAccountStorageSlot writes value into a slot, creating a default
// account when none exists. Writing zero removes the slot. Returns the
// previous value.
func (s *TrieState) SetAccountStorageSlot(addr types.Address, slot types.Hash, value *uint256.Int) (*uint256.Int, error) {
	record, ok := s.accounts[addr]
	if !ok {
		record = &accountRecord{
			info:    AccountInfo{Balance: new(big.Int), CodeHash: types.EmptyCodeHash},
			storage: make(map[types.Hash]*uint256.Int),
		}
		s.accounts[addr] = record
	}
	prev, had := record.storage[slot]
	if !had {
		prev = uint256.NewInt(0)
	}
	if value == nil || value.IsZero() {
		delete(record.storage, slot)
	} else {
		record.storage[slot] = value.Clone()
	}
	if err := s.writeAccountLeaf(addr, record); err != nil {
		return nil, err
	}
	return prev.Clone(), nil
}

// Commit atomically applies a StateDiff.
func (s *TrieState) Commit(diff *StateDiff) error {
	// Deterministic application order.
	addrs := make([]types.Address, 0, len(diff.Changes))
	for addr := range diff.Changes {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})

	for _, addr := range addrs {
		change := diff.Changes[addr]
		if change.SelfDestructed || change.Account == nil {
			if _, err := s.RemoveAccount(addr); err != nil {
				return err
			}
			continue
		}
		if change.Account.IsEmpty() && !change.Created && len(change.Storage) == 0 {
			if _, err := s.RemoveAccount(addr); err != nil {
				return err
			}
			continue
		}
		if err := s.InsertAccount(addr, change.Account); err != nil {
			return err
		}
		for slot, value := range change.Storage {
			if _, err := s.SetAccountStorageSlot(addr, slot, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// StateRoot returns the root of the account trie.
func (s *TrieState) StateRoot() (types.Hash, error) {
	return types.Hash(s.trie.Hash()), nil
}

// Serialize returns a deterministic textual dump of the state for
// snapshotting and debugging.
func (s *TrieState) Serialize() string {
	addrs := make([]types.Address, 0, len(s.accounts))
	for addr := range s.accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})

	var sb strings.Builder
	for _, addr := range addrs {
		record := s.accounts[addr]
		balance := new(big.Int)
		if record.info.Balance != nil {
			balance = record.info.Balance
		}
		fmt.Fprintf(&sb, "account %s balance=%s nonce=%d codeHash=%s\n",
			addr.Hex(), balance.String(), record.info.Nonce, record.info.CodeHash.Hex())

		slots := make([]types.Hash, 0, len(record.storage))
		for slot := range record.storage {
			slots = append(slots, slot)
		}
		sort.Slice(slots, func(i, j int) bool {
			return bytes.Compare(slots[i].Bytes(), slots[j].Bytes()) < 0
		})
		for _, slot := range slots {
			fmt.Fprintf(&sb, "  storage %s=%s\n", slot.Hex(), record.storage[slot].Hex())
		}
	}
	return sb.String()
}

// writeAccountLeaf recomputes the account's storage root and rewrites its
// leaf in the account trie.
func (s *TrieState) writeAccountLeaf(addr types.Address, record *accountRecord) error {
	storageTrie := trie.New()
	for slot, value := range record.storage {
		storageTrie.Put(crypto.Keccak256(slot.Bytes()), rlp.EncodeBytes(value.Bytes()))
	}
	leaf := accountLeaf{
		Nonce:    record.info.Nonce,
		Balance:  record.info.Balance,
		Root:     types.Hash(storageTrie.Hash()),
		CodeHash: record.info.CodeHash.Bytes(),
	}
	enc, err := rlp.EncodeToBytes(&leaf)
	if err != nil {
		return err
	}
	s.trie.Put(crypto.Keccak256(addr.Bytes()), enc)
	return nil
}
