package state

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"github.com/NomicFoundation/edr-sub004/core/types"
)

var (
	addrA = types.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	addrB = types.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	slot1 = types.BytesToHash([]byte{0x01})
)

func fundedAccount(balance int64) *AccountInfo {
	info := NewAccountInfo()
	info.Balance = big.NewInt(balance)
	return info
}

func TestTrieState_EmptyRoot(t *testing.T) {
	st := NewTrieState()
	root, err := st.StateRoot()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if root != types.EmptyRootHash {
		t.Fatalf("empty state root: %s", root)
	}
}

func TestTrieState_InsertAndRead(t *testing.T) {
	st := NewTrieState()
	if err := st.InsertAccount(addrA, fundedAccount(1000)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	info, err := st.Basic(addrA)
	if err != nil {
		t.Fatalf("basic: %v", err)
	}
	if info == nil || info.Balance.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("account: %+v", info)
	}
	absent, err := st.Basic(addrB)
	if err != nil {
		t.Fatalf("basic absent: %v", err)
	}
	if absent != nil {
		t.Fatalf("expected absent account, got %+v", absent)
	}
}

func TestTrieState_SetThenResetKeepsRoot(t *testing.T) {
	st := NewTrieState()
	if err := st.InsertAccount(addrA, fundedAccount(1000)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	root, err := st.StateRoot()
	if err != nil {
		t.Fatalf("root: %v", err)
	}

	if _, err := st.SetAccountStorageSlot(addrA, slot1, uint256.NewInt(7)); err != nil {
		t.Fatalf("set slot: %v", err)
	}
	changed, err := st.StateRoot()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if changed == root {
		t.Fatal("storage write did not change the root")
	}

	prev, err := st.SetAccountStorageSlot(addrA, slot1, uint256.NewInt(0))
	if err != nil {
		t.Fatalf("reset slot: %v", err)
	}
	if prev == nil || prev.Uint64() != 7 {
		t.Fatalf("previous value: %v", prev)
	}
	reset, err := st.StateRoot()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if reset != root {
		t.Fatal("set-then-reset changed the root")
	}
}

func TestTrieState_ModifyAccountSwapsCode(t *testing.T) {
	st := NewTrieState()
	info := fundedAccount(1)
	info.Code = []byte{0x60, 0x00}
	info.CodeHash = types.Hash{}
	if err := st.InsertAccount(addrA, info); err != nil {
		t.Fatalf("insert: %v", err)
	}
	stored, err := st.Basic(addrA)
	if err != nil {
		t.Fatalf("basic: %v", err)
	}
	code, err := st.CodeByHash(stored.CodeHash)
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if len(code) != 2 || code[0] != 0x60 {
		t.Fatalf("code: %x", code)
	}

	if err := st.ModifyAccount(addrA, func(info *AccountInfo) {
		info.Code = []byte{0x60, 0x01}
	}); err != nil {
		t.Fatalf("modify: %v", err)
	}
	updated, err := st.Basic(addrA)
	if err != nil {
		t.Fatalf("basic: %v", err)
	}
	if updated.CodeHash == stored.CodeHash {
		t.Fatal("code hash unchanged after code swap")
	}
}

func TestTrieState_CommitAppliesDiff(t *testing.T) {
	st := NewTrieState()
	diff := NewStateDiff()
	diff.SetAccount(addrA, fundedAccount(500), true)
	diff.SetStorage(addrA, slot1, uint256.NewInt(9))

	if err := st.Commit(diff); err != nil {
		t.Fatalf("commit: %v", err)
	}
	info, err := st.Basic(addrA)
	if err != nil {
		t.Fatalf("basic: %v", err)
	}
	if info == nil || info.Balance.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("account: %+v", info)
	}
	value, err := st.Storage(addrA, slot1)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	if value.Uint64() != 9 {
		t.Fatalf("slot value: %v", value)
	}
}

func TestTrieState_CopyIsIndependent(t *testing.T) {
	st := NewTrieState()
	if err := st.InsertAccount(addrA, fundedAccount(100)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	root, _ := st.StateRoot()

	cpy := st.Copy()
	if err := cpy.InsertAccount(addrB, fundedAccount(200)); err != nil {
		t.Fatalf("insert copy: %v", err)
	}
	after, _ := st.StateRoot()
	if after != root {
		t.Fatal("copy mutation leaked into the original")
	}
	if info, _ := st.Basic(addrB); info != nil {
		t.Fatal("original sees the copy's account")
	}
	if info, _ := cpy.Basic(addrB); info == nil {
		t.Fatal("copy lost its own account")
	}
}

func TestTrieState_SerializeDeterministic(t *testing.T) {
	build := func() *TrieState {
		st := NewTrieState()
		st.InsertAccount(addrB, fundedAccount(2))
		st.InsertAccount(addrA, fundedAccount(1))
		st.SetAccountStorageSlot(addrA, slot1, uint256.NewInt(3))
		return st
	}
	if build().Serialize() != build().Serialize() {
		t.Fatal("serialization not deterministic")
	}
}

func TestCodeStore_RefCounting(t *testing.T) {
	cs := NewCodeStore()
	code := []byte{0x60, 0x00, 0x60, 0x01}
	hash := cs.Insert(code)
	if again := cs.Insert(code); again != hash {
		t.Fatalf("hash changed on re-insert: %s vs %s", again, hash)
	}

	cs.Remove(hash)
	if _, ok := cs.Get(hash); !ok {
		t.Fatal("code dropped while still referenced")
	}
	cs.Remove(hash)
	if _, ok := cs.Get(hash); ok {
		t.Fatal("code survived its last reference")
	}
}

func TestCodeStore_EmptyCode(t *testing.T) {
	cs := NewCodeStore()
	if hash := cs.Insert(nil); hash != types.EmptyCodeHash {
		t.Fatalf("empty code hash: %s", hash)
	}
}
