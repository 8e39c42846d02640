package types

import (
	"math/big"
	"testing"
)

func testHeader() *Header {
	baseFee := big.NewInt(1000000000)
	return &Header{
		ParentHash:  BytesToHash([]byte{0x01}),
		OmmersHash:  EmptyOmmersHash,
		Beneficiary: HexToAddress("0x8888f1f195afa192cfee860698584c030f4c9db1"),
		StateRoot:   BytesToHash([]byte{0x02}),
		TxRoot:      EmptyRootHash,
		ReceiptRoot: EmptyRootHash,
		Difficulty:  new(big.Int),
		Number:      big.NewInt(7),
		GasLimit:    8000000,
		GasUsed:     21000,
		Timestamp:   1658000000,
		ExtraData:   []byte("test"),
		MixHash:     BytesToHash([]byte{0x03}),
		BaseFee:     baseFee,
	}
}

func TestHeader_RLPRoundtrip(t *testing.T) {
	h := testHeader()
	enc, err := h.MarshalRLP()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Header
	if err := decoded.UnmarshalRLP(enc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Hash() != h.Hash() {
		t.Fatal("hash mismatch after roundtrip")
	}
	if decoded.Number.Cmp(h.Number) != 0 || decoded.GasLimit != h.GasLimit {
		t.Fatalf("fields mismatch: %+v", decoded)
	}
	if decoded.BaseFee == nil || decoded.BaseFee.Cmp(h.BaseFee) != 0 {
		t.Fatalf("base fee: %v", decoded.BaseFee)
	}
	if decoded.WithdrawalsRoot != nil {
		t.Fatal("unexpected withdrawals root")
	}
}

func TestHeader_OptionalTailRoundtrip(t *testing.T) {
	h := testHeader()
	withdrawalsRoot := EmptyRootHash
	h.WithdrawalsRoot = &withdrawalsRoot
	blobGas := uint64(131072)
	excess := uint64(0)
	h.BlobGasUsed = &blobGas
	h.ExcessBlobGas = &excess
	beacon := BytesToHash([]byte{0x04})
	h.ParentBeaconRoot = &beacon

	enc, err := h.MarshalRLP()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Header
	if err := decoded.UnmarshalRLP(enc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.WithdrawalsRoot == nil || *decoded.WithdrawalsRoot != withdrawalsRoot {
		t.Fatal("withdrawals root lost")
	}
	if decoded.BlobGasUsed == nil || *decoded.BlobGasUsed != blobGas {
		t.Fatal("blob gas used lost")
	}
	if decoded.ParentBeaconRoot == nil || *decoded.ParentBeaconRoot != beacon {
		t.Fatal("parent beacon root lost")
	}
	if decoded.Hash() != h.Hash() {
		t.Fatal("hash mismatch after roundtrip")
	}
}

func TestHeader_FieldGapRejected(t *testing.T) {
	h := testHeader()
	// Blob gas without a withdrawals root leaves a gap in the tail.
	blobGas := uint64(1)
	h.BlobGasUsed = &blobGas
	excess := uint64(0)
	h.ExcessBlobGas = &excess
	if _, err := h.MarshalRLP(); err == nil {
		t.Fatal("expected error for optional field gap")
	}
}

func TestBlock_RLPRoundtrip(t *testing.T) {
	to := HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := NewTransaction(&DynamicFeeTx{
		ChainID:   big.NewInt(1),
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(1000000000),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
		V:         big.NewInt(1),
		R:         big.NewInt(2),
		S:         big.NewInt(3),
	})
	legacy := NewTransaction(&LegacyTx{
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(2),
		V:        big.NewInt(27),
		R:        big.NewInt(2),
		S:        big.NewInt(3),
	})
	receipt := NewReceipt(DynamicFeeTxType, nil, ReceiptStatusSuccessful, 21000, nil)
	receipt2 := NewReceipt(LegacyTxType, nil, ReceiptStatusSuccessful, 42000, nil)

	withdrawalsRoot := EmptyRootHash
	header := testHeader()
	header.WithdrawalsRoot = &withdrawalsRoot

	block, err := NewBlock(header, Transactions{tx, legacy}, Receipts{receipt, receipt2}, Withdrawals{})
	if err != nil {
		t.Fatalf("new block: %v", err)
	}
	enc, err := block.MarshalRLP()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Block
	if err := decoded.UnmarshalRLP(enc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Hash() != block.Hash() {
		t.Fatal("hash mismatch after roundtrip")
	}
	if len(decoded.Transactions()) != 2 {
		t.Fatalf("tx count: %d", len(decoded.Transactions()))
	}
	if decoded.Transactions()[0].Hash() != tx.Hash() {
		t.Fatal("typed tx hash mismatch")
	}
	if decoded.Transactions()[1].Hash() != legacy.Hash() {
		t.Fatal("legacy tx hash mismatch")
	}
	if decoded.Withdrawals() == nil || len(decoded.Withdrawals()) != 0 {
		t.Fatalf("withdrawals: %v", decoded.Withdrawals())
	}
}

func TestBlock_DerivedRoots(t *testing.T) {
	to := HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := NewTransaction(&LegacyTx{
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
		V:        big.NewInt(27),
		R:        big.NewInt(2),
		S:        big.NewInt(3),
	})
	receipt := NewReceipt(LegacyTxType, nil, ReceiptStatusSuccessful, 21000, nil)

	header := testHeader()
	block, err := NewBlock(header, Transactions{tx}, Receipts{receipt}, nil)
	if err != nil {
		t.Fatalf("new block: %v", err)
	}

	txRoot, err := DeriveRoot(Transactions{tx})
	if err != nil {
		t.Fatalf("tx root: %v", err)
	}
	if block.Header().TxRoot != txRoot {
		t.Fatal("tx root not derived")
	}
	receiptRoot, err := DeriveRoot(Receipts{receipt})
	if err != nil {
		t.Fatalf("receipt root: %v", err)
	}
	if block.Header().ReceiptRoot != receiptRoot {
		t.Fatal("receipt root not derived")
	}
	if block.GasUsed() != 21000 {
		t.Fatalf("gas used: %d", block.GasUsed())
	}
}

func TestDeriveRoot_Empty(t *testing.T) {
	root, err := DeriveRoot(Transactions{})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if root != EmptyRootHash {
		t.Fatalf("empty root: %s", root)
	}
}

func TestBlock_RejectsFakeSignedEncoding(t *testing.T) {
	to := HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := FakeSignTx(&LegacyTx{
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
	}, HexToAddress("0x00000000000000000000000000000000000c0ffe"))
	receipt := NewReceipt(LegacyTxType, nil, ReceiptStatusSuccessful, 21000, nil)

	block, err := NewBlock(testHeader(), Transactions{tx}, Receipts{receipt}, nil)
	if err != nil {
		t.Fatalf("new block: %v", err)
	}
	if _, err := block.MarshalRLP(); err == nil {
		t.Fatal("expected error encoding a block with a fake-signed transaction")
	}
}
