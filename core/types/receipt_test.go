package types

import (
	"bytes"
	"math/big"
	"testing"
)

func TestReceipt_StatusRoundtrip(t *testing.T) {
	receipt := NewReceipt(DynamicFeeTxType, nil, ReceiptStatusSuccessful, 42000, []*Log{
		{
			Address: HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87"),
			Topics:  []Hash{BytesToHash([]byte{0x01})},
			Data:    []byte{0xca, 0xfe},
		},
	})
	raw, err := receipt.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if raw[0] != DynamicFeeTxType {
		t.Fatalf("type byte: %x", raw[0])
	}
	var decoded Receipt
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Status != ReceiptStatusSuccessful {
		t.Fatalf("status: %d", decoded.Status)
	}
	if decoded.CumulativeGasUsed != 42000 {
		t.Fatalf("cumulative gas: %d", decoded.CumulativeGasUsed)
	}
	if len(decoded.Logs) != 1 || !bytes.Equal(decoded.Logs[0].Data, []byte{0xca, 0xfe}) {
		t.Fatalf("logs: %+v", decoded.Logs)
	}
	if decoded.Bloom != receipt.Bloom {
		t.Fatal("bloom mismatch")
	}
}

func TestReceipt_PreByzantiumPostState(t *testing.T) {
	root := BytesToHash([]byte{0x01, 0x02})
	receipt := NewReceipt(LegacyTxType, root.Bytes(), 0, 21000, nil)
	raw, err := receipt.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Receipt
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(decoded.PostState, root.Bytes()) {
		t.Fatalf("post state: %x", decoded.PostState)
	}
}

func TestReceipt_DepositTail(t *testing.T) {
	nonce := uint64(7)
	version := uint64(DepositReceiptVersion)
	receipt := NewReceipt(DepositTxType, nil, ReceiptStatusSuccessful, 21000, nil)
	receipt.DepositNonce = &nonce
	receipt.DepositReceiptVersion = &version

	raw, err := receipt.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Receipt
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.DepositNonce == nil || *decoded.DepositNonce != 7 {
		t.Fatalf("deposit nonce: %v", decoded.DepositNonce)
	}
	if decoded.DepositReceiptVersion == nil || *decoded.DepositReceiptVersion != 1 {
		t.Fatalf("deposit version: %v", decoded.DepositReceiptVersion)
	}
}

func TestReceipt_DepositNonceWithoutVersion(t *testing.T) {
	nonce := uint64(3)
	receipt := NewReceipt(DepositTxType, nil, ReceiptStatusFailed, 21000, nil)
	receipt.DepositNonce = &nonce

	raw, err := receipt.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Receipt
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.DepositNonce == nil || *decoded.DepositNonce != 3 {
		t.Fatalf("deposit nonce: %v", decoded.DepositNonce)
	}
	if decoded.DepositReceiptVersion != nil {
		t.Fatalf("unexpected version: %v", *decoded.DepositReceiptVersion)
	}
	if decoded.Status != ReceiptStatusFailed {
		t.Fatalf("status: %d", decoded.Status)
	}
}

func TestReceipt_DeriveFields(t *testing.T) {
	to := HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")

	tx1 := FakeSignTx(&LegacyTx{GasPrice: big.NewInt(10), Gas: 21000, To: &to, Value: big.NewInt(1)},
		HexToAddress("0x00000000000000000000000000000000000000aa"))
	tx2 := FakeSignTx(&LegacyTx{Nonce: 1, GasPrice: big.NewInt(10), Gas: 53000, Value: big.NewInt(0)},
		HexToAddress("0x00000000000000000000000000000000000000aa"))

	r1 := NewReceipt(LegacyTxType, nil, ReceiptStatusSuccessful, 21000, []*Log{{Address: to}})
	r2 := NewReceipt(LegacyTxType, nil, ReceiptStatusSuccessful, 74000, []*Log{{Address: to}, {Address: to}})

	blockHash := BytesToHash([]byte{0xbb})
	if err := DeriveFields([]*Receipt{r1, r2}, blockHash, 5, big.NewInt(0), nil, []*Transaction{tx1, tx2}); err != nil {
		t.Fatalf("derive: %v", err)
	}

	if r1.GasUsed != 21000 || r2.GasUsed != 53000 {
		t.Fatalf("gas used: %d, %d", r1.GasUsed, r2.GasUsed)
	}
	if r1.TxHash != tx1.Hash() || r2.TxHash != tx2.Hash() {
		t.Fatal("tx hash mismatch")
	}
	if r2.ContractAddress == nil {
		t.Fatal("creation receipt lacks contract address")
	}
	if r1.ContractAddress != nil {
		t.Fatal("call receipt has contract address")
	}
	if r1.Logs[0].LogIndex != 0 || r2.Logs[0].LogIndex != 1 || r2.Logs[1].LogIndex != 2 {
		t.Fatal("log indices not monotonic across the block")
	}
	if r2.Logs[1].BlockHash != blockHash || r2.Logs[1].BlockNumber != 5 {
		t.Fatal("log block fields not tagged")
	}
}
