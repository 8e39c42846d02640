package types_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/NomicFoundation/edr-sub004/core/types"
	"github.com/NomicFoundation/edr-sub004/crypto"
)

var testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func representativeTxs(to types.Address) []types.TxData {
	chainID := big.NewInt(1337)
	return []types.TxData{
		&types.LegacyTx{
			Nonce:    3,
			GasPrice: big.NewInt(1000000000),
			Gas:      21000,
			To:       &to,
			Value:    big.NewInt(10),
			Data:     []byte{0x01, 0x02},
		},
		&types.AccessListTx{
			ChainID:  chainID,
			Nonce:    4,
			GasPrice: big.NewInt(1000000000),
			Gas:      30000,
			To:       &to,
			Value:    big.NewInt(11),
			AccessList: types.AccessList{
				{Address: to, StorageKeys: []types.Hash{types.BytesToHash([]byte{0x01})}},
			},
		},
		&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     5,
			GasTipCap: big.NewInt(2),
			GasFeeCap: big.NewInt(1000000000),
			Gas:       30000,
			To:        &to,
			Value:     big.NewInt(12),
		},
		&types.BlobTx{
			ChainID:    chainID,
			Nonce:      6,
			GasTipCap:  big.NewInt(2),
			GasFeeCap:  big.NewInt(1000000000),
			Gas:        30000,
			To:         to,
			Value:      big.NewInt(13),
			BlobFeeCap: big.NewInt(100),
			BlobHashes: []types.Hash{types.BytesToHash([]byte{0x01, 0x02})},
		},
		&types.SetCodeTx{
			ChainID:   chainID,
			Nonce:     7,
			GasTipCap: big.NewInt(2),
			GasFeeCap: big.NewInt(1000000000),
			Gas:       60000,
			To:        to,
			Value:     big.NewInt(14),
			AuthorizationList: []types.Authorization{
				{
					ChainID: chainID,
					Address: to,
					Nonce:   1,
					V:       big.NewInt(1),
					R:       big.NewInt(2),
					S:       big.NewInt(3),
				},
			},
		},
	}
}

func TestTransaction_SignAndRecover(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	expected := crypto.PubkeyToAddress(key.PublicKey)
	signer := types.NewSigner(big.NewInt(1337))
	to := types.HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")

	for _, inner := range representativeTxs(to) {
		tx := types.NewTransaction(inner)
		signed, err := types.SignTx(tx, signer, key)
		if err != nil {
			t.Fatalf("sign type %d: %v", tx.Type(), err)
		}
		sender, err := signer.Sender(signed)
		if err != nil {
			t.Fatalf("recover type %d: %v", signed.Type(), err)
		}
		if sender != expected {
			t.Fatalf("type %d: recovered %s, want %s", signed.Type(), sender, expected)
		}
	}
}

func TestTransaction_EnvelopeRoundtrip(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	signer := types.NewSigner(big.NewInt(1337))
	to := types.HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")

	for _, inner := range representativeTxs(to) {
		signed, err := types.SignTx(types.NewTransaction(inner), signer, key)
		if err != nil {
			t.Fatalf("sign type %d: %v", types.NewTransaction(inner).Type(), err)
		}
		raw, err := signed.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal type %d: %v", signed.Type(), err)
		}
		decoded, err := types.DecodeTransaction(raw)
		if err != nil {
			t.Fatalf("decode type %d: %v", signed.Type(), err)
		}
		if decoded.Type() != signed.Type() {
			t.Fatalf("type mismatch: %d vs %d", decoded.Type(), signed.Type())
		}
		if decoded.Hash() != signed.Hash() {
			t.Fatalf("type %d: hash mismatch after roundtrip", signed.Type())
		}
		if decoded.Nonce() != signed.Nonce() || decoded.Gas() != signed.Gas() {
			t.Fatalf("type %d: fields mismatch after roundtrip", signed.Type())
		}
		if decoded.Value().Cmp(signed.Value()) != 0 {
			t.Fatalf("type %d: value mismatch", signed.Type())
		}
		reencoded, err := decoded.MarshalBinary()
		if err != nil {
			t.Fatalf("re-marshal type %d: %v", signed.Type(), err)
		}
		if !bytes.Equal(raw, reencoded) {
			t.Fatalf("type %d: encoding not stable", signed.Type())
		}
	}
}

func TestTransaction_DepositRoundtrip(t *testing.T) {
	from := types.HexToAddress("0xdeaddeaddeaddeaddeaddeaddeaddeaddead0001")
	to := types.HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := types.NewTransaction(&types.DepositTx{
		SourceHash: types.BytesToHash([]byte{0x01}),
		From:       from,
		To:         &to,
		Mint:       big.NewInt(1000),
		Value:      big.NewInt(5),
		Gas:        21000,
	})
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if raw[0] != types.DepositTxType {
		t.Fatalf("type byte: %x", raw[0])
	}
	decoded, err := types.DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Hash() != tx.Hash() {
		t.Fatal("hash mismatch after roundtrip")
	}
	sender := decoded.Sender()
	if sender == nil || *sender != from {
		t.Fatalf("deposit sender: %v", sender)
	}
	if decoded.Mint().Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("mint: %v", decoded.Mint())
	}
}

func TestTransaction_FakeSigned(t *testing.T) {
	impersonated := types.HexToAddress("0x00000000000000000000000000000000000c0ffe")
	to := types.HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := types.FakeSignTx(&types.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
	}, impersonated)

	if !tx.IsFakeSigned() {
		t.Fatal("expected fake-signed transaction")
	}
	sender := tx.Sender()
	if sender == nil || *sender != impersonated {
		t.Fatalf("sender: %v, want %s", sender, impersonated)
	}
	v, r, s := tx.RawSignatureValues()
	if r.Cmp(big.NewInt(1)) != 0 || s.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("fake signature values: v=%v r=%v s=%v", v, r, s)
	}
	if _, err := tx.MarshalBinary(); err != types.ErrFakeSignedEncoding {
		t.Fatalf("expected ErrFakeSignedEncoding, got %v", err)
	}
}

func TestTransaction_LegacyEIP155ChainID(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	signer := types.NewSigner(big.NewInt(1))
	to := types.HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")
	signed, err := types.SignTx(types.NewTransaction(&types.LegacyTx{
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
	}), signer, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed.ChainId().Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("derived chain id: %v", signed.ChainId())
	}

	wrongSigner := types.NewSigner(big.NewInt(2))
	if _, err := wrongSigner.Sender(signed); err == nil {
		t.Fatal("expected chain id mismatch error")
	}
}

func TestTransaction_EmptyDecode(t *testing.T) {
	if _, err := types.DecodeTransaction(nil); err != types.ErrEmptyTransaction {
		t.Fatalf("expected ErrEmptyTransaction, got %v", err)
	}
	if _, err := types.DecodeTransaction([]byte{0x05}); err == nil {
		t.Fatal("expected error for unknown type byte")
	}
}

func TestTransaction_EffectiveGasPrice(t *testing.T) {
	to := types.HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")
	tx := types.NewTransaction(&types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		GasTipCap: big.NewInt(2),
		GasFeeCap: big.NewInt(10),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(0),
	})
	// tip-bounded: baseFee 5 + tip 2 = 7 < feeCap 10
	if got := tx.EffectiveGasPrice(big.NewInt(5)); got.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("effective price: %v", got)
	}
	// cap-bounded: baseFee 9 + tip 2 = 11 > feeCap 10
	if got := tx.EffectiveGasPrice(big.NewInt(9)); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("effective price: %v", got)
	}
}
