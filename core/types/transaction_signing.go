package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/NomicFoundation/edr-sub004/rlp"
)

var (
	// ErrInvalidSig is returned when signature values fail validation.
	ErrInvalidSig = errors.New("invalid transaction v, r, s values")

	// ErrInvalidChainID is returned when a transaction's replay protection
	// does not match the signer's chain.
	ErrInvalidChainID = errors.New("invalid chain id for signer")

	// ErrTxTypeNotSupported is returned for operations that do not apply
	// to a transaction type, such as computing a deposit's signing hash.
	ErrTxTypeNotSupported = errors.New("transaction type not supported")
)

var (
	big27     = big.NewInt(27)
	big35     = big.NewInt(35)
	fakeSigRS = big.NewInt(1)
)

// Signer derives signing hashes and recovers senders for a specific chain.
type Signer struct {
	chainID *big.Int
}

// NewSigner creates a signer bound to the given chain ID.
func NewSigner(chainID *big.Int) *Signer {
	if chainID == nil {
		chainID = new(big.Int)
	}
	return &Signer{chainID: new(big.Int).Set(chainID)}
}

// ChainID returns the signer's chain ID.
func (s *Signer) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// Signing payload forms: the signed fields of each type, without V, R, S.

type legacySigning struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       []byte
	Value    *big.Int
	Data     []byte
}

type legacySigning155 struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int
	Zero1    uint64
	Zero2    uint64
}

type accessListSigning struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList AccessList
}

type dynamicFeeSigning struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList AccessList
}

type blobSigning struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         Address
	Value      *big.Int
	Data       []byte
	AccessList AccessList
	BlobFeeCap *big.Int
	BlobHashes []Hash
}

type setCodeSigning struct {
	ChainID           *big.Int
	Nonce             uint64
	GasTipCap         *big.Int
	GasFeeCap         *big.Int
	Gas               uint64
	To                Address
	Value             *big.Int
	Data              []byte
	AccessList        AccessList
	AuthorizationList []Authorization
}

// SigningHash returns the hash that the transaction's signature covers.
func (s *Signer) SigningHash(tx *Transaction) (Hash, error) {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		if s.chainID.Sign() == 0 {
			payload, err := rlp.EncodeToBytes(&legacySigning{
				Nonce: inner.Nonce, GasPrice: inner.GasPrice,
				Gas: inner.Gas, To: addrToWire(inner.To),
				Value: inner.Value, Data: inner.Data,
			})
			if err != nil {
				return Hash{}, err
			}
			return keccak256Hash(payload), nil
		}
		payload, err := rlp.EncodeToBytes(&legacySigning155{
			Nonce: inner.Nonce, GasPrice: inner.GasPrice,
			Gas: inner.Gas, To: addrToWire(inner.To),
			Value: inner.Value, Data: inner.Data,
			ChainID: s.chainID,
		})
		if err != nil {
			return Hash{}, err
		}
		return keccak256Hash(payload), nil

	case *AccessListTx:
		return s.typedSigningHash(AccessListTxType, &accessListSigning{
			ChainID: s.chainID, Nonce: inner.Nonce,
			GasPrice: inner.GasPrice, Gas: inner.Gas,
			To: addrToWire(inner.To), Value: inner.Value,
			Data: inner.Data, AccessList: inner.AccessList,
		})
	case *DynamicFeeTx:
		return s.typedSigningHash(DynamicFeeTxType, &dynamicFeeSigning{
			ChainID: s.chainID, Nonce: inner.Nonce,
			GasTipCap: inner.GasTipCap, GasFeeCap: inner.GasFeeCap,
			Gas: inner.Gas, To: addrToWire(inner.To),
			Value: inner.Value, Data: inner.Data,
			AccessList: inner.AccessList,
		})
	case *BlobTx:
		return s.typedSigningHash(BlobTxType, &blobSigning{
			ChainID: s.chainID, Nonce: inner.Nonce,
			GasTipCap: inner.GasTipCap, GasFeeCap: inner.GasFeeCap,
			Gas: inner.Gas, To: inner.To, Value: inner.Value,
			Data: inner.Data, AccessList: inner.AccessList,
			BlobFeeCap: inner.BlobFeeCap, BlobHashes: inner.BlobHashes,
		})
	case *SetCodeTx:
		return s.typedSigningHash(SetCodeTxType, &setCodeSigning{
			ChainID: s.chainID, Nonce: inner.Nonce,
			GasTipCap: inner.GasTipCap, GasFeeCap: inner.GasFeeCap,
			Gas: inner.Gas, To: inner.To, Value: inner.Value,
			Data: inner.Data, AccessList: inner.AccessList,
			AuthorizationList: inner.AuthorizationList,
		})
	default:
		return Hash{}, ErrTxTypeNotSupported
	}
}

func (s *Signer) typedSigningHash(txType byte, payload interface{}) (Hash, error) {
	enc, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return Hash{}, err
	}
	return keccak256Hash([]byte{txType}, enc), nil
}

// Sender recovers the sending address of the transaction. The result is
// cached; deposits and fake-signed transactions return their recorded
// sender without any curve work.
func (s *Signer) Sender(tx *Transaction) (Address, error) {
	if from := tx.from.Load(); from != nil {
		return *from, nil
	}
	if tx.Type() == DepositTxType {
		// wrapDecoded and NewTransaction seed the cache for deposits.
		return Address{}, ErrTxTypeNotSupported
	}

	v, r, sv := tx.RawSignatureValues()
	if v == nil || r == nil || sv == nil {
		return Address{}, ErrInvalidSig
	}
	recID, err := s.recoveryID(tx, v)
	if err != nil {
		return Address{}, err
	}
	if !gethcrypto.ValidateSignatureValues(recID, r, sv, true) {
		return Address{}, ErrInvalidSig
	}
	hash, err := s.SigningHash(tx)
	if err != nil {
		return Address{}, err
	}

	sig := make([]byte, 65)
	r.FillBytes(sig[:32])
	sv.FillBytes(sig[32:64])
	sig[64] = recID
	pub, err := gethcrypto.Ecrecover(hash[:], sig)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidSig, err)
	}

	var addr Address
	digest := keccak256Hash(pub[1:])
	copy(addr[:], digest[12:])
	tx.SetSender(addr)
	return addr, nil
}

// recoveryID maps the transaction's V value to a recovery id in [0, 3],
// checking replay protection against the signer's chain.
func (s *Signer) recoveryID(tx *Transaction, v *big.Int) (byte, error) {
	if tx.Type() != LegacyTxType {
		if tx.ChainId().Cmp(s.chainID) != 0 {
			return 0, ErrInvalidChainID
		}
		if v.BitLen() > 2 {
			return 0, ErrInvalidSig
		}
		return byte(v.Uint64()), nil
	}
	if v.BitLen() <= 8 {
		val := v.Uint64()
		if val == 27 || val == 28 {
			return byte(val - 27), nil
		}
	}
	// EIP-155: v = recID + chainID*2 + 35.
	if s.chainID.Sign() == 0 {
		return 0, ErrInvalidSig
	}
	expected := new(big.Int).Mul(s.chainID, big.NewInt(2))
	recID := new(big.Int).Sub(v, big35)
	recID.Sub(recID, expected)
	if recID.Sign() < 0 || recID.BitLen() > 2 {
		return 0, ErrInvalidChainID
	}
	return byte(recID.Uint64()), nil
}

// signatureValues converts a 65-byte [R || S || recID] signature into the
// V, R, S encoding of the transaction type.
func (s *Signer) signatureValues(tx *Transaction, sig []byte) (v, r, sv *big.Int, err error) {
	if len(sig) != 65 {
		return nil, nil, nil, ErrInvalidSig
	}
	r = new(big.Int).SetBytes(sig[:32])
	sv = new(big.Int).SetBytes(sig[32:64])
	if tx.Type() != LegacyTxType {
		v = new(big.Int).SetUint64(uint64(sig[64]))
		return v, r, sv, nil
	}
	if s.chainID.Sign() == 0 {
		v = new(big.Int).SetUint64(uint64(sig[64]) + 27)
		return v, r, sv, nil
	}
	v = new(big.Int).SetUint64(uint64(sig[64]) + 35)
	v.Add(v, new(big.Int).Mul(s.chainID, big.NewInt(2)))
	return v, r, sv, nil
}

// SignTx signs the transaction with the given private key and returns a
// new signed transaction.
func SignTx(tx *Transaction, signer *Signer, key *ecdsa.PrivateKey) (*Transaction, error) {
	if tx.Type() == DepositTxType {
		return nil, ErrTxTypeNotSupported
	}
	hash, err := signer.SigningHash(tx)
	if err != nil {
		return nil, err
	}
	sig, err := gethcrypto.Sign(hash[:], key)
	if err != nil {
		return nil, err
	}
	signed := &Transaction{inner: tx.inner.copy()}
	v, r, sv, err := signer.signatureValues(signed, sig)
	if err != nil {
		return nil, err
	}
	signed.setSignatureValues(v, r, sv)
	return signed, nil
}

// FakeSignTx builds a transaction impersonating sender. The signature is a
// structurally valid placeholder (r = s = 1) and the sender is pinned, so
// recovery never runs. Fake-signed transactions refuse wire encoding.
func FakeSignTx(inner TxData, sender Address) *Transaction {
	tx := &Transaction{inner: inner.copy(), impersonated: true}
	v := new(big.Int)
	if tx.Type() == LegacyTxType {
		v.Set(big27)
	} else {
		v.SetUint64(1)
	}
	tx.setSignatureValues(v, new(big.Int).Set(fakeSigRS), new(big.Int).Set(fakeSigRS))
	tx.SetSender(sender)
	return tx
}
