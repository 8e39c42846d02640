package types

import (
	"errors"

	"github.com/NomicFoundation/edr-sub004/rlp"
)

// BlobSidecar carries the blob payloads of an EIP-4844 transaction in its
// pooled form. Blobs, commitments and proofs are opaque here; consensus
// verification of the KZG material is out of scope for a development node.
type BlobSidecar struct {
	Blobs       [][]byte
	Commitments [][]byte
	Proofs      [][]byte
}

var (
	// ErrSidecarRequired is returned when a blob transaction enters the
	// pool without its sidecar.
	ErrSidecarRequired = errors.New("blob transaction requires a sidecar in pooled form")

	// ErrUnexpectedSidecar is returned when a non-blob transaction
	// carries a sidecar.
	ErrUnexpectedSidecar = errors.New("only blob transactions carry a sidecar")

	// ErrNotPoolable is returned for transaction kinds that never enter
	// the pool, such as deposits.
	ErrNotPoolable = errors.New("transaction type cannot enter the pool")
)

// PooledTransaction is the gossip form of a transaction. Blob transactions
// travel with their sidecar; all other types are identical to their
// canonical form.
type PooledTransaction struct {
	Tx      *Transaction
	Sidecar *BlobSidecar
}

// NewPooledTransaction validates the pairing of transaction and sidecar.
func NewPooledTransaction(tx *Transaction, sidecar *BlobSidecar) (*PooledTransaction, error) {
	switch {
	case tx.Type() == DepositTxType:
		return nil, ErrNotPoolable
	case tx.IsFakeSigned():
		return nil, ErrFakeSignedEncoding
	case tx.Type() == BlobTxType && sidecar == nil:
		return nil, ErrSidecarRequired
	case tx.Type() != BlobTxType && sidecar != nil:
		return nil, ErrUnexpectedSidecar
	}
	return &PooledTransaction{Tx: tx, Sidecar: sidecar}, nil
}

type pooledBlobWire struct {
	Tx          blobTxWire
	Blobs       [][]byte
	Commitments [][]byte
	Proofs      [][]byte
}

// MarshalBinary returns the pooled wire encoding: for blob transactions
// the type byte followed by rlp([tx, blobs, commitments, proofs]), for
// everything else the canonical encoding.
func (p *PooledTransaction) MarshalBinary() ([]byte, error) {
	if p.Tx.Type() != BlobTxType {
		return p.Tx.MarshalBinary()
	}
	if p.Sidecar == nil {
		return nil, ErrSidecarRequired
	}
	if p.Tx.IsFakeSigned() {
		return nil, ErrFakeSignedEncoding
	}
	blob := p.Tx.inner.(*BlobTx)
	payload, err := rlp.EncodeToBytes(&pooledBlobWire{
		Tx: blobTxWire{
			ChainID: blob.ChainID, Nonce: blob.Nonce,
			GasTipCap: blob.GasTipCap, GasFeeCap: blob.GasFeeCap,
			Gas: blob.Gas, To: blob.To, Value: blob.Value,
			Data: blob.Data, AccessList: blob.AccessList,
			BlobFeeCap: blob.BlobFeeCap, BlobHashes: blob.BlobHashes,
			V: blob.V, R: blob.R, S: blob.S,
		},
		Blobs:       p.Sidecar.Blobs,
		Commitments: p.Sidecar.Commitments,
		Proofs:      p.Sidecar.Proofs,
	})
	if err != nil {
		return nil, err
	}
	enc := make([]byte, 0, len(payload)+1)
	enc = append(enc, BlobTxType)
	return append(enc, payload...), nil
}

// UnmarshalBinary decodes a pooled transaction, accepting both the pooled
// blob form and the canonical form of other types.
func (p *PooledTransaction) UnmarshalBinary(data []byte) error {
	if len(data) > 0 && data[0] == BlobTxType {
		var wire pooledBlobWire
		if err := rlp.DecodeBytes(data[1:], &wire); err != nil {
			return err
		}
		inner := &BlobTx{
			ChainID: wire.Tx.ChainID, Nonce: wire.Tx.Nonce,
			GasTipCap: wire.Tx.GasTipCap, GasFeeCap: wire.Tx.GasFeeCap,
			Gas: wire.Tx.Gas, To: wire.Tx.To, Value: wire.Tx.Value,
			Data: wire.Tx.Data, AccessList: wire.Tx.AccessList,
			BlobFeeCap: wire.Tx.BlobFeeCap, BlobHashes: wire.Tx.BlobHashes,
			V: wire.Tx.V, R: wire.Tx.R, S: wire.Tx.S,
		}
		p.Tx = NewTransaction(inner)
		p.Sidecar = &BlobSidecar{
			Blobs:       wire.Blobs,
			Commitments: wire.Commitments,
			Proofs:      wire.Proofs,
		}
		return nil
	}
	tx := new(Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return err
	}
	if tx.Type() == DepositTxType {
		return ErrNotPoolable
	}
	p.Tx = tx
	p.Sidecar = nil
	return nil
}
