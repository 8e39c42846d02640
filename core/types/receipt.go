package types

import (
	"errors"
	"math/big"
)

const (
	// ReceiptStatusFailed is the status of a reverted transaction.
	ReceiptStatusFailed = uint64(0)

	// ReceiptStatusSuccessful is the status of a successful transaction.
	ReceiptStatusSuccessful = uint64(1)
)

// DepositReceiptVersion is the only known version tag for deposit receipts
// that carry one.
const DepositReceiptVersion = uint64(1)

var errInvalidReceiptStatus = errors.New("invalid receipt status encoding")

// Receipt is the result of executing a transaction. PostState holds the
// intermediate state root for pre-Byzantium receipts; from Byzantium on the
// Status field is used instead.
type Receipt struct {
	Type              uint8
	PostState         []byte
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	// Deposit receipts record the account nonce the deposit consumed and,
	// in later chain revisions, a version tag.
	DepositNonce          *uint64
	DepositReceiptVersion *uint64

	// Derived fields, filled in when the enclosing block is known.
	TxHash            Hash
	ContractAddress   *Address
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	BlobGasUsed       uint64
	BlobGasPrice      *big.Int
	BlockHash         Hash
	BlockNumber       uint64
	TransactionIndex  uint
}

// NewReceipt creates a consensus receipt. For pre-Byzantium receipts pass
// the intermediate state root; otherwise pass nil and a status.
func NewReceipt(txType uint8, postState []byte, status uint64, cumulativeGas uint64, logs []*Log) *Receipt {
	r := &Receipt{
		Type:              txType,
		PostState:         copyBytes(postState),
		Status:            status,
		CumulativeGasUsed: cumulativeGas,
		Logs:              logs,
	}
	r.Bloom = LogsBloom(logs)
	return r
}

// Succeeded reports whether the transaction completed without reverting.
// Pre-Byzantium receipts carry no status and are treated as successful.
func (r *Receipt) Succeeded() bool {
	if len(r.PostState) > 0 {
		return true
	}
	return r.Status == ReceiptStatusSuccessful
}

// Copy returns a deep copy of the receipt.
func (r *Receipt) Copy() *Receipt {
	cpy := *r
	cpy.PostState = copyBytes(r.PostState)
	cpy.Logs = make([]*Log, len(r.Logs))
	for i, log := range r.Logs {
		cpy.Logs[i] = log.Copy()
	}
	if r.DepositNonce != nil {
		nonce := *r.DepositNonce
		cpy.DepositNonce = &nonce
	}
	if r.DepositReceiptVersion != nil {
		version := *r.DepositReceiptVersion
		cpy.DepositReceiptVersion = &version
	}
	cpy.ContractAddress = copyAddressPtr(r.ContractAddress)
	cpy.EffectiveGasPrice = copyBig(r.EffectiveGasPrice)
	cpy.BlobGasPrice = copyBig(r.BlobGasPrice)
	return &cpy
}

// DeriveFields fills the derived receipt fields from the enclosing block.
// Receipts and transactions must be index-aligned.
func DeriveFields(receipts []*Receipt, blockHash Hash, blockNumber uint64, baseFee *big.Int, blobGasPrice *big.Int, txs []*Transaction) error {
	if len(receipts) != len(txs) {
		return errors.New("receipt and transaction count mismatch")
	}
	logIndex := uint(0)
	prevCumulative := uint64(0)
	for i, r := range receipts {
		tx := txs[i]
		r.Type = tx.Type()
		r.TxHash = tx.Hash()
		r.BlockHash = blockHash
		r.BlockNumber = blockNumber
		r.TransactionIndex = uint(i)
		r.GasUsed = r.CumulativeGasUsed - prevCumulative
		prevCumulative = r.CumulativeGasUsed
		r.EffectiveGasPrice = tx.EffectiveGasPrice(baseFee)
		if tx.Type() == BlobTxType {
			r.BlobGasUsed = tx.BlobGas()
			r.BlobGasPrice = copyBig(blobGasPrice)
		}
		if tx.To() == nil {
			if from := tx.Sender(); from != nil {
				addr := CreateAddress(*from, tx.Nonce())
				r.ContractAddress = &addr
			}
		}
		for _, log := range r.Logs {
			log.BlockHash = blockHash
			log.BlockNumber = blockNumber
			log.TxHash = r.TxHash
			log.TxIndex = uint(i)
			log.LogIndex = logIndex
			logIndex++
		}
	}
	return nil
}
