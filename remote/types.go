package remote

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/NomicFoundation/edr-sub004/core/types"
)

// Block is the eth_getBlockBy* wire shape. Transactions holds either an
// array of full transaction objects or an array of hashes, depending on
// the request flag.
type Block struct {
	Number                *hexutil.Big     `json:"number"`
	Hash                  types.Hash       `json:"hash"`
	ParentHash            types.Hash       `json:"parentHash"`
	Sha3Uncles            types.Hash       `json:"sha3Uncles"`
	Miner                 types.Address    `json:"miner"`
	StateRoot             types.Hash       `json:"stateRoot"`
	TransactionsRoot      types.Hash       `json:"transactionsRoot"`
	ReceiptsRoot          types.Hash       `json:"receiptsRoot"`
	LogsBloom             types.Bloom      `json:"logsBloom"`
	Difficulty            *hexutil.Big     `json:"difficulty"`
	TotalDifficulty       *hexutil.Big     `json:"totalDifficulty"`
	ExtraData             hexutil.Bytes    `json:"extraData"`
	GasLimit              hexutil.Uint64   `json:"gasLimit"`
	GasUsed               hexutil.Uint64   `json:"gasUsed"`
	Timestamp             hexutil.Uint64   `json:"timestamp"`
	MixHash               types.Hash       `json:"mixHash"`
	Nonce                 types.BlockNonce `json:"nonce"`
	BaseFeePerGas         *hexutil.Big     `json:"baseFeePerGas"`
	WithdrawalsRoot       *types.Hash      `json:"withdrawalsRoot"`
	Withdrawals           []*Withdrawal    `json:"withdrawals"`
	BlobGasUsed           *hexutil.Uint64  `json:"blobGasUsed"`
	ExcessBlobGas         *hexutil.Uint64  `json:"excessBlobGas"`
	ParentBeaconBlockRoot *types.Hash      `json:"parentBeaconBlockRoot"`
	RequestsHash          *types.Hash      `json:"requestsHash"`
	Uncles                []types.Hash     `json:"uncles"`
	Transactions          json.RawMessage  `json:"transactions"`
}

// Header converts the wire block into a consensus header.
func (b *Block) Header() *types.Header {
	h := &types.Header{
		ParentHash:  b.ParentHash,
		OmmersHash:  b.Sha3Uncles,
		Beneficiary: b.Miner,
		StateRoot:   b.StateRoot,
		TxRoot:      b.TransactionsRoot,
		ReceiptRoot: b.ReceiptsRoot,
		Bloom:       b.LogsBloom,
		Difficulty:  bigFromHex(b.Difficulty),
		Number:      bigFromHex(b.Number),
		GasLimit:    uint64(b.GasLimit),
		GasUsed:     uint64(b.GasUsed),
		Timestamp:   uint64(b.Timestamp),
		ExtraData:   b.ExtraData,
		MixHash:     b.MixHash,
		Nonce:       b.Nonce,
		BaseFee:     optionalBig(b.BaseFeePerGas),
	}
	if b.WithdrawalsRoot != nil {
		root := *b.WithdrawalsRoot
		h.WithdrawalsRoot = &root
	}
	if b.BlobGasUsed != nil {
		used := uint64(*b.BlobGasUsed)
		h.BlobGasUsed = &used
	}
	if b.ExcessBlobGas != nil {
		excess := uint64(*b.ExcessBlobGas)
		h.ExcessBlobGas = &excess
	}
	if b.ParentBeaconBlockRoot != nil {
		root := *b.ParentBeaconBlockRoot
		h.ParentBeaconRoot = &root
	}
	if b.RequestsHash != nil {
		root := *b.RequestsHash
		h.RequestsHash = &root
	}
	return h
}

// TransactionData parses the transactions field when it carries full
// objects. A hash-only array yields an empty slice.
func (b *Block) TransactionData() ([]*Transaction, error) {
	if len(b.Transactions) == 0 {
		return nil, nil
	}
	var hashes []types.Hash
	if err := json.Unmarshal(b.Transactions, &hashes); err == nil {
		return nil, nil
	}
	var txs []*Transaction
	if err := json.Unmarshal(b.Transactions, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// ToBlock converts the wire block into the internal block form.
func (b *Block) ToBlock() (*types.Block, error) {
	wireTxs, err := b.TransactionData()
	if err != nil {
		return nil, err
	}
	txs := make(types.Transactions, 0, len(wireTxs))
	for _, wtx := range wireTxs {
		tx, err := wtx.ToTransaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	var withdrawals types.Withdrawals
	if b.WithdrawalsRoot != nil {
		withdrawals = make(types.Withdrawals, 0, len(b.Withdrawals))
		for _, w := range b.Withdrawals {
			withdrawals = append(withdrawals, w.toWithdrawal())
		}
	}
	return types.NewBlockWithHeader(b.Header()).WithBody(txs, nil, withdrawals), nil
}

// Withdrawal is the wire shape of a beacon chain withdrawal.
type Withdrawal struct {
	Index          hexutil.Uint64 `json:"index"`
	ValidatorIndex hexutil.Uint64 `json:"validatorIndex"`
	Address        types.Address  `json:"address"`
	Amount         hexutil.Uint64 `json:"amount"`
}

func (w *Withdrawal) toWithdrawal() *types.Withdrawal {
	return &types.Withdrawal{
		Index:          uint64(w.Index),
		ValidatorIndex: uint64(w.ValidatorIndex),
		Address:        w.Address,
		Amount:         uint64(w.Amount),
	}
}

// AccessTuple is the wire shape of an access list entry.
type AccessTuple struct {
	Address     types.Address `json:"address"`
	StorageKeys []types.Hash  `json:"storageKeys"`
}

// Authorization is the wire shape of an EIP-7702 authorization.
type Authorization struct {
	ChainID *hexutil.Big   `json:"chainId"`
	Address types.Address  `json:"address"`
	Nonce   hexutil.Uint64 `json:"nonce"`
	YParity *hexutil.Big   `json:"yParity"`
	R       *hexutil.Big   `json:"r"`
	S       *hexutil.Big   `json:"s"`
}

// Transaction is the eth_getTransactionBy* wire shape, covering every
// supported transaction type including deposits.
type Transaction struct {
	Hash                 types.Hash      `json:"hash"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	From                 types.Address   `json:"from"`
	To                   *types.Address  `json:"to"`
	Value                *hexutil.Big    `json:"value"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`
	MaxFeePerBlobGas     *hexutil.Big    `json:"maxFeePerBlobGas"`
	Input                hexutil.Bytes   `json:"input"`
	Type                 *hexutil.Uint64 `json:"type"`
	ChainID              *hexutil.Big    `json:"chainId"`
	AccessList           []AccessTuple   `json:"accessList"`
	BlobVersionedHashes  []types.Hash    `json:"blobVersionedHashes"`
	AuthorizationList    []Authorization `json:"authorizationList"`
	V                    *hexutil.Big    `json:"v"`
	R                    *hexutil.Big    `json:"r"`
	S                    *hexutil.Big    `json:"s"`
	YParity              *hexutil.Big    `json:"yParity"`

	BlockHash        *types.Hash     `json:"blockHash"`
	BlockNumber      *hexutil.Big    `json:"blockNumber"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`

	// Deposit transaction fields.
	SourceHash *types.Hash  `json:"sourceHash"`
	Mint       *hexutil.Big `json:"mint"`
	IsSystemTx bool         `json:"isSystemTx"`
}

// ToTransaction converts the wire transaction to the internal signed
// transaction and pins the reported sender.
func (t *Transaction) ToTransaction() (*types.Transaction, error) {
	var txType uint8
	if t.Type != nil {
		txType = uint8(*t.Type)
	}

	v := t.vValue()
	r := bigFromHex(t.R)
	s := bigFromHex(t.S)

	var inner types.TxData
	switch txType {
	case types.LegacyTxType:
		inner = &types.LegacyTx{
			Nonce:    uint64(t.Nonce),
			GasPrice: bigFromHex(t.GasPrice),
			Gas:      uint64(t.Gas),
			To:       copyAddressPtr(t.To),
			Value:    bigFromHex(t.Value),
			Data:     t.Input,
			V:        v, R: r, S: s,
		}
	case types.AccessListTxType:
		inner = &types.AccessListTx{
			ChainID:    bigFromHex(t.ChainID),
			Nonce:      uint64(t.Nonce),
			GasPrice:   bigFromHex(t.GasPrice),
			Gas:        uint64(t.Gas),
			To:         copyAddressPtr(t.To),
			Value:      bigFromHex(t.Value),
			Data:       t.Input,
			AccessList: t.accessList(),
			V:          v, R: r, S: s,
		}
	case types.DynamicFeeTxType:
		inner = &types.DynamicFeeTx{
			ChainID:    bigFromHex(t.ChainID),
			Nonce:      uint64(t.Nonce),
			GasTipCap:  bigFromHex(t.MaxPriorityFeePerGas),
			GasFeeCap:  bigFromHex(t.MaxFeePerGas),
			Gas:        uint64(t.Gas),
			To:         copyAddressPtr(t.To),
			Value:      bigFromHex(t.Value),
			Data:       t.Input,
			AccessList: t.accessList(),
			V:          v, R: r, S: s,
		}
	case types.BlobTxType:
		if t.To == nil {
			return nil, fmt.Errorf("blob transaction %s lacks a recipient", t.Hash)
		}
		inner = &types.BlobTx{
			ChainID:    bigFromHex(t.ChainID),
			Nonce:      uint64(t.Nonce),
			GasTipCap:  bigFromHex(t.MaxPriorityFeePerGas),
			GasFeeCap:  bigFromHex(t.MaxFeePerGas),
			Gas:        uint64(t.Gas),
			To:         *t.To,
			Value:      bigFromHex(t.Value),
			Data:       t.Input,
			AccessList: t.accessList(),
			BlobFeeCap: bigFromHex(t.MaxFeePerBlobGas),
			BlobHashes: t.BlobVersionedHashes,
			V:          v, R: r, S: s,
		}
	case types.SetCodeTxType:
		if t.To == nil {
			return nil, fmt.Errorf("set-code transaction %s lacks a recipient", t.Hash)
		}
		inner = &types.SetCodeTx{
			ChainID:           bigFromHex(t.ChainID),
			Nonce:             uint64(t.Nonce),
			GasTipCap:         bigFromHex(t.MaxPriorityFeePerGas),
			GasFeeCap:         bigFromHex(t.MaxFeePerGas),
			Gas:               uint64(t.Gas),
			To:                *t.To,
			Value:             bigFromHex(t.Value),
			Data:              t.Input,
			AccessList:        t.accessList(),
			AuthorizationList: t.authorizationList(),
			V:                 v, R: r, S: s,
		}
	case types.DepositTxType:
		var sourceHash types.Hash
		if t.SourceHash != nil {
			sourceHash = *t.SourceHash
		}
		inner = &types.DepositTx{
			SourceHash:          sourceHash,
			From:                t.From,
			To:                  copyAddressPtr(t.To),
			Mint:                bigFromHex(t.Mint),
			Value:               bigFromHex(t.Value),
			Gas:                 uint64(t.Gas),
			IsSystemTransaction: t.IsSystemTx,
			Data:                t.Input,
		}
	default:
		return nil, types.ErrInvalidTransactionType
	}

	tx := types.NewTransaction(inner)
	tx.SetSender(t.From)
	return tx, nil
}

func (t *Transaction) vValue() *big.Int {
	if t.V != nil {
		return (*big.Int)(t.V)
	}
	if t.YParity != nil {
		return (*big.Int)(t.YParity)
	}
	return new(big.Int)
}

func (t *Transaction) accessList() types.AccessList {
	if t.AccessList == nil {
		return nil
	}
	list := make(types.AccessList, len(t.AccessList))
	for i, tuple := range t.AccessList {
		list[i] = types.AccessTuple{Address: tuple.Address, StorageKeys: tuple.StorageKeys}
	}
	return list
}

func (t *Transaction) authorizationList() []types.Authorization {
	auths := make([]types.Authorization, len(t.AuthorizationList))
	for i, a := range t.AuthorizationList {
		auths[i] = types.Authorization{
			ChainID: bigFromHex(a.ChainID),
			Address: a.Address,
			Nonce:   uint64(a.Nonce),
			V:       bigFromHex(a.YParity),
			R:       bigFromHex(a.R),
			S:       bigFromHex(a.S),
		}
	}
	return auths
}

// Log is the eth_getLogs wire shape.
type Log struct {
	Address          types.Address  `json:"address"`
	Topics           []types.Hash   `json:"topics"`
	Data             hexutil.Bytes  `json:"data"`
	BlockNumber      hexutil.Uint64 `json:"blockNumber"`
	TransactionHash  types.Hash     `json:"transactionHash"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	BlockHash        types.Hash     `json:"blockHash"`
	LogIndex         hexutil.Uint64 `json:"logIndex"`
	Removed          bool           `json:"removed"`
}

// ToLog converts the wire log to the internal form.
func (l *Log) ToLog() *types.Log {
	return &types.Log{
		Address:     l.Address,
		Topics:      l.Topics,
		Data:        l.Data,
		BlockNumber: uint64(l.BlockNumber),
		TxHash:      l.TransactionHash,
		TxIndex:     uint(l.TransactionIndex),
		BlockHash:   l.BlockHash,
		LogIndex:    uint(l.LogIndex),
		Removed:     l.Removed,
	}
}

// Receipt is the eth_getTransactionReceipt wire shape.
type Receipt struct {
	TransactionHash       types.Hash      `json:"transactionHash"`
	TransactionIndex      hexutil.Uint64  `json:"transactionIndex"`
	BlockHash             types.Hash      `json:"blockHash"`
	BlockNumber           hexutil.Uint64  `json:"blockNumber"`
	From                  types.Address   `json:"from"`
	To                    *types.Address  `json:"to"`
	CumulativeGasUsed     hexutil.Uint64  `json:"cumulativeGasUsed"`
	GasUsed               hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice     *hexutil.Big    `json:"effectiveGasPrice"`
	ContractAddress       *types.Address  `json:"contractAddress"`
	Logs                  []*Log          `json:"logs"`
	LogsBloom             types.Bloom     `json:"logsBloom"`
	Type                  *hexutil.Uint64 `json:"type"`
	Status                *hexutil.Uint64 `json:"status"`
	Root                  hexutil.Bytes   `json:"root"`
	BlobGasUsed           *hexutil.Uint64 `json:"blobGasUsed"`
	BlobGasPrice          *hexutil.Big    `json:"blobGasPrice"`
	DepositNonce          *hexutil.Uint64 `json:"depositNonce"`
	DepositReceiptVersion *hexutil.Uint64 `json:"depositReceiptVersion"`
}

// ToReceipt converts the wire receipt to the internal form.
func (r *Receipt) ToReceipt() *types.Receipt {
	receipt := &types.Receipt{
		PostState:         r.Root,
		CumulativeGasUsed: uint64(r.CumulativeGasUsed),
		Bloom:             r.LogsBloom,
		TxHash:            r.TransactionHash,
		GasUsed:           uint64(r.GasUsed),
		EffectiveGasPrice: optionalBig(r.EffectiveGasPrice),
		BlockHash:         r.BlockHash,
		BlockNumber:       uint64(r.BlockNumber),
		TransactionIndex:  uint(r.TransactionIndex),
	}
	if r.Type != nil {
		receipt.Type = uint8(*r.Type)
	}
	if r.Status != nil {
		receipt.Status = uint64(*r.Status)
	}
	if r.ContractAddress != nil {
		addr := *r.ContractAddress
		receipt.ContractAddress = &addr
	}
	if r.BlobGasUsed != nil {
		receipt.BlobGasUsed = uint64(*r.BlobGasUsed)
	}
	receipt.BlobGasPrice = optionalBig(r.BlobGasPrice)
	if r.DepositNonce != nil {
		nonce := uint64(*r.DepositNonce)
		receipt.DepositNonce = &nonce
	}
	if r.DepositReceiptVersion != nil {
		version := uint64(*r.DepositReceiptVersion)
		receipt.DepositReceiptVersion = &version
	}
	receipt.Logs = make([]*types.Log, len(r.Logs))
	for i, log := range r.Logs {
		receipt.Logs[i] = log.ToLog()
	}
	return receipt
}

// FeeHistory is the eth_feeHistory wire shape.
type FeeHistory struct {
	OldestBlock   *hexutil.Big     `json:"oldestBlock"`
	BaseFeePerGas []*hexutil.Big   `json:"baseFeePerGas"`
	GasUsedRatio  []float64        `json:"gasUsedRatio"`
	Reward        [][]*hexutil.Big `json:"reward"`
}

// bigFromHex returns the wrapped big.Int, or a fresh zero when absent.
func bigFromHex(v *hexutil.Big) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return (*big.Int)(v)
}

// optionalBig preserves absence: nil stays nil.
func optionalBig(v *hexutil.Big) *big.Int {
	if v == nil {
		return nil
	}
	return (*big.Int)(v)
}

func copyAddressPtr(a *types.Address) *types.Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}
