package core

import (
	"errors"
	"math/big"

	"github.com/NomicFoundation/edr-sub004/core/state"
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// Gas cost constants for intrinsic gas accounting.
const (
	TxGas                 = 21_000
	TxGasContractCreation = 53_000
	TxDataZeroGas         = 4
	TxDataNonZeroGas      = 16
	TxDataNonZeroGasOld   = 68
	TxAccessListAddress   = 2_400
	TxAccessListSlot      = 1_900
	InitCodeWordGas       = 2
	MaxInitCodeSize       = 2 * 24576
)

var errSenderUnknown = errors.New("transaction sender has not been recovered")

// BlockEnv is the environment of the block a transaction executes in.
type BlockEnv struct {
	Number       uint64
	Beneficiary  types.Address
	Timestamp    uint64
	GasLimit     uint64
	BaseFee      *big.Int
	Prevrandao   types.Hash
	BlobGasPrice *big.Int
}

// ExecutionResult is the outcome of executing one transaction.
type ExecutionResult struct {
	Success         bool
	GasUsed         uint64
	Output          []byte
	Logs            []*types.Log
	ContractAddress *types.Address
}

// StepContext is the per-instruction view passed to an inspector.
type StepContext struct {
	PC           uint64
	Opcode       byte
	GasRemaining uint64
	Depth        int
}

// CallFrame describes a call or create boundary crossed during execution.
type CallFrame struct {
	From  types.Address
	To    *types.Address
	Value *big.Int
	Input []byte
	Depth int
}

// Inspector receives execution hooks. All methods are optional work; an
// inspector must not mutate state.
type Inspector interface {
	OnStep(step StepContext)
	OnCallEnter(frame CallFrame)
	OnCallExit(frame CallFrame, result *ExecutionResult)
}

// BlockHashProvider resolves historical block hashes for execution.
type BlockHashProvider interface {
	BlockHashByNumber(number uint64) (types.Hash, error)
}

// Executor runs transactions against a state. DryRun leaves the state
// untouched and returns the would-be changes as a diff; Run additionally
// commits them.
type Executor interface {
	DryRun(host BlockHashProvider, st state.State, config *ChainConfig, tx *types.Transaction, env *BlockEnv, inspector Inspector) (*ExecutionResult, *state.StateDiff, error)
	Run(host BlockHashProvider, st state.State, config *ChainConfig, tx *types.Transaction, env *BlockEnv, inspector Inspector) (*ExecutionResult, *state.StateDiff, error)
}

// TransferExecutor is the built-in executor: it validates transactions,
// charges intrinsic gas and applies balance and nonce effects, without
// running bytecode. Contract calls degrade to plain transfers; creates
// instantiate an empty account at the derived address.
type TransferExecutor struct{}

var _ Executor = (*TransferExecutor)(nil)

// DryRun executes tx against a copy-free view: effects are returned as a
// diff without being committed.
func (e *TransferExecutor) DryRun(host BlockHashProvider, st state.State, config *ChainConfig, tx *types.Transaction, env *BlockEnv, inspector Inspector) (*ExecutionResult, *state.StateDiff, error) {
	result, diff, err := e.execute(st, config, tx, env, inspector)
	if err != nil {
		return nil, nil, err
	}
	return result, diff, nil
}

// Run executes tx and commits the resulting diff to the state.
func (e *TransferExecutor) Run(host BlockHashProvider, st state.State, config *ChainConfig, tx *types.Transaction, env *BlockEnv, inspector Inspector) (*ExecutionResult, *state.StateDiff, error) {
	result, diff, err := e.execute(st, config, tx, env, inspector)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Commit(diff); err != nil {
		return nil, nil, err
	}
	return result, diff, nil
}

func (e *TransferExecutor) execute(st state.State, config *ChainConfig, tx *types.Transaction, env *BlockEnv, inspector Inspector) (*ExecutionResult, *state.StateDiff, error) {
	if err := validateTxForHardfork(config.Hardfork, tx); err != nil {
		return nil, nil, err
	}
	sender := tx.Sender()
	if sender == nil {
		return nil, nil, errSenderUnknown
	}

	intrinsic, err := IntrinsicGas(tx, config.Hardfork)
	if err != nil {
		return nil, nil, err
	}
	if tx.Gas() < intrinsic {
		return nil, nil, ErrIntrinsicGas
	}

	gasPrice := tx.EffectiveGasPrice(env.BaseFee)
	if !tx.IsDeposit() && env.BaseFee != nil && tx.GasFeeCap() != nil &&
		tx.GasFeeCap().Cmp(env.BaseFee) < 0 {
		return nil, nil, ErrFeeCapTooLow
	}

	senderInfo, err := st.Basic(*sender)
	if err != nil {
		return nil, nil, err
	}
	if senderInfo == nil {
		senderInfo = state.NewAccountInfo()
	}

	value := tx.Value()
	if value == nil {
		value = new(big.Int)
	}

	diff := state.NewStateDiff()

	if tx.IsDeposit() {
		// Deposits mint before spending and are not fee-charged.
		if mint := tx.Mint(); mint != nil {
			senderInfo.Balance = new(big.Int).Add(senderInfo.Balance, mint)
		}
		if senderInfo.Balance.Cmp(value) < 0 {
			return nil, nil, ErrInsufficientFunds
		}
	} else {
		if tx.Nonce() < senderInfo.Nonce {
			return nil, nil, ErrNonceTooLow
		}
		if tx.Nonce() > senderInfo.Nonce {
			return nil, nil, ErrNonceTooHigh
		}
		feeCap := tx.GasFeeCap()
		if feeCap == nil {
			feeCap = new(big.Int)
		}
		maxCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas()), feeCap)
		maxCost.Add(maxCost, value)
		if blobFeeCap := tx.BlobGasFeeCap(); blobFeeCap != nil {
			blobCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.BlobGas()), blobFeeCap)
			maxCost.Add(maxCost, blobCost)
		}
		if senderInfo.Balance.Cmp(maxCost) < 0 {
			return nil, nil, ErrInsufficientFunds
		}
	}

	gasUsed := intrinsic
	fee := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPrice)
	var blobFee *big.Int
	if tx.Type() == types.BlobTxType && env.BlobGasPrice != nil {
		blobFee = new(big.Int).Mul(new(big.Int).SetUint64(tx.BlobGas()), env.BlobGasPrice)
	}

	if inspector != nil {
		frame := CallFrame{From: *sender, To: tx.To(), Value: value, Input: tx.Data(), Depth: 0}
		inspector.OnCallEnter(frame)
		defer func() {
			inspector.OnCallExit(frame, &ExecutionResult{Success: true, GasUsed: gasUsed})
		}()
	}

	// Debit the sender.
	senderInfo.Balance = new(big.Int).Sub(senderInfo.Balance, value)
	if !tx.IsDeposit() {
		senderInfo.Balance.Sub(senderInfo.Balance, fee)
		if blobFee != nil {
			senderInfo.Balance.Sub(senderInfo.Balance, blobFee)
		}
	}
	senderInfo.Nonce++
	diff.SetAccount(*sender, senderInfo, false)

	result := &ExecutionResult{Success: true, GasUsed: gasUsed}

	// Credit the recipient, deriving the address for creates.
	recipient := tx.To()
	if recipient == nil {
		created := types.CreateAddress(*sender, tx.Nonce())
		recipient = &created
		result.ContractAddress = &created
	}
	if err := creditAccount(st, diff, *recipient, value, *sender, senderInfo); err != nil {
		return nil, nil, err
	}

	// Tip the beneficiary; the base fee portion is burned.
	if !tx.IsDeposit() {
		tipPerGas := new(big.Int).Set(gasPrice)
		if env.BaseFee != nil {
			tipPerGas.Sub(tipPerGas, env.BaseFee)
		}
		if tipPerGas.Sign() > 0 {
			tip := tipPerGas.Mul(tipPerGas, new(big.Int).SetUint64(gasUsed))
			if err := creditAccount(st, diff, env.Beneficiary, tip, *sender, senderInfo); err != nil {
				return nil, nil, err
			}
		}
	}
	return result, diff, nil
}

// creditAccount adds amount to the account's balance inside the diff,
// reading the current balance from the state or the in-flight diff.
func creditAccount(st state.State, diff *state.StateDiff, addr types.Address, amount *big.Int, sender types.Address, senderInfo *state.AccountInfo) error {
	var info *state.AccountInfo
	if change, ok := diff.Changes[addr]; ok && change.Account != nil {
		info = change.Account.Copy()
	} else if addr == sender {
		info = senderInfo.Copy()
	} else {
		existing, err := st.Basic(addr)
		if err != nil {
			return err
		}
		if existing != nil {
			info = existing
		} else {
			info = state.NewAccountInfo()
		}
	}
	created := info.IsEmpty() && amount.Sign() > 0
	info.Balance = new(big.Int).Add(info.Balance, amount)
	diff.SetAccount(addr, info, created)
	return nil
}

// validateTxForHardfork rejects transaction types before their hardfork.
func validateTxForHardfork(hardfork Hardfork, tx *types.Transaction) error {
	switch tx.Type() {
	case types.AccessListTxType:
		if !hardfork.AtLeast(Berlin) {
			return ErrEip2930Unsupported
		}
	case types.DynamicFeeTxType:
		if !hardfork.HasBaseFee() {
			return ErrEip1559Unsupported
		}
	case types.BlobTxType:
		if !hardfork.HasBlobGas() {
			return ErrBlobTxUnsupported
		}
	case types.SetCodeTxType:
		if !hardfork.AtLeast(Prague) {
			return ErrEip7702Unsupported
		}
	}
	return nil
}

// IntrinsicGas computes the gas a transaction consumes before any
// execution: the base cost, calldata costs, access list costs and create
// surcharges.
func IntrinsicGas(tx *types.Transaction, hardfork Hardfork) (uint64, error) {
	var gas uint64
	creation := tx.To() == nil
	if creation && hardfork.AtLeast(Homestead) {
		gas = TxGasContractCreation
	} else {
		gas = TxGas
	}

	data := tx.Data()
	if len(data) > 0 {
		nonZeroGas := uint64(TxDataNonZeroGas)
		if !hardfork.AtLeast(Istanbul) {
			nonZeroGas = TxDataNonZeroGasOld
		}
		var nonZero uint64
		for _, b := range data {
			if b != 0 {
				nonZero++
			}
		}
		gas += nonZero * nonZeroGas
		gas += (uint64(len(data)) - nonZero) * TxDataZeroGas
	}
	if creation && hardfork.AtLeast(Shanghai) {
		if len(data) > MaxInitCodeSize {
			return 0, errors.New("init code too large")
		}
		words := (uint64(len(data)) + 31) / 32
		gas += words * InitCodeWordGas
	}
	for _, tuple := range tx.AccessList() {
		gas += TxAccessListAddress
		gas += uint64(len(tuple.StorageKeys)) * TxAccessListSlot
	}
	return gas, nil
}
