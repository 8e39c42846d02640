package types

// Withdrawal is a validator withdrawal pushed by the consensus layer
// (EIP-4895). Amount is denominated in gwei.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        Address
	Amount         uint64
}

// Withdrawals is an ordered list of withdrawals.
type Withdrawals []*Withdrawal

// Copy returns a deep copy of the withdrawal.
func (w *Withdrawal) Copy() *Withdrawal {
	cpy := *w
	return &cpy
}
