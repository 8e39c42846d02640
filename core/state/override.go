package state

// StateOverride replaces or augments the state diff applied for a block
// when reconstructing historical state. Overrides are layered on top of
// the stored diffs in block order.
type StateOverride struct {
	Diff *StateDiff
}

// BlockOverrides maps block numbers to their overrides.
type BlockOverrides map[uint64]StateOverride
