package core

import (
	"math/big"
)

// Hardfork identifies a protocol revision. Values are ordered by
// activation history so revisions can be compared with AtLeast.
type Hardfork int

const (
	Frontier Hardfork = iota
	Homestead
	TangerineWhistle
	SpuriousDragon
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	MuirGlacier
	Berlin
	London
	ArrowGlacier
	GrayGlacier
	Merge
	Shanghai
	Cancun
	Prague
)

var hardforkNames = map[Hardfork]string{
	Frontier:         "frontier",
	Homestead:        "homestead",
	TangerineWhistle: "tangerineWhistle",
	SpuriousDragon:   "spuriousDragon",
	Byzantium:        "byzantium",
	Constantinople:   "constantinople",
	Petersburg:       "petersburg",
	Istanbul:         "istanbul",
	MuirGlacier:      "muirGlacier",
	Berlin:           "berlin",
	London:           "london",
	ArrowGlacier:     "arrowGlacier",
	GrayGlacier:      "grayGlacier",
	Merge:            "merge",
	Shanghai:         "shanghai",
	Cancun:           "cancun",
	Prague:           "prague",
}

func (h Hardfork) String() string {
	if name, ok := hardforkNames[h]; ok {
		return name
	}
	return "unknown"
}

// AtLeast reports whether h is at or after other.
func (h Hardfork) AtLeast(other Hardfork) bool { return h >= other }

// HasBaseFee reports whether blocks carry a base fee (EIP-1559).
func (h Hardfork) HasBaseFee() bool { return h.AtLeast(London) }

// HasPrevrandao reports whether headers carry a randomness beacon value in
// the mix-hash slot instead of PoW data.
func (h Hardfork) HasPrevrandao() bool { return h.AtLeast(Merge) }

// HasWithdrawals reports whether blocks carry a withdrawals list.
func (h Hardfork) HasWithdrawals() bool { return h.AtLeast(Shanghai) }

// HasBlobGas reports whether headers carry blob gas accounting fields.
func (h Hardfork) HasBlobGas() bool { return h.AtLeast(Cancun) }

// HasReceiptStatus reports whether receipts carry a status instead of a
// post-state root (EIP-658).
func (h Hardfork) HasReceiptStatus() bool { return h.AtLeast(Byzantium) }

// ChainConfig carries the chain-wide parameters of a blockchain instance.
// A development chain runs a single hardfork for its whole history.
type ChainConfig struct {
	ChainID  *big.Int
	Hardfork Hardfork

	// AllowEqualTimestamp permits a child block to repeat its parent's
	// timestamp. Back-to-back blocks within one wall-clock second need
	// this unless the caller supplies explicit timestamps.
	AllowEqualTimestamp bool
}

// Copy returns a deep copy of the config.
func (c *ChainConfig) Copy() *ChainConfig {
	cpy := *c
	if c.ChainID != nil {
		cpy.ChainID = new(big.Int).Set(c.ChainID)
	}
	return &cpy
}
