package core

import (
	"github.com/NomicFoundation/edr-sub004/core/types"
)

// FilterCriteria selects logs within an inclusive block range. An empty
// address list matches every address. Topics match positionally: a nil
// entry matches anything, a non-empty entry matches when the log's topic
// at that position is in the set.
type FilterCriteria struct {
	FromBlock uint64
	ToBlock   uint64
	Addresses []types.Address
	Topics    [][]types.Hash
}

// bloomCandidate reports whether a block with the given bloom can contain
// a matching log. False positives are expected; false negatives are not.
func (c *FilterCriteria) bloomCandidate(bloom types.Bloom) bool {
	if len(c.Addresses) > 0 {
		found := false
		for _, addr := range c.Addresses {
			if types.BloomContainsAddress(bloom, addr) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, position := range c.Topics {
		if len(position) == 0 {
			continue
		}
		found := false
		for _, topic := range position {
			if types.BloomContainsTopic(bloom, topic) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// matches reports whether the log satisfies the criteria.
func (c *FilterCriteria) matches(log *types.Log) bool {
	if len(c.Addresses) > 0 {
		found := false
		for _, addr := range c.Addresses {
			if log.Address == addr {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(c.Topics) > len(log.Topics) {
		return false
	}
	for i, position := range c.Topics {
		if len(position) == 0 {
			continue
		}
		found := false
		for _, topic := range position {
			if log.Topics[i] == topic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
