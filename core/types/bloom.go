package types

// Bloom filter over log addresses and topics, per the yellow paper M3:2048
// function: three bits set per input, selected by 11-bit slices of the
// first six bytes of the keccak256 hash.

// SetBytes sets the bloom to the value of b, left-padded with zeros.
func (b *Bloom) SetBytes(d []byte) {
	if len(d) > BloomLength {
		d = d[len(d)-BloomLength:]
	}
	*b = Bloom{}
	copy(b[BloomLength-len(d):], d)
}

// Bytes returns the bloom as a byte slice.
func (b Bloom) Bytes() []byte { return b[:] }

// Add sets the bits of the bloom for the given data.
func (b *Bloom) Add(data []byte) {
	for _, bit := range bloomBits(data) {
		byteIdx := BloomLength - 1 - bit/8
		b[byteIdx] |= 1 << (bit % 8)
	}
}

// Contains reports whether all bits for data are set. False positives are
// possible, false negatives are not.
func (b Bloom) Contains(data []byte) bool {
	for _, bit := range bloomBits(data) {
		byteIdx := BloomLength - 1 - bit/8
		if b[byteIdx]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// Or merges other into b.
func (b *Bloom) Or(other Bloom) {
	for i := range b {
		b[i] |= other[i]
	}
}

// bloomBits returns the three bit positions for data.
func bloomBits(data []byte) [3]uint {
	h := keccak256Hash(data)
	var bits [3]uint
	for i := 0; i < 3; i++ {
		bits[i] = uint(h[2*i+1]) + (uint(h[2*i]&0x07) << 8)
	}
	return bits
}

// LogsBloom computes the combined bloom filter of the given logs.
func LogsBloom(logs []*Log) Bloom {
	var bloom Bloom
	for _, log := range logs {
		bloom.Add(log.Address.Bytes())
		for _, topic := range log.Topics {
			bloom.Add(topic.Bytes())
		}
	}
	return bloom
}

// CreateBloom computes the union bloom of all logs in the receipts.
func CreateBloom(receipts []*Receipt) Bloom {
	var bloom Bloom
	for _, receipt := range receipts {
		bloom.Or(LogsBloom(receipt.Logs))
	}
	return bloom
}

// BloomContainsAddress reports whether the bloom may contain logs from addr.
func BloomContainsAddress(bloom Bloom, addr Address) bool {
	return bloom.Contains(addr.Bytes())
}

// BloomContainsTopic reports whether the bloom may contain logs with topic.
func BloomContainsTopic(bloom Bloom, topic Hash) bool {
	return bloom.Contains(topic.Bytes())
}
