package types

// Log is an event emitted by a transaction. Address, Topics and Data are
// the consensus fields covered by the receipt encoding; the rest locate
// the log within the chain and are filled in when the block is known.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte

	BlockNumber uint64
	TxHash      Hash
	TxIndex     uint
	BlockHash   Hash
	LogIndex    uint
	Removed     bool
}

// logWire is the consensus encoding of a log.
type logWire struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

func (l *Log) wire() *logWire {
	return &logWire{Address: l.Address, Topics: l.Topics, Data: l.Data}
}

func logFromWire(w *logWire) *Log {
	return &Log{Address: w.Address, Topics: w.Topics, Data: w.Data}
}

// Copy returns a deep copy of the log.
func (l *Log) Copy() *Log {
	cpy := *l
	cpy.Topics = make([]Hash, len(l.Topics))
	copy(cpy.Topics, l.Topics)
	cpy.Data = copyBytes(l.Data)
	return &cpy
}
