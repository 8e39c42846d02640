package types

import "testing"

func TestBloom_AddContains(t *testing.T) {
	var b Bloom
	data := []byte("topic-one")
	if b.Contains(data) {
		t.Fatal("empty bloom contains data")
	}
	b.Add(data)
	if !b.Contains(data) {
		t.Fatal("bloom lost added data")
	}
	if b.Contains([]byte("topic-two")) {
		t.Fatal("bloom matched unrelated data")
	}
}

func TestBloom_LogsBloom(t *testing.T) {
	addr := HexToAddress("0x095e7baea6a6c7c4c2dfeb977efac326af552d87")
	topic := BytesToHash([]byte{0x01})
	log := &Log{Address: addr, Topics: []Hash{topic}}

	bloom := LogsBloom([]*Log{log})
	if !BloomContainsAddress(bloom, addr) {
		t.Fatal("bloom misses the log address")
	}
	if !BloomContainsTopic(bloom, topic) {
		t.Fatal("bloom misses the log topic")
	}
	if BloomContainsTopic(bloom, BytesToHash([]byte{0x02})) {
		t.Fatal("bloom matched an absent topic")
	}
}

func TestBloom_CreateBloomORsReceipts(t *testing.T) {
	addr1 := HexToAddress("0x0000000000000000000000000000000000000001")
	addr2 := HexToAddress("0x0000000000000000000000000000000000000002")
	r1 := &Receipt{Logs: []*Log{{Address: addr1}}}
	r1.Bloom = LogsBloom(r1.Logs)
	r2 := &Receipt{Logs: []*Log{{Address: addr2}}}
	r2.Bloom = LogsBloom(r2.Logs)

	combined := CreateBloom([]*Receipt{r1, r2})
	if !BloomContainsAddress(combined, addr1) || !BloomContainsAddress(combined, addr2) {
		t.Fatal("combined bloom misses an address")
	}
}
