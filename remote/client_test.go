package remote

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/NomicFoundation/edr-sub004/core/types"
	"github.com/NomicFoundation/edr-sub004/crypto"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeNode is a canned JSON-RPC endpoint. Handlers return a result or an
// error body; failures counts down HTTP 503 responses before any handler
// runs.
type fakeNode struct {
	mu       sync.Mutex
	calls    map[string]int
	failures int
	handlers map[string]func(params []json.RawMessage) (any, *rpcErrorBody)
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		calls:    make(map[string]int),
		handlers: make(map[string]func(params []json.RawMessage) (any, *rpcErrorBody)),
	}
}

func (n *fakeNode) handle(method string, result any) {
	n.handlers[method] = func([]json.RawMessage) (any, *rpcErrorBody) {
		return result, nil
	}
}

func (n *fakeNode) callCount(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	if n.failures > 0 {
		n.failures--
		n.mu.Unlock()
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	n.mu.Unlock()

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n.mu.Lock()
	n.calls[req.Method]++
	handler := n.handlers[req.Method]
	n.mu.Unlock()

	response := map[string]any{"jsonrpc": "2.0", "id": json.RawMessage(req.ID)}
	if handler == nil {
		response["error"] = &rpcErrorBody{Code: -32601, Message: "method not found"}
	} else if result, rpcErr := handler(req.Params); rpcErr != nil {
		response["error"] = rpcErr
	} else {
		response["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func dialFakeNode(t *testing.T, node *fakeNode, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)
	cfg.URL = server.URL
	client, err := Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestClient_CachesRepeatedCalls(t *testing.T) {
	node := newFakeNode()
	node.handle("eth_chainId", "0x7b")
	client := dialFakeNode(t, node, Config{})

	for i := 0; i < 3; i++ {
		id, err := client.ChainID(context.Background())
		if err != nil {
			t.Fatalf("chain id: %v", err)
		}
		if id.Int64() != 123 {
			t.Fatalf("chain id: %v", id)
		}
	}
	if node.callCount("eth_chainId") != 1 {
		t.Fatalf("eth_chainId served %d times", node.callCount("eth_chainId"))
	}
}

func TestClient_HeadIsNeverCached(t *testing.T) {
	node := newFakeNode()
	node.handle("eth_blockNumber", "0x64")
	client := dialFakeNode(t, node, Config{})

	for i := 0; i < 2; i++ {
		head, err := client.BlockNumber(context.Background())
		if err != nil || head != 100 {
			t.Fatalf("head: %d, %v", head, err)
		}
	}
	if node.callCount("eth_blockNumber") != 2 {
		t.Fatalf("eth_blockNumber served %d times", node.callCount("eth_blockNumber"))
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	node := newFakeNode()
	node.failures = 2
	node.handle("eth_chainId", "0x1")
	client := dialFakeNode(t, node, Config{MaxRetries: 4})

	id, err := client.ChainID(context.Background())
	if err != nil {
		t.Fatalf("chain id after retries: %v", err)
	}
	if id.Int64() != 1 {
		t.Fatalf("chain id: %v", id)
	}
	if node.callCount("eth_chainId") != 1 {
		t.Fatalf("handler reached %d times", node.callCount("eth_chainId"))
	}
}

func TestClient_MethodErrorsArePermanent(t *testing.T) {
	node := newFakeNode()
	node.handlers["eth_getBalance"] = func([]json.RawMessage) (any, *rpcErrorBody) {
		return nil, &rpcErrorBody{Code: -32000, Message: "header not found"}
	}
	client := dialFakeNode(t, node, Config{ForceCaching: true, MaxRetries: 4})

	_, err := client.Balance(context.Background(), types.Address{}, 1)
	var methodErr *MethodError
	if !errors.As(err, &methodErr) {
		t.Fatalf("expected method error, got %v", err)
	}
	if methodErr.Code != -32000 || methodErr.Method != "eth_getBalance" {
		t.Fatalf("error detail: %+v", methodErr)
	}
	if node.callCount("eth_getBalance") != 1 {
		t.Fatalf("method error retried: %d calls", node.callCount("eth_getBalance"))
	}
}

func TestClient_NullResultIsNotFound(t *testing.T) {
	node := newFakeNode()
	node.handle("eth_getTransactionByHash", nil)
	client := dialFakeNode(t, node, Config{})

	_, err := client.TransactionByHash(context.Background(), types.Hash{0x01})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClient_IsCacheableBlockNumber(t *testing.T) {
	node := newFakeNode()
	node.handle("eth_blockNumber", "0x3e8") // head 1000
	client := dialFakeNode(t, node, Config{})

	cacheable, err := client.IsCacheableBlockNumber(context.Background(), 1000-DefaultSafetyMargin)
	if err != nil || !cacheable {
		t.Fatalf("deep block: %v, %v", cacheable, err)
	}
	cacheable, err = client.IsCacheableBlockNumber(context.Background(), 1000-DefaultSafetyMargin+1)
	if err != nil || cacheable {
		t.Fatalf("near-head block: %v, %v", cacheable, err)
	}

	// The observed head answers later queries without another round-trip.
	fetches := node.callCount("eth_blockNumber")
	if _, err := client.IsCacheableBlockNumber(context.Background(), 1); err != nil {
		t.Fatalf("cached head: %v", err)
	}
	if node.callCount("eth_blockNumber") != fetches {
		t.Fatal("head refetched despite a known answer")
	}

	forced := dialFakeNode(t, newFakeNode(), Config{ForceCaching: true})
	cacheable, err = forced.IsCacheableBlockNumber(context.Background(), 1<<62)
	if err != nil || !cacheable {
		t.Fatalf("forced caching: %v, %v", cacheable, err)
	}
}

func TestClient_AccountInfo(t *testing.T) {
	addr := types.HexToAddress("0x000000000000000000000000000000000000beef")
	code := []byte{0x60, 0x01}
	node := newFakeNode()
	node.handle("eth_getBalance", "0xde0b6b3a7640000")
	node.handle("eth_getTransactionCount", "0x5")
	node.handle("eth_getCode", "0x6001")
	client := dialFakeNode(t, node, Config{ForceCaching: true})

	info, err := client.AccountInfo(context.Background(), addr, 10)
	if err != nil {
		t.Fatalf("account info: %v", err)
	}
	if info == nil || info.Balance.String() != "1000000000000000000" || info.Nonce != 5 {
		t.Fatalf("account: %+v", info)
	}
	if info.CodeHash != crypto.Keccak256Hash(code) {
		t.Fatalf("code hash: %s", info.CodeHash)
	}

	empty := newFakeNode()
	empty.handle("eth_getBalance", "0x0")
	empty.handle("eth_getTransactionCount", "0x0")
	empty.handle("eth_getCode", "0x")
	absentClient := dialFakeNode(t, empty, Config{ForceCaching: true})
	info, err = absentClient.AccountInfo(context.Background(), addr, 10)
	if err != nil {
		t.Fatalf("absent account: %v", err)
	}
	if info != nil {
		t.Fatalf("expected absent account, got %+v", info)
	}
}

func TestClient_StorageAt(t *testing.T) {
	node := newFakeNode()
	node.handle("eth_getStorageAt", "0x"+strings.Repeat("0", 62)+"2a")
	client := dialFakeNode(t, node, Config{ForceCaching: true})

	source := NewStateSource(context.Background(), client, 10)
	value, err := source.StorageSlot(types.Address{}, types.Hash{0x01})
	if err != nil {
		t.Fatalf("storage slot: %v", err)
	}
	if value.Uint64() != 42 {
		t.Fatalf("slot value: %v", value)
	}
}

// wireBlock builds a minimal but well-formed eth_getBlockByNumber result.
func wireBlock(number uint64, totalDifficulty string) map[string]any {
	zeroHash := "0x" + strings.Repeat("0", 64)
	block := map[string]any{
		"number":           hexUint(number),
		"hash":             "0x" + strings.Repeat("11", 32),
		"parentHash":       zeroHash,
		"sha3Uncles":       zeroHash,
		"miner":            "0x" + strings.Repeat("0", 40),
		"stateRoot":        zeroHash,
		"transactionsRoot": zeroHash,
		"receiptsRoot":     zeroHash,
		"logsBloom":        "0x" + strings.Repeat("0", 512),
		"difficulty":       "0x0",
		"extraData":        "0x",
		"gasLimit":         "0x1c9c380",
		"gasUsed":          "0x0",
		"timestamp":        "0x64",
		"mixHash":          zeroHash,
		"nonce":            "0x0000000000000000",
		"baseFeePerGas":    "0x3b9aca00",
		"transactions":     []any{},
		"uncles":           []any{},
	}
	if totalDifficulty != "" {
		block["totalDifficulty"] = totalDifficulty
	}
	return block
}

func hexUint(v uint64) string {
	return "0x" + new(big.Int).SetUint64(v).Text(16)
}

func TestChainReader_ConvertsWireBlocks(t *testing.T) {
	node := newFakeNode()
	node.handle("eth_getBlockByNumber", wireBlock(7, "0x10"))
	client := dialFakeNode(t, node, Config{ForceCaching: true})
	reader := NewChainReader(client)

	block, td, err := reader.BlockByNumber(context.Background(), 7)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if block == nil || block.NumberU64() != 7 {
		t.Fatalf("converted block: %+v", block)
	}
	if block.Header().BaseFee.Int64() != 1_000_000_000 {
		t.Fatalf("base fee: %v", block.Header().BaseFee)
	}
	if td == nil || td.Int64() != 16 {
		t.Fatalf("total difficulty: %v", td)
	}
}

func TestChainReader_TTDFallback(t *testing.T) {
	node := newFakeNode()
	node.handle("eth_getBlockByNumber", wireBlock(7, ""))
	client := dialFakeNode(t, node, Config{ForceCaching: true})

	reader := NewChainReader(client)
	_, td, err := reader.BlockByNumber(context.Background(), 7)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if td != nil {
		t.Fatalf("difficulty invented without the fallback: %v", td)
	}

	// A fresh client avoids the cached response from the first read.
	fallbackClient := dialFakeNode(t, node, Config{ForceCaching: true})
	fallback := NewChainReader(fallbackClient)
	fallback.FallbackToTTD = true
	_, td, err = fallback.BlockByNumber(context.Background(), 7)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if td == nil || td.Cmp(TerminalTotalDifficulty) != 0 {
		t.Fatalf("fallback difficulty: %v", td)
	}
}

func TestChainReader_UnknownBlock(t *testing.T) {
	node := newFakeNode()
	node.handle("eth_getBlockByNumber", nil)
	node.handle("eth_getTransactionByHash", nil)
	node.handle("eth_getTransactionReceipt", nil)
	client := dialFakeNode(t, node, Config{ForceCaching: true})
	reader := NewChainReader(client)

	block, td, err := reader.BlockByNumber(context.Background(), 99)
	if err != nil || block != nil || td != nil {
		t.Fatalf("unknown block: %v, %v, %v", block, td, err)
	}
	hash, err := reader.BlockHashByTransactionHash(context.Background(), types.Hash{0x01})
	if err != nil || !hash.IsZero() {
		t.Fatalf("unknown transaction: %s, %v", hash, err)
	}
	receipt, err := reader.ReceiptByTransactionHash(context.Background(), types.Hash{0x01})
	if err != nil || receipt != nil {
		t.Fatalf("unknown receipt: %v, %v", receipt, err)
	}
}

func TestReceipt_WireConversion(t *testing.T) {
	raw := `{
		"transactionHash": "0x` + strings.Repeat("22", 32) + `",
		"transactionIndex": "0x1",
		"blockHash": "0x` + strings.Repeat("33", 32) + `",
		"blockNumber": "0xa",
		"from": "0x` + strings.Repeat("0", 40) + `",
		"cumulativeGasUsed": "0x5208",
		"gasUsed": "0x5208",
		"effectiveGasPrice": "0x3b9aca00",
		"logs": [{
			"address": "0x` + strings.Repeat("aa", 20) + `",
			"topics": ["0x` + strings.Repeat("bb", 32) + `"],
			"data": "0x01",
			"blockNumber": "0xa",
			"logIndex": "0x0"
		}],
		"logsBloom": "0x` + strings.Repeat("0", 512) + `",
		"type": "0x2",
		"status": "0x1"
	}`
	var wire Receipt
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	receipt := wire.ToReceipt()
	if receipt.Type != types.DynamicFeeTxType || receipt.Status != types.ReceiptStatusSuccessful {
		t.Fatalf("receipt: %+v", receipt)
	}
	if receipt.GasUsed != 21000 || receipt.BlockNumber != 10 {
		t.Fatalf("receipt fields: %+v", receipt)
	}
	if len(receipt.Logs) != 1 || receipt.Logs[0].LogIndex != 0 || len(receipt.Logs[0].Data) != 1 {
		t.Fatalf("logs: %+v", receipt.Logs)
	}
}

func TestTransaction_WireConversion(t *testing.T) {
	to := "0x" + strings.Repeat("44", 20)
	raw := `{
		"hash": "0x` + strings.Repeat("55", 32) + `",
		"nonce": "0x2",
		"from": "0x` + strings.Repeat("66", 20) + `",
		"to": "` + to + `",
		"value": "0x1",
		"gas": "0x5208",
		"maxFeePerGas": "0x3b9aca00",
		"maxPriorityFeePerGas": "0x1",
		"input": "0x",
		"type": "0x2",
		"chainId": "0x1",
		"accessList": [],
		"v": "0x1",
		"r": "0x2",
		"s": "0x3"
	}`
	var wire Transaction
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tx, err := wire.ToTransaction()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if tx.Type() != types.DynamicFeeTxType || tx.Nonce() != 2 || tx.Gas() != 21000 {
		t.Fatalf("transaction: type %d nonce %d gas %d", tx.Type(), tx.Nonce(), tx.Gas())
	}
	if tx.To() == nil || tx.To().Hex() != to {
		t.Fatalf("recipient: %v", tx.To())
	}
	sender := tx.Sender()
	if sender == nil || sender.Hex() != "0x"+strings.Repeat("66", 20) {
		t.Fatalf("pinned sender: %v", sender)
	}
}
