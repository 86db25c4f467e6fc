package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"escrowbook/core"
	"escrowbook/core/types"
	"escrowbook/storage"
)

const testToken = "secret-token"

func hexAddr(fill byte) string {
	return strings.Repeat(fmt.Sprintf("%02x", fill), len(types.Address{}))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	var collector types.Address
	collector[0] = 0xFE
	node := core.NewNode(storage.NewMemDB(), collector)
	srv := NewServer(node, testToken, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = node.Close() })
	return ts
}

func call(t *testing.T, ts *httptest.Server, token, method string, params any) rpcResponse {
	t.Helper()
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []any{params},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func result(t *testing.T, resp rpcResponse) map[string]any {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected rpc error: %+v", resp.Error)
	out, ok := resp.Result.(map[string]any)
	require.True(t, ok, "result is not an object: %+v", resp.Result)
	return out
}

func TestHandleRPCRejectsUnknownMethod(t *testing.T) {
	ts := newTestServer(t)
	resp := call(t, ts, "", "ledger_unknown", map[string]any{})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestHandleRPCRejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)
	resp := call(t, ts, "", "ledger_fundAccount", map[string]any{
		"identity": hexAddr(0x01),
		"value":    "5",
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = call(t, ts, "wrong-token", "ledger_fundAccount", map[string]any{
		"identity": hexAddr(0x01),
		"value":    "5",
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestHandleRPCRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Post(ts.URL+"/", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotNil(t, decoded.Error)
	require.Equal(t, codeParseError, decoded.Error.Code)
}

func TestLedgerMethods(t *testing.T) {
	ts := newTestServer(t)
	identity := hexAddr(0x01)

	out := result(t, call(t, ts, testToken, "ledger_fundAccount", map[string]any{
		"identity": identity,
		"value":    "7",
	}))
	require.Equal(t, true, out["ok"])

	out = result(t, call(t, ts, "", "ledger_getFunds", map[string]any{"identity": identity}))
	require.Equal(t, "7", out["funds"])

	out = result(t, call(t, ts, testToken, "ledger_setEscrowFee", map[string]any{
		"from":    identity,
		"feeRate": 12,
	}))
	require.Equal(t, true, out["ok"])

	out = result(t, call(t, ts, "", "ledger_getFee", map[string]any{"identity": identity}))
	require.Equal(t, float64(12), out["feeRate"])

	resp := call(t, ts, testToken, "ledger_setEscrowFee", map[string]any{
		"from":    identity,
		"feeRate": 101,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestOrderLifecycleOverRPC(t *testing.T) {
	ts := newTestServer(t)
	buyer, seller := hexAddr(0x01), hexAddr(0x02)

	result(t, call(t, ts, testToken, "ledger_fundAccount", map[string]any{
		"identity": buyer,
		"value":    "100",
	}))
	result(t, call(t, ts, testToken, "ledger_setEscrowFee", map[string]any{
		"from":    seller,
		"feeRate": 10,
	}))

	out := result(t, call(t, ts, testToken, "orderbook_place", map[string]any{
		"from":   buyer,
		"seller": seller,
		"amount": "100",
	}))
	require.Equal(t, float64(0), out["id"])

	result(t, call(t, ts, testToken, "orderbook_fund", map[string]any{
		"from": buyer,
		"id":   0,
	}))
	out = result(t, call(t, ts, "", "orderbook_escrowedTokens", map[string]any{
		"seller": seller,
		"id":     0,
	}))
	require.Equal(t, "100", out["amount"])

	result(t, call(t, ts, testToken, "orderbook_confirmBuyer", map[string]any{"from": buyer, "id": 0}))
	result(t, call(t, ts, testToken, "orderbook_confirmSeller", map[string]any{"from": seller, "id": 0}))

	out = result(t, call(t, ts, "", "orderbook_get", map[string]any{"id": 0}))
	require.Equal(t, true, out["released"])
	require.Equal(t, buyer, out["buyer"])
	require.Equal(t, seller, out["seller"])

	out = result(t, call(t, ts, "", "ledger_getFunds", map[string]any{"identity": seller}))
	require.Equal(t, "90", out["funds"])

	out = result(t, call(t, ts, "", "orderbook_byBuyer", map[string]any{"identity": buyer}))
	require.Equal(t, []any{float64(0)}, out["ids"])
}

func TestOrderGetNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp := call(t, ts, "", "orderbook_get", map[string]any{"id": 42})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNotFound, resp.Error.Code)
}

func TestCustodyLifecycleOverRPC(t *testing.T) {
	ts := newTestServer(t)
	buyer, seller, agent := hexAddr(0x01), hexAddr(0x02), hexAddr(0x03)

	out := result(t, call(t, ts, testToken, "custody_create", map[string]any{
		"from":        buyer,
		"seller":      seller,
		"escrowAgent": agent,
		"notes":       "0xdeadbeef",
		"value":       "40",
	}))
	require.Equal(t, float64(0), out["id"])
	require.Equal(t, buyer, out["buyer"])
	require.Equal(t, "40", out["value"])

	out = result(t, call(t, ts, "", "custody_count", map[string]any{
		"identity": agent,
		"role":     2,
	}))
	require.Equal(t, float64(1), out["count"])

	out = result(t, call(t, ts, "", "custody_get", map[string]any{
		"identity": seller,
		"role":     1,
		"index":    0,
	}))
	require.Equal(t, float64(0), out["id"])

	result(t, call(t, ts, testToken, "custody_confirm", map[string]any{"from": agent, "id": 0}))
	result(t, call(t, ts, testToken, "custody_confirm", map[string]any{"from": buyer, "id": 0}))

	out = result(t, call(t, ts, "", "ledger_getFunds", map[string]any{"identity": seller}))
	require.Equal(t, "40", out["funds"])
}

func TestEventsList(t *testing.T) {
	ts := newTestServer(t)
	identity := hexAddr(0x01)

	result(t, call(t, ts, testToken, "ledger_fundAccount", map[string]any{
		"identity": identity,
		"value":    "3",
	}))

	out := result(t, call(t, ts, "", "events_list", map[string]any{"prefix": "ledger."}))
	events, ok := out["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 1)
	first, ok := events[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "ledger.deposit", first["type"])
}

func TestInvalidAddressRejected(t *testing.T) {
	ts := newTestServer(t)
	resp := call(t, ts, "", "ledger_getFunds", map[string]any{"identity": "nothex"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
