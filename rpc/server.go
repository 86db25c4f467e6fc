package rpc

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"

	"escrowbook/core"
	"escrowbook/core/types"
	"escrowbook/native/custody"
	"escrowbook/native/ledger"
	"escrowbook/native/orderbook"
	"escrowbook/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeNotFound       = -32004
)

// Server exposes the node over JSON-RPC 2.0 on a single POST endpoint, plus
// health and metrics routes. Mutating methods require the configured bearer
// token; the authenticated client names the acting identity per call.
type Server struct {
	node      *core.Node
	authToken string
	metrics   *observability.RPCMetrics
	log       *slog.Logger
}

// NewServer builds an RPC server around the node. An empty authToken
// disables mutating methods entirely.
func NewServer(node *core.Node, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(authToken),
		metrics:   observability.Metrics(),
		log:       logger,
	}
}

// Router returns the HTTP handler tree for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Post("/", s.handleRPC)
	return r
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type handler struct {
	fn           func(params []json.RawMessage) (any, *rpcError)
	authRequired bool
}

func (s *Server) handlers() map[string]handler {
	return map[string]handler{
		"ledger_fundAccount":       {s.handleFundAccount, true},
		"ledger_setEscrowFee":      {s.handleSetEscrowFee, true},
		"ledger_getFunds":          {s.handleGetFunds, false},
		"ledger_getFee":            {s.handleGetFee, false},
		"orderbook_place":          {s.handlePlaceOrder, true},
		"orderbook_get":            {s.handleGetOrder, false},
		"orderbook_byBuyer":        {s.handleOrdersByBuyer, false},
		"orderbook_bySeller":       {s.handleOrdersBySeller, false},
		"orderbook_fund":           {s.handleFundOrder, true},
		"orderbook_escrowedTokens": {s.handleEscrowedTokens, false},
		"orderbook_confirmBuyer":   {s.handleConfirmBuyer, true},
		"orderbook_confirmSeller":  {s.handleConfirmSeller, true},
		"custody_create":           {s.handleCreateTransaction, true},
		"custody_count":            {s.handleTransactionCount, false},
		"custody_get":              {s.handleTransactionByRole, false},
		"custody_confirm":          {s.handleConfirmTransaction, true},
		"custody_refund":           {s.handleRefundTransaction, true},
		"events_list":              {s.handleEventsList, false},
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req rpcRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, nil, "", &rpcError{Code: codeParseError, Message: "invalid JSON payload"})
		return
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		s.writeError(w, req.ID, req.Method, &rpcError{Code: codeInvalidRequest, Message: "invalid JSON-RPC request"})
		return
	}
	h, ok := s.handlers()[req.Method]
	if !ok {
		s.writeError(w, req.ID, req.Method, &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)})
		return
	}
	if h.authRequired && !s.authorized(r) {
		s.writeError(w, req.ID, req.Method, &rpcError{Code: codeUnauthorized, Message: "missing or invalid bearer token"})
		return
	}
	result, rpcErr := h.fn(req.Params)
	if rpcErr != nil {
		s.writeError(w, req.ID, req.Method, rpcErr)
		return
	}
	s.metrics.ObserveRequest(req.Method, "ok")
	s.writeJSON(w, rpcResponse{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

func (s *Server) writeError(w http.ResponseWriter, id json.RawMessage, method string, rpcErr *rpcError) {
	if method != "" {
		s.metrics.ObserveRequest(method, "error")
		s.metrics.ObserveError(method, strconv.Itoa(rpcErr.Code))
	}
	s.log.Warn("rpc request failed", "method", method, "code", rpcErr.Code, "message", rpcErr.Message)
	s.writeJSON(w, rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}

func (s *Server) writeJSON(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// errorFor maps engine sentinels to JSON-RPC error codes, keeping the
// sentinel text as the message so callers can distinguish rejection kinds.
func errorFor(err error) *rpcError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, orderbook.ErrNotFound), errors.Is(err, custody.ErrNotFound):
		return &rpcError{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, orderbook.ErrNotAuthorized), errors.Is(err, custody.ErrNotAuthorized):
		return &rpcError{Code: codeUnauthorized, Message: err.Error()}
	case errors.Is(err, orderbook.ErrSameParty),
		errors.Is(err, orderbook.ErrZeroAmount),
		errors.Is(err, orderbook.ErrAlreadyConfirmed),
		errors.Is(err, orderbook.ErrInsufficientCustody),
		errors.Is(err, orderbook.ErrOverflow),
		errors.Is(err, custody.ErrZeroAmount),
		errors.Is(err, custody.ErrInvalidParticipants),
		errors.Is(err, custody.ErrAlreadyConfirmed),
		errors.Is(err, custody.ErrInvalidRole),
		errors.Is(err, custody.ErrOverflow),
		errors.Is(err, ledger.ErrFeeOutOfRange),
		errors.Is(err, ledger.ErrOverflow):
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	default:
		return &rpcError{Code: codeServerError, Message: err.Error()}
	}
}

func decodeParams(params []json.RawMessage, dst any) *rpcError {
	if len(params) != 1 {
		return &rpcError{Code: codeInvalidParams, Message: "expected exactly one params object"}
	}
	if err := json.Unmarshal(params[0], dst); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("malformed params: %v", err)}
	}
	return nil
}

func parseAddress(value string) (types.Address, error) {
	var addr types.Address
	trimmed := strings.TrimSpace(strings.TrimPrefix(value, "0x"))
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", value, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("address must be %d bytes, got %d", len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

func parseNotes(value string) ([32]byte, error) {
	var notes [32]byte
	trimmed := strings.TrimSpace(strings.TrimPrefix(value, "0x"))
	if trimmed == "" {
		return notes, nil
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return notes, fmt.Errorf("invalid notes %q: %w", value, err)
	}
	if len(raw) > len(notes) {
		return notes, fmt.Errorf("notes must be at most %d bytes, got %d", len(notes), len(raw))
	}
	copy(notes[:], raw)
	return notes, nil
}
