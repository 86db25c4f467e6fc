package rpc

import (
	"encoding/hex"
	"encoding/json"

	"escrowbook/native/custody"
)

type createTransactionParams struct {
	From   string `json:"from"`
	Seller string `json:"seller"`
	Agent  string `json:"escrowAgent"`
	Notes  string `json:"notes"`
	Value  string `json:"value"`
}

type transactionCountParams struct {
	Identity string `json:"identity"`
	Role     uint8  `json:"role"`
}

type transactionByRoleParams struct {
	Identity string `json:"identity"`
	Role     uint8  `json:"role"`
	Index    uint64 `json:"index"`
}

type transactionActionParams struct {
	From string `json:"from"`
	ID   uint64 `json:"id"`
}

// transactionResult is the wire form of a canonical transaction record as
// seen from one role's view.
type transactionResult struct {
	ID              uint64 `json:"id"`
	Buyer           string `json:"buyer"`
	Seller          string `json:"seller"`
	Agent           string `json:"escrowAgent"`
	Notes           string `json:"notes"`
	Value           string `json:"value"`
	BuyerNonce      uint64 `json:"buyerNonce"`
	SellerNonce     uint64 `json:"sellerNonce"`
	AgentNonce      uint64 `json:"agentNonce"`
	BuyerConfirmed  bool   `json:"buyerConfirmed"`
	SellerConfirmed bool   `json:"sellerConfirmed"`
	AgentConfirmed  bool   `json:"agentConfirmed"`
	Status          uint8  `json:"status"`
	CreatedAt       uint64 `json:"createdAt"`
}

func newTransactionResult(tx *custody.Transaction) transactionResult {
	return transactionResult{
		ID:              tx.ID,
		Buyer:           hex.EncodeToString(tx.Buyer[:]),
		Seller:          hex.EncodeToString(tx.Seller[:]),
		Agent:           hex.EncodeToString(tx.Agent[:]),
		Notes:           hex.EncodeToString(tx.Notes[:]),
		Value:           tx.Value.Dec(),
		BuyerNonce:      tx.BuyerNonce,
		SellerNonce:     tx.SellerNonce,
		AgentNonce:      tx.AgentNonce,
		BuyerConfirmed:  tx.BuyerConfirmed,
		SellerConfirmed: tx.SellerConfirmed,
		AgentConfirmed:  tx.AgentConfirmed,
		Status:          uint8(tx.Status),
		CreatedAt:       tx.CreatedAt,
	}
}

func (s *Server) handleCreateTransaction(params []json.RawMessage) (any, *rpcError) {
	var p createTransactionParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	seller, err := parseAddress(p.Seller)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	agent, err := parseAddress(p.Agent)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	notes, err := parseNotes(p.Notes)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	tx, err := s.node.CreateTransaction(from, seller, agent, notes, value)
	if err != nil {
		return nil, errorFor(err)
	}
	return newTransactionResult(tx), nil
}

func (s *Server) handleTransactionCount(params []json.RawMessage) (any, *rpcError) {
	var p transactionCountParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	identity, err := parseAddress(p.Identity)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	count, err := s.node.TransactionCount(identity, custody.Role(p.Role))
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]uint64{"count": count}, nil
}

func (s *Server) handleTransactionByRole(params []json.RawMessage) (any, *rpcError) {
	var p transactionByRoleParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	identity, err := parseAddress(p.Identity)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	tx, err := s.node.TransactionByRole(identity, custody.Role(p.Role), p.Index)
	if err != nil {
		return nil, errorFor(err)
	}
	return newTransactionResult(tx), nil
}

func (s *Server) handleConfirmTransaction(params []json.RawMessage) (any, *rpcError) {
	return s.handleTransactionAction(params, s.node.ConfirmTransaction)
}

func (s *Server) handleRefundTransaction(params []json.RawMessage) (any, *rpcError) {
	return s.handleTransactionAction(params, s.node.RefundTransaction)
}

func (s *Server) handleTransactionAction(params []json.RawMessage, action func([20]byte, uint64) error) (any, *rpcError) {
	var p transactionActionParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := action(from, p.ID); err != nil {
		return nil, errorFor(err)
	}
	return map[string]bool{"ok": true}, nil
}
