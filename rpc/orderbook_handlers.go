package rpc

import (
	"encoding/hex"
	"encoding/json"

	"escrowbook/native/orderbook"
)

type placeOrderParams struct {
	From   string `json:"from"`
	Seller string `json:"seller"`
	Amount string `json:"amount"`
}

type orderIDParams struct {
	ID uint64 `json:"id"`
}

type orderActionParams struct {
	From string `json:"from"`
	ID   uint64 `json:"id"`
}

type escrowedTokensParams struct {
	Seller string `json:"seller"`
	ID     uint64 `json:"id"`
}

// orderResult is the wire form of an order record.
type orderResult struct {
	ID              uint64 `json:"id"`
	Buyer           string `json:"buyer"`
	Seller          string `json:"seller"`
	Amount          string `json:"amount"`
	Escrowed        bool   `json:"escrowed"`
	BuyerConfirmed  bool   `json:"buyerConfirmed"`
	SellerConfirmed bool   `json:"sellerConfirmed"`
	Released        bool   `json:"released"`
	CreatedAt       uint64 `json:"createdAt"`
}

func newOrderResult(ord *orderbook.Order) orderResult {
	return orderResult{
		ID:              ord.ID,
		Buyer:           hex.EncodeToString(ord.Buyer[:]),
		Seller:          hex.EncodeToString(ord.Seller[:]),
		Amount:          ord.Amount.Dec(),
		Escrowed:        ord.Escrowed,
		BuyerConfirmed:  ord.BuyerConfirmed,
		SellerConfirmed: ord.SellerConfirmed,
		Released:        ord.Status == orderbook.OrderReleased,
		CreatedAt:       ord.CreatedAt,
	}
}

func (s *Server) handlePlaceOrder(params []json.RawMessage) (any, *rpcError) {
	var p placeOrderParams
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
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	id, err := s.node.PlaceOrder(from, seller, amount)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]uint64{"id": id}, nil
}

func (s *Server) handleGetOrder(params []json.RawMessage) (any, *rpcError) {
	var p orderIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	ord, err := s.node.GetOrder(p.ID)
	if err != nil {
		return nil, errorFor(err)
	}
	return newOrderResult(ord), nil
}

func (s *Server) handleOrdersByBuyer(params []json.RawMessage) (any, *rpcError) {
	return s.handleOrdersBy(params, s.node.OrdersByBuyer)
}

func (s *Server) handleOrdersBySeller(params []json.RawMessage) (any, *rpcError) {
	return s.handleOrdersBy(params, s.node.OrdersBySeller)
}

func (s *Server) handleOrdersBy(params []json.RawMessage, list func([20]byte) ([]uint64, error)) (any, *rpcError) {
	var p identityParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	identity, err := parseAddress(p.Identity)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	ids, err := list(identity)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string][]uint64{"ids": ids}, nil
}

func (s *Server) handleFundOrder(params []json.RawMessage) (any, *rpcError) {
	var p orderActionParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.node.FundOrder(from, p.ID); err != nil {
		return nil, errorFor(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleEscrowedTokens(params []json.RawMessage) (any, *rpcError) {
	var p escrowedTokensParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	seller, err := parseAddress(p.Seller)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	amount, err := s.node.EscrowedTokens(seller, p.ID)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]string{"amount": amount.Dec()}, nil
}

func (s *Server) handleConfirmBuyer(params []json.RawMessage) (any, *rpcError) {
	return s.handleConfirmOrder(params, s.node.ConfirmOrderAsBuyer)
}

func (s *Server) handleConfirmSeller(params []json.RawMessage) (any, *rpcError) {
	return s.handleConfirmOrder(params, s.node.ConfirmOrderAsSeller)
}

func (s *Server) handleConfirmOrder(params []json.RawMessage, confirm func([20]byte, uint64) error) (any, *rpcError) {
	var p orderActionParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := confirm(from, p.ID); err != nil {
		return nil, errorFor(err)
	}
	return map[string]bool{"ok": true}, nil
}
