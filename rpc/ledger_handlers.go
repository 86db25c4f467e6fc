package rpc

import "encoding/json"

type fundAccountParams struct {
	Identity string `json:"identity"`
	Value    string `json:"value"`
}

type setEscrowFeeParams struct {
	From    string `json:"from"`
	FeeRate uint32 `json:"feeRate"`
}

type identityParams struct {
	Identity string `json:"identity"`
}

func (s *Server) handleFundAccount(params []json.RawMessage) (any, *rpcError) {
	var p fundAccountParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	identity, err := parseAddress(p.Identity)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.node.FundAccount(identity, value); err != nil {
		return nil, errorFor(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleSetEscrowFee(params []json.RawMessage) (any, *rpcError) {
	var p setEscrowFeeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.node.SetEscrowFee(from, p.FeeRate); err != nil {
		return nil, errorFor(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleGetFunds(params []json.RawMessage) (any, *rpcError) {
	var p identityParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	identity, err := parseAddress(p.Identity)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	funds, err := s.node.GetFunds(identity)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]string{"funds": funds.Dec()}, nil
}

func (s *Server) handleGetFee(params []json.RawMessage) (any, *rpcError) {
	var p identityParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	identity, err := parseAddress(p.Identity)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	fee, err := s.node.GetFee(identity)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]uint32{"feeRate": fee}, nil
}
