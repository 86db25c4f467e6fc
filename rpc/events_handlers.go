package rpc

import "encoding/json"

type eventsListParams struct {
	Prefix string `json:"prefix,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type eventResult struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleEventsList(params []json.RawMessage) (any, *rpcError) {
	p := eventsListParams{}
	if len(params) > 0 {
		if rpcErr := decodeParams(params, &p); rpcErr != nil {
			return nil, rpcErr
		}
	}
	entries, err := s.node.Events(p.Prefix, p.Limit)
	if err != nil {
		return nil, errorFor(err)
	}
	results := make([]eventResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, eventResult{
			Sequence:   entry.Sequence,
			Type:       entry.Event.Type,
			Attributes: entry.Event.Attributes,
		})
	}
	return map[string][]eventResult{"events": results}, nil
}
