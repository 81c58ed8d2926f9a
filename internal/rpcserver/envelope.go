// Package rpcserver implements C6 from SPEC_FULL.md: the JSON-RPC 2.0
// pipeline that parses a request or batch, validates its envelope, looks
// up a tool descriptor, binds and validates params, executes the
// handler, and shapes a spec-compliant success or error response.
package rpcserver

import "encoding/json"

// Request is one JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`

	// hasID distinguishes "id absent" (-> notification) from "id present
	// but null", which the JSON-RPC spec treats as a valid (if unusual)
	// identified request.
	hasID bool
}

// IsNotification reports whether the request carried no id member at all.
func (r Request) IsNotification() bool { return !r.hasID }

// Response is one JSON-RPC 2.0 response object. Exactly one of Result or
// Error is populated.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

var nullID = json.RawMessage("null")

func successResponse(id json.RawMessage, result json.RawMessage) Response {
	if id == nil {
		id = nullID
	}
	return Response{JSONRPC: "2.0", Result: result, ID: id}
}

func errorResponse(id json.RawMessage, code int, message string, data interface{}) Response {
	if id == nil {
		id = nullID
	}
	return Response{JSONRPC: "2.0", Error: &RPCError{Code: code, Message: message, Data: data}, ID: id}
}

// parseRequest decodes one JSON object into a Request, tracking whether
// "id" was present so notifications can be told apart from id:null
// requests.
func parseRequest(raw json.RawMessage) (Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Request{}, err
	}

	var req Request
	if v, ok := fields["jsonrpc"]; ok {
		_ = json.Unmarshal(v, &req.JSONRPC)
	}
	if v, ok := fields["method"]; ok {
		_ = json.Unmarshal(v, &req.Method)
	}
	if v, ok := fields["params"]; ok {
		req.Params = v
	}
	if v, ok := fields["id"]; ok {
		req.hasID = true
		req.ID = v
	}
	return req, nil
}
