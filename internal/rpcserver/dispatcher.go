package rpcserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/observability"
	"github.com/mbilalbenli/pub-dev-mcp/internal/tools"
)

// Dispatcher implements spec.md §4.6: parse -> validate envelope ->
// lookup descriptor -> bind/validate params -> execute -> shape
// response. One Dispatcher is built once at startup over the static
// tools.Table and shared by every transport.
type Dispatcher struct {
	table   tools.Table
	logger  logging.Logger
	metrics *observability.Metrics
}

// New builds a Dispatcher over table. logger may be logging.NoOp{}.
func New(table tools.Table, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &Dispatcher{table: table, logger: logger.WithComponent("rpc")}
}

// WithMetrics attaches the instrument set every tool invocation reports
// to. Safe to leave unset: RecordInvocation on a nil *Metrics is a no-op.
func (d *Dispatcher) WithMetrics(metrics *observability.Metrics) *Dispatcher {
	d.metrics = metrics
	return d
}

// Dispatch runs one JSON-RPC request/batch cycle over raw bytes and
// returns the raw response body to write back, or nil when nothing
// should be written (every request in the batch was a notification).
func (d *Dispatcher) Dispatch(ctx context.Context, raw json.RawMessage) json.RawMessage {
	trimmed := skipLeadingSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return d.dispatchBatch(ctx, trimmed)
	}
	return d.dispatchSingle(ctx, trimmed)
}

func (d *Dispatcher) dispatchSingle(ctx context.Context, raw json.RawMessage) json.RawMessage {
	resp, emit := d.handleOne(ctx, raw)
	if !emit {
		return nil
	}
	body, err := json.Marshal(resp)
	if err != nil {
		body, _ = json.Marshal(errorResponse(nullID, CodeInternalError, "failed to encode response", nil))
	}
	return body
}

func (d *Dispatcher) dispatchBatch(ctx context.Context, raw json.RawMessage) json.RawMessage {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		body, _ := json.Marshal(errorResponse(nullID, CodeParseError, "parse error", nil))
		return body
	}
	if len(elements) == 0 {
		body, _ := json.Marshal(errorResponse(nullID, CodeInvalidRequest, "invalid request: empty batch", nil))
		return body
	}

	// Handlers may run in parallel, but the batch response must preserve
	// request order (spec.md §5), so each slot is written by index
	// rather than appended as completions arrive.
	responses := make([]*Response, len(elements))
	var wg sync.WaitGroup
	for i, element := range elements {
		wg.Add(1)
		go func(i int, element json.RawMessage) {
			defer wg.Done()
			resp, emit := d.handleOne(ctx, element)
			if emit {
				responses[i] = &resp
			}
		}(i, element)
	}
	wg.Wait()

	ordered := make([]Response, 0, len(responses))
	for _, r := range responses {
		if r != nil {
			ordered = append(ordered, *r)
		}
	}
	if len(ordered) == 0 {
		return nil
	}
	body, err := json.Marshal(ordered)
	if err != nil {
		body, _ = json.Marshal(errorResponse(nullID, CodeInternalError, "failed to encode batch response", nil))
	}
	return body
}

// handleOne runs the full pipeline for a single request object. The
// second return value is false when the request was a well-formed
// notification and no response should be emitted.
func (d *Dispatcher) handleOne(ctx context.Context, raw json.RawMessage) (Response, bool) {
	req, err := parseRequest(raw)
	if err != nil {
		return errorResponse(nullID, CodeParseError, "parse error", nil), true
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.idOrNull(), CodeInvalidRequest, "invalid request", nil), true
	}

	descriptor, ok := d.table.Lookup(req.Method)
	if !ok {
		if req.IsNotification() {
			return Response{}, false
		}
		return errorResponse(req.idOrNull(), CodeMethodNotFound, "method not found: "+req.Method, nil), true
	}

	requestID := idString(req.ID)
	ctx, span := observability.StartToolSpan(ctx, req.Method, req.Method, requestID)
	start := time.Now()
	status, errCode := observability.StatusOK, (*int)(nil)
	var responsePayload []byte
	defer func() {
		span.Finish(status, errCode)
		d.metrics.RecordInvocation(ctx, req.Method, status, float64(time.Since(start).Microseconds())/1000)
		d.audit(ctx, req.Method, requestID, raw, responsePayload, status)
	}()

	bound, err := descriptor.Bind(req.Params)
	if err != nil {
		status = observability.StatusInvalidArgument
		data := invalidParamsData(err)
		responsePayload, _ = json.Marshal(data)
		if req.IsNotification() {
			return Response{}, false
		}
		code := CodeInvalidParams
		errCode = &code
		return errorResponse(req.idOrNull(), CodeInvalidParams, "invalid params", data), true
	}

	if fieldErrs := descriptor.Validate(bound); len(fieldErrs) > 0 {
		status = observability.StatusInvalidArgument
		data := map[string]interface{}{"errors": fieldErrs}
		responsePayload, _ = json.Marshal(data)
		if req.IsNotification() {
			return Response{}, false
		}
		code := CodeInvalidParams
		errCode = &code
		return errorResponse(req.idOrNull(), CodeInvalidParams, "invalid params", data), true
	}

	result, err := descriptor.Execute(ctx, bound)
	if err != nil {
		code, message, data := mapExecutionError(err)
		errCode = &code
		status = statusForCode(code)
		responsePayload, _ = json.Marshal(map[string]interface{}{"message": message, "data": data})
		d.logger.ErrorContext(ctx, "tool execution failed", map[string]interface{}{
			"method":      req.Method,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		})
		if req.IsNotification() {
			return Response{}, false
		}
		return errorResponse(req.idOrNull(), code, message, data), true
	}

	encoded, err := descriptor.Encode(result)
	if err != nil {
		code := CodeInternalError
		errCode = &code
		status = observability.StatusException
		if req.IsNotification() {
			return Response{}, false
		}
		return errorResponse(req.idOrNull(), CodeInternalError, "failed to encode result", nil), true
	}
	responsePayload = encoded

	d.logger.InfoContext(ctx, "tool executed", map[string]interface{}{
		"method":      req.Method,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if req.IsNotification() {
		return Response{}, false
	}
	return successResponse(req.ID, encoded), true
}

// audit records the tamper-evident digest pair spec.md §4.8 requires for
// every tool invocation, request or notification alike.
func (d *Dispatcher) audit(ctx context.Context, tool, requestID string, request, response []byte, status observability.StatusCode) {
	entry := observability.NewAuditEntry(tool, requestID, request, response, status, time.Now())
	d.logger.InfoContext(ctx, "tool invocation audited", map[string]interface{}{
		"tool":           entry.Tool,
		"requestId":      entry.RequestID,
		"requestDigest":  entry.RequestDigest,
		"responseDigest": entry.ResponseDigest,
		"statusCode":     entry.StatusCode,
		"occurredAt":     entry.OccurredAt,
	})
}

func statusForCode(code int) observability.StatusCode {
	switch code {
	case CodeCancelled:
		return observability.StatusCancelled
	case CodeUpstreamFailed, CodeInternalError:
		return observability.StatusException
	default:
		return observability.StatusError
	}
}

func invalidParamsData(err error) interface{} {
	return map[string]interface{}{"errors": []tools.FieldError{{Field: "params", Message: err.Error()}}}
}

func idString(id json.RawMessage) string {
	if len(id) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(id, &s) == nil {
		return s
	}
	return string(id)
}

func (r Request) idOrNull() json.RawMessage {
	if !r.hasID {
		return nullID
	}
	return r.ID
}

func skipLeadingSpace(raw json.RawMessage) json.RawMessage {
	i := 0
	for i < len(raw) {
		switch raw[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return raw[i:]
}
