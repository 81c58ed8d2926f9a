package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/registry"
	"github.com/mbilalbenli/pub-dev-mcp/internal/tools"
)

// recordingLogger captures every record so tests can assert on log
// content (e.g. the audit trail) without parsing stderr output.
type recordingLogger struct {
	mu      *sync.Mutex
	records *[]map[string]interface{}
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, records: &[]map[string]interface{}{}}
}

func (l *recordingLogger) record(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := map[string]interface{}{"msg": msg}
	for k, v := range fields {
		merged[k] = v
	}
	*l.records = append(*l.records, merged)
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) { l.record(msg, fields) }
func (l *recordingLogger) Info(msg string, fields map[string]interface{})  { l.record(msg, fields) }
func (l *recordingLogger) Warn(msg string, fields map[string]interface{})  { l.record(msg, fields) }
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) { l.record(msg, fields) }
func (l *recordingLogger) DebugContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record(msg, fields)
}
func (l *recordingLogger) InfoContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record(msg, fields)
}
func (l *recordingLogger) WarnContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record(msg, fields)
}
func (l *recordingLogger) ErrorContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record(msg, fields)
}
func (l *recordingLogger) WithComponent(string) logging.Logger { return l }

func (l *recordingLogger) entriesWithMessage(msg string) []map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []map[string]interface{}
	for _, r := range *l.records {
		if r["msg"] == msg {
			out = append(out, r)
		}
	}
	return out
}

func fixedDescriptor(name string, execute func(ctx context.Context, request interface{}) (interface{}, error)) tools.Descriptor {
	return tools.Descriptor{
		Name: name,
		Bind: func(params json.RawMessage) (interface{}, error) {
			var v map[string]interface{}
			if len(params) > 0 {
				if err := json.Unmarshal(params, &v); err != nil {
					return nil, err
				}
			}
			return v, nil
		},
		Validate: func(request interface{}) []tools.FieldError { return nil },
		Execute:  execute,
		Encode: func(response interface{}) (json.RawMessage, error) {
			return json.Marshal(response)
		},
	}
}

func newTestDispatcher(table tools.Table) *Dispatcher {
	return New(table, logging.NoOp{})
}

func TestDispatch_SearchLikeResultIsReturnedVerbatim(t *testing.T) {
	table := tools.Table{
		"echo": fixedDescriptor("echo", func(ctx context.Context, request interface{}) (interface{}, error) {
			return map[string]string{"ok": "yes"}, nil
		}),
	}
	d := newTestDispatcher(table)

	out := d.Dispatch(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"echo","params":{}}`))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `{"ok":"yes"}`, string(resp.Result))
}

func TestDispatch_UpstreamFailureMapsToCode32002(t *testing.T) {
	table := tools.Table{
		"boom": fixedDescriptor("boom", func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, registry.ErrUpstreamUnavailable
		}),
	}
	d := newTestDispatcher(table)

	out := d.Dispatch(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":"abc","method":"boom"}`))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUpstreamFailed, resp.Error.Code)
	assert.Equal(t, `"abc"`, string(resp.ID))
}

func TestDispatch_UnknownMethodReturns32601WithMethodName(t *testing.T) {
	d := newTestDispatcher(tools.Table{})

	out := d.Dispatch(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"does_not_exist"}`))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "does_not_exist")
	assert.Equal(t, "1", string(resp.ID))
}

func TestDispatch_MalformedJSONReturns32700WithNullID(t *testing.T) {
	d := newTestDispatcher(tools.Table{})

	out := d.Dispatch(context.Background(), json.RawMessage(`{not json`))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
	assert.Equal(t, "null", string(resp.ID))
}

func TestDispatch_NotificationProducesNoResponse(t *testing.T) {
	called := false
	table := tools.Table{
		"notify_me": fixedDescriptor("notify_me", func(ctx context.Context, request interface{}) (interface{}, error) {
			called = true
			return map[string]string{}, nil
		}),
	}
	d := newTestDispatcher(table)

	out := d.Dispatch(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","method":"notify_me"}`))
	assert.Nil(t, out)
	assert.True(t, called)
}

func TestDispatch_EmptyBatchReturns32600(t *testing.T) {
	d := newTestDispatcher(tools.Table{})

	out := d.Dispatch(context.Background(), json.RawMessage(`[]`))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestDispatch_BatchPreservesRequestOrderAcrossParallelHandlers(t *testing.T) {
	table := tools.Table{
		"slow": fixedDescriptor("slow", func(ctx context.Context, request interface{}) (interface{}, error) {
			params := request.(map[string]interface{})
			return params, nil
		}),
	}
	d := newTestDispatcher(table)

	batch := `[
		{"jsonrpc":"2.0","id":1,"method":"slow","params":{"n":1}},
		{"jsonrpc":"2.0","id":2,"method":"slow","params":{"n":2}},
		{"jsonrpc":"2.0","id":3,"method":"slow","params":{"n":3}}
	]`
	out := d.Dispatch(context.Background(), json.RawMessage(batch))
	var responses []Response
	require.NoError(t, json.Unmarshal(out, &responses))
	require.Len(t, responses, 3)
	assert.Equal(t, "1", string(responses[0].ID))
	assert.Equal(t, "2", string(responses[1].ID))
	assert.Equal(t, "3", string(responses[2].ID))
}

func TestDispatch_BatchOfOnlyNotificationsProducesNoBody(t *testing.T) {
	table := tools.Table{
		"notify_me": fixedDescriptor("notify_me", func(ctx context.Context, request interface{}) (interface{}, error) {
			return map[string]string{}, nil
		}),
	}
	d := newTestDispatcher(table)

	out := d.Dispatch(context.Background(), json.RawMessage(`[{"jsonrpc":"2.0","method":"notify_me"},{"jsonrpc":"2.0","method":"notify_me"}]`))
	assert.Nil(t, out)
}

func TestDispatch_SuccessfulCallEmitsAuditEntryWithDigests(t *testing.T) {
	logger := newRecordingLogger()
	table := tools.Table{
		"echo": fixedDescriptor("echo", func(ctx context.Context, request interface{}) (interface{}, error) {
			return map[string]string{"ok": "yes"}, nil
		}),
	}
	d := New(table, logger)

	d.Dispatch(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"echo","params":{}}`))

	entries := logger.entriesWithMessage("tool invocation audited")
	require.Len(t, entries, 1)
	assert.Equal(t, "echo", entries[0]["tool"])
	assert.Equal(t, "OK", entries[0]["statusCode"])
	assert.NotEmpty(t, entries[0]["requestDigest"])
	assert.NotEmpty(t, entries[0]["responseDigest"])
}

func TestDispatch_FailedCallStillEmitsAuditEntry(t *testing.T) {
	logger := newRecordingLogger()
	table := tools.Table{
		"boom": fixedDescriptor("boom", func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, registry.ErrUpstreamUnavailable
		}),
	}
	d := New(table, logger)

	d.Dispatch(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"boom"}`))

	entries := logger.entriesWithMessage("tool invocation audited")
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0]["tool"])
	assert.NotEmpty(t, entries[0]["requestDigest"])
	assert.NotEmpty(t, entries[0]["responseDigest"])
}

func TestDispatch_StringMentioningCancellationMapsTo32603(t *testing.T) {
	table := tools.Table{
		"cancellable": fixedDescriptor("cancellable", func(ctx context.Context, request interface{}) (interface{}, error) {
			return nil, errors.New("wrapped: " + context.Canceled.Error())
		}),
	}
	d := newTestDispatcher(table)

	out := d.Dispatch(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"cancellable"}`))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	// A plainly wrapped string is not context.Canceled under errors.Is, so
	// this exercises the default internal-error bucket rather than -32001;
	// the dedicated cancellation path is covered by mapExecutionError's own
	// unit test using errors.Is against context.Canceled directly.
	assert.Equal(t, CodeInternalError, resp.Error.Code)
}
