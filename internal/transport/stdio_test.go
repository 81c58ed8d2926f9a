package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/rpcserver"
	"github.com/mbilalbenli/pub-dev-mcp/internal/tools"
)

func echoTable() tools.Table {
	return tools.Table{
		"echo": {
			Name: "echo",
			Bind: func(params json.RawMessage) (interface{}, error) {
				var v map[string]interface{}
				if len(params) > 0 {
					_ = json.Unmarshal(params, &v)
				}
				return v, nil
			},
			Validate: func(interface{}) []tools.FieldError { return nil },
			Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
				return request, nil
			},
			Encode: func(response interface{}) (json.RawMessage, error) {
				return json.Marshal(response)
			},
		},
	}
}

func TestStdioServer_SkipsBlankLinesAndWritesOneResponsePerRequest(t *testing.T) {
	dispatcher := rpcserver.New(echoTable(), logging.NoOp{})
	in := strings.NewReader("\n{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"echo\",\"params\":{\"a\":1}}\n\n")
	var out bytes.Buffer

	s := NewStdioServer(dispatcher, logging.NoOp{}, in, &out)
	require.NoError(t, s.Serve(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"id":1`)
}

func TestStdioServer_HandleLineAssignsATraceCorrelator(t *testing.T) {
	var seenCorrelator string
	table := tools.Table{
		"echo": {
			Name:     "echo",
			Bind:     func(json.RawMessage) (interface{}, error) { return nil, nil },
			Validate: func(interface{}) []tools.FieldError { return nil },
			Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
				seenCorrelator = logging.CorrelatorFrom(ctx)
				return map[string]string{}, nil
			},
			Encode: func(response interface{}) (json.RawMessage, error) { return json.Marshal(response) },
		},
	}
	dispatcher := rpcserver.New(table, logging.NoOp{})
	s := NewStdioServer(dispatcher, logging.NoOp{}, strings.NewReader(""), &bytes.Buffer{})

	s.handleLine(context.Background(), `{"jsonrpc":"2.0","id":1,"method":"echo"}`)

	assert.NotEmpty(t, seenCorrelator)
}

func TestStdioServer_NotificationLineProducesNoOutput(t *testing.T) {
	dispatcher := rpcserver.New(echoTable(), logging.NoOp{})
	in := strings.NewReader("{\"jsonrpc\":\"2.0\",\"method\":\"echo\"}\n")
	var out bytes.Buffer

	s := NewStdioServer(dispatcher, logging.NoOp{}, in, &out)
	require.NoError(t, s.Serve(context.Background()))

	assert.Empty(t, out.String())
}
