package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/rpcserver"
)

// bufferSize caps one stdio line; requests larger than this are rejected
// by bufio.Scanner with bufio.ErrTooLong before ever reaching the
// dispatcher.
const bufferSize = 4 << 20

// StdioServer implements spec.md §4.7's newline-delimited JSON transport:
// one JSON-RPC request (or batch array) per line on stdin, one response
// per line on stdout. Blank lines are skipped. Handlers are not
// serialized against each other, matching spec.md §5's "parallel by
// default" concurrency model, but writes to stdout are serialized so
// concurrent responses never interleave mid-line.
type StdioServer struct {
	dispatcher *rpcserver.Dispatcher
	logger     logging.Logger
	in         io.Reader
	out        io.Writer
	writeMu    sync.Mutex
}

// NewStdioServer builds a transport reading from in and writing to out
// (typically os.Stdin/os.Stdout).
func NewStdioServer(dispatcher *rpcserver.Dispatcher, logger logging.Logger, in io.Reader, out io.Writer) *StdioServer {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &StdioServer{
		dispatcher: dispatcher,
		logger:     logger.WithComponent("stdio"),
		in:         in,
		out:        out,
	}
}

// Serve reads lines until EOF, dispatching each non-blank line
// concurrently and writing its response (if any) back as a single line.
// ctx is checked each time a line has been read: once it is cancelled,
// that line is not dispatched and Serve stops. A read blocked on s.in is
// not interrupted by cancellation. It returns nil on a clean
// EOF/cancellation and a non-nil error only if the scanner itself fails
// (e.g. a line exceeds bufferSize).
func (s *StdioServer) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), bufferSize)

	var wg sync.WaitGroup
	defer wg.Wait()

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		wg.Add(1)
		go func(line string) {
			defer wg.Done()
			s.handleLine(ctx, line)
		}(line)
	}
	return scanner.Err()
}

func (s *StdioServer) handleLine(ctx context.Context, line string) {
	ctx = logging.ContextWithCorrelator(ctx, uuid.NewString())
	resp := s.dispatcher.Dispatch(ctx, json.RawMessage(line))
	if resp == nil {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(resp); err != nil {
		s.logger.ErrorContext(ctx, "failed to write stdio response", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := s.out.Write([]byte("\n")); err != nil {
		s.logger.ErrorContext(ctx, "failed to write stdio newline", map[string]interface{}{"error": err.Error()})
	}
}
