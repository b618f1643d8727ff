// File: internal/mcp/stdio.go
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	json "github.com/json-iterator/go"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/tools"
)

// StdioServer speaks MCP over newline-delimited JSON-RPC on a stream pair.
// Requests are answered as they complete; tool calls still run one at a time
// through the Dispatcher, so ping and tools/list stay responsive during a
// long call.
type StdioServer struct {
	d      *Dispatcher
	info   ServerInfo
	logger *zap.Logger
}

// NewStdioServer creates a server; Serve binds it to a stream pair.
func NewStdioServer(d *Dispatcher, info ServerInfo, logger *zap.Logger) *StdioServer {
	return &StdioServer{d: d, info: info, logger: logger.Named("stdio")}
}

// Serve processes requests from r and writes responses to w until r reaches
// EOF or ctx is done. On EOF, calls in progress finish before it returns but
// their responses are dropped; on cancellation they are cancelled.
func (s *StdioServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	in := &stdin{r: r}
	transport := &sdk.IOTransport{Reader: in, Writer: stdout{w}}

	s.logger.Info("Serving MCP on stdio.", zap.String("server", s.info.Name), zap.String("version", s.info.Version))
	err := s.newServer(ctx).Run(ctx, transport)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case in.eof.Load():
		s.logger.Info("Client closed stdin.")
		return nil
	case err != nil:
		return fmt.Errorf("mcp: stdio session: %w", err)
	}
	return nil
}

// newServer registers every tool the dispatcher knows. Calls end when
// serveCtx does, whatever the client does.
func (s *StdioServer) newServer(serveCtx context.Context) *sdk.Server {
	server := sdk.NewServer(
		&sdk.Implementation{Name: s.info.Name, Version: s.info.Version},
		&sdk.ServerOptions{
			InitializedHandler: func(context.Context, *sdk.InitializedRequest) {
				s.logger.Info("Client initialized.")
			},
		},
	)
	server.AddReceivingMiddleware(s.countRequests)
	for _, t := range s.d.Tools() {
		server.AddTool(&sdk.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}, s.callTool(serveCtx, t.Name))
	}
	return server
}

func (s *StdioServer) countRequests(next sdk.MethodHandler) sdk.MethodHandler {
	return func(ctx context.Context, method string, req sdk.Request) (sdk.Result, error) {
		s.d.metrics.rpcRequests.WithLabelValues(methodLabel(method)).Inc()
		s.logger.Debug("Request received.", zap.String("method", method))
		return next(ctx, method, req)
	}
}

func (s *StdioServer) callTool(serveCtx context.Context, name string) sdk.ToolHandler {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(serveCtx, cancel)
		defer stop()

		var args map[string]any
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return toolResult(tools.Errorf("%s: arguments must be a JSON object: %v", name, err)), nil
			}
		}
		out := s.d.Call(ctx, name, args)
		if errors.Is(ctx.Err(), context.Canceled) && serveCtx.Err() == nil {
			s.logger.Info("Client cancelled a call.", zap.String("tool", name))
		}
		return toolResult(out), nil
	}
}

// toolResult renders an outcome as the single text block of a tool result.
// Only Error outcomes set isError; needs_human is a normal answer the agent
// must relay.
func toolResult(out tools.Outcome) *sdk.CallToolResult {
	text, err := json.MarshalToString(out)
	if err != nil {
		text = fmt.Sprintf(`{"status":"error","message":%q}`, err.Error())
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
		IsError: out.IsError(),
	}
}

var knownMethods = map[string]bool{
	"initialize": true, "notifications/initialized": true, "notifications/cancelled": true,
	"ping": true, "tools/list": true, "tools/call": true,
}

func methodLabel(m string) string {
	if knownMethods[m] {
		return m
	}
	return "other"
}

// stdin records whether the client hung up, which ends a session cleanly.
type stdin struct {
	r   io.Reader
	eof atomic.Bool
}

func (s *stdin) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if errors.Is(err, io.EOF) {
		s.eof.Store(true)
	}
	return n, err
}

// Close unblocks a pending read when the session is torn down.
func (s *stdin) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// stdout is never closed by the session.
type stdout struct{ io.Writer }

func (stdout) Close() error { return nil }
