package kit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	resp, err := Chain(mw("a"), mw("b"))(base)(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "endpoint", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order: got %v", order)
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestChain_ErrorPropagation(t *testing.T) {
	errFail := errors.New("fail")
	base := func(_ context.Context, _ any) (any, error) { return nil, errFail }
	noop := func(next Endpoint) Endpoint { return next }

	_, err := Chain(noop)(base)(context.Background(), nil)
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestContext_Defaults(t *testing.T) {
	ctx := context.Background()
	if v := GetTransport(ctx); v != "http" {
		t.Fatalf("default transport: got %q, want 'http'", v)
	}
	if v := GetTraceID(ctx); v != "" {
		t.Fatalf("trace_id default: got %q", v)
	}
	if Logger(ctx, nil) != slog.Default() {
		t.Fatal("logger default should be slog.Default()")
	}
}

func TestContext_Set(t *testing.T) {
	l := slog.New(slog.DiscardHandler)
	ctx := WithLogger(WithTraceID(WithTransport(context.Background(), "mcp"), "trc_1"), l)
	if v := GetTransport(ctx); v != "mcp" {
		t.Errorf("transport: got %q", v)
	}
	if v := GetTraceID(ctx); v != "trc_1" {
		t.Errorf("trace_id: got %q", v)
	}
	if Logger(ctx, nil) != l {
		t.Error("logger not returned from context")
	}
}

func TestRegisterMCPTool(t *testing.T) {
	// WHAT: A registered endpoint is reachable over MCP; errors become tool errors.
	// WHY: Every toolscout MCP tool goes through this adapter.
	type echoReq struct {
		Text string `json:"text"`
	}
	impl := &mcp.Implementation{Name: "kit-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)

	var sawTransport, sawTrace string
	RegisterMCPTool(srv, &mcp.Tool{
		Name:        "echo",
		InputSchema: InputSchema(map[string]any{"text": map[string]any{"type": "string"}}, []string{"text"}),
	}, func(ctx context.Context, r any) (any, error) {
		sawTransport = GetTransport(ctx)
		sawTrace = GetTraceID(ctx)
		p := r.(*echoReq)
		if p.Text == "boom" {
			return nil, errors.New("exploded")
		}
		return map[string]string{"echo": p.Text}, nil
	}, DecodeArgs[echoReq])

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()
	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "hi"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	if got := res.Content[0].(*mcp.TextContent).Text; got != `{"echo":"hi"}` {
		t.Errorf("got %s", got)
	}
	if sawTransport != "mcp" {
		t.Errorf("transport: got %q, want mcp", sawTransport)
	}
	if len(sawTrace) != 8 {
		t.Errorf("trace id: got %q, want 8 hex chars", sawTrace)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "boom"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !res.IsError {
		t.Error("endpoint error should surface as tool error")
	}
}

func TestNewTraceID(t *testing.T) {
	a, b := NewTraceID(), NewTraceID()
	if len(a) != 8 || a == b {
		t.Errorf("got %q and %q, want two distinct 8-char ids", a, b)
	}
}

func TestRecover(t *testing.T) {
	// WHAT: A panicking endpoint returns an error instead of crashing.
	// WHY: The MCP server runs every tool call on one long-lived session.
	ep := Recover(func(context.Context, any) (any, error) {
		panic("boom")
	})
	resp, err := ep(context.Background(), nil)
	if err == nil || err.Error() != "internal error: boom" {
		t.Errorf("got %v, want internal error: boom", err)
	}
	if resp != nil {
		t.Errorf("got resp %v, want nil", resp)
	}

	ok := Recover(func(context.Context, any) (any, error) { return "fine", nil })
	if resp, err := ok(context.Background(), nil); err != nil || resp != "fine" {
		t.Errorf("got %v, %v", resp, err)
	}
}
