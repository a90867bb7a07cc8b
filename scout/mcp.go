package scout

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/toolscout/kit"
)

// RegisterMCP registers the toolscout tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerAnalyzeTool(srv)
	s.registerFetchTool(srv)
	s.registerSearchTool(srv)
	s.registerListTool(srv)
	s.registerClearTool(srv)
}

// wrap applies the middleware every toolscout tool runs under.
func (s *Service) wrap(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Recover, s.instrument(name))(ep)
}

func (s *Service) instrument(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if s.metrics != nil {
				outcome := "ok"
				if err != nil {
					outcome = "error"
				}
				s.metrics.ObserveTool(name, outcome, time.Since(start))
			}
			return resp, err
		}
	}
}

// --- analyze ---

type urlReq struct {
	URL string `json:"url"`
}

func (s *Service) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "toolscout_analyze",
		Description: "Fetch a web page and draft a catalog entry: name, summary and categories. Fails if the URL is already cataloged.",
		InputSchema: kit.InputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL; https:// is assumed when no scheme is given"},
		}, []string{"url"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*urlReq)
		return s.AnalyzeURL(ctx, r.URL)
	}
	kit.RegisterMCPTool(srv, tool, s.wrap(tool.Name, endpoint), kit.DecodeArgs[urlReq])
}

// --- fetch ---

func (s *Service) registerFetchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "toolscout_fetch",
		Description: "Fetch a web page and return its extracted text profile and Markdown preview.",
		InputSchema: kit.InputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL"},
		}, []string{"url"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*urlReq)
		return s.FetchDocument(ctx, r.URL)
	}
	kit.RegisterMCPTool(srv, tool, s.wrap(tool.Name, endpoint), kit.DecodeArgs[urlReq])
}

// --- search ---

type searchReq struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Service) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "toolscout_search",
		Description: "Rank cataloged tools by semantic similarity to a free-text query.",
		InputSchema: kit.InputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "What the tool should do"},
			"limit": map[string]any{"type": "integer", "description": "Maximum results (default 10)"},
		}, []string{"query"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*searchReq)
		results, err := s.SearchCatalog(ctx, r.Query, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": results, "count": len(results)}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.wrap(tool.Name, endpoint), kit.DecodeArgs[searchReq])
}

// --- list ---

type emptyReq struct{}

func (s *Service) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "toolscout_list_tools",
		Description: "List every cataloged tool, newest first.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		tools, err := s.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tools": tools, "count": len(tools)}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.wrap(tool.Name, endpoint), kit.DecodeArgs[emptyReq])
}

// --- clear ---

func (s *Service) registerClearTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "toolscout_clear_caches",
		Description: "Empty the page, summary and embedding caches.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}
	endpoint := func(_ context.Context, _ any) (any, error) {
		before := s.CacheStats()
		s.ClearCaches()
		return map[string]any{"cleared": before}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.wrap(tool.Name, endpoint), kit.DecodeArgs[emptyReq])
}
