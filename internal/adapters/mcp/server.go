package mcpadapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/core/ports"
)

const (
	serverName     = "research-assistant"
	searchToolName = "search_research"
)

// Server exposes the search pipeline as MCP tools.
type Server struct {
	search ports.SearchService
	mcp    *server.MCPServer
}

func NewServer(search ports.SearchService, version string) *Server {
	s := &Server{
		search: search,
		mcp:    server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
	}
	s.mcp.AddTool(searchTool(), s.handleSearch)
	return s
}

func searchTool() mcp.Tool {
	return mcp.NewTool(searchToolName,
		mcp.WithDescription("Search research projects, funding calls and researchers, and answer with a grounded summary."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language research interest or question."),
		),
		mcp.WithString("profile",
			mcp.Description("Optional pipeline profile name, for example \"assistant\"."),
		),
		mcp.WithBoolean("answer",
			mcp.Description("Generate a synthesized answer. Defaults to true."),
		),
	)
}

// ServeStdio blocks until ctx is cancelled or the peer closes stdin.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	profile := req.GetString("profile", "")

	var resp *domain.SearchResponse
	if req.GetBool("answer", true) {
		resp, err = s.search.Synthesize(ctx, query, profile)
	} else {
		resp, err = s.search.Search(ctx, query, profile)
	}
	if err != nil {
		slog.Warn("mcp_search_failed", "error", err)
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}
	return mcp.NewToolResultText(renderResponse(resp)), nil
}

func toolErrorMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return err.Error()
	case domain.IsKind(err, domain.ErrUpstreamUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return "search is temporarily unavailable, try again later"
	default:
		return "search failed"
	}
}

func renderResponse(resp *domain.SearchResponse) string {
	var b strings.Builder
	if resp.Answer != "" {
		b.WriteString(resp.Answer)
		b.WriteString("\n")
	}
	if len(resp.Results) == 0 {
		return strings.TrimSpace(b.String())
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("Sources:\n")
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, r.Type, r.Title)
		if r.Source != "" {
			fmt.Fprintf(&b, " (%s)", r.Source)
		}
		fmt.Fprintf(&b, " id=%s score=%.3f\n", r.ID, r.Score)
	}
	return strings.TrimSpace(b.String())
}
