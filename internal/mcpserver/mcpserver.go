package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the qbrank analysis tools.
type Server struct {
	server  *mcp.Server
	version string
}

// NewServer creates a new MCP server with all qbrank tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "qbrank",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, version: version}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all qbrank analysis tools to the server.
func (s *Server) registerTools() {
	// Full pipeline: ranking, significance, segments, bias in one pass
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_survey",
		Description: describeSurvey(),
	}, s.handleAnalyzeSurvey)

	// Composite vendor ranking
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_ranking",
		Description: describeRanking(),
	}, s.handleAnalyzeRanking)

	// Respondent bias profiling
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_bias",
		Description: describeBias(),
	}, s.handleAnalyzeBias)

	// ANOVA + Tukey HSD significance testing
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_significance",
		Description: describeSignificance(),
	}, s.handleAnalyzeSignificance)

	// Per-axis segment rankings
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_segments",
		Description: describeSegments(),
	}, s.handleAnalyzeSegments)

	// Schema and quality validation
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "validate_dataset",
		Description: describeValidate(),
	}, s.handleValidateDataset)
}
