// Package mcp implements the Model Context Protocol server for the claims
// engine.
//
// The MCP server exposes the full claim lifecycle through MCP tools and a
// pair of read-only resources, allowing MCP-compatible AI agents to publish,
// query, vote on, and audit shared team memory over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/anamnesos/hivemind-sub005/internal/beliefs"
	"github.com/anamnesos/hivemind-sub005/internal/consensus"
	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/service/claims"
	"github.com/anamnesos/hivemind-sub005/internal/storage"
)

// Server wraps the MCP server with the engine's service layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	svc       *claims.Service
	consensus *consensus.Engine
	beliefs   *beliefs.Snapshotter
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(svc *claims.Service, cons *consensus.Engine, snap *beliefs.Snapshotter, logger *slog.Logger, version string) *Server {
	s := &Server{
		svc:       svc,
		consensus: cons,
		beliefs:   snap,
		logger:    logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"hivemind-claims",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio blocks serving MCP over stdin/stdout until the transport closes.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

func (s *Server) registerResources() {
	// hivemind://claims/recent — latest claims across all agents.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"hivemind://claims/recent",
			"Recent Claims",
			mcplib.WithResourceDescription("Most recently created claims across all agents"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleClaimsRecent,
	)

	// hivemind://contradictions/open — unresolved contradictions.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"hivemind://contradictions/open",
			"Open Contradictions",
			mcplib.WithResourceDescription("Detected belief contradictions not yet resolved"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleContradictionsOpen,
	)
}

func (s *Server) handleClaimsRecent(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	res, err := s.svc.QueryClaims(ctx, model.QueryFilter{Limit: 20})
	if err != nil {
		return nil, fmt.Errorf("mcp: recent claims: %w", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal claims: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "hivemind://claims/recent",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleContradictionsOpen(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	res, err := s.beliefs.Contradictions(ctx, storage.ContradictionFilter{Unresolved: true})
	if err != nil {
		return nil, fmt.Errorf("mcp: open contradictions: %w", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal contradictions: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "hivemind://contradictions/open",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
