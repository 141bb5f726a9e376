// Package mcp exposes bytemetrics analyses as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
)

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	mcp *server.MCPServer
}

// NewMCPServer creates a server with the analyze and hierarchy tools
// registered against runner.
func NewMCPServer(runner Runner, version string) (*MCPServer, error) {
	if runner == nil {
		return nil, fmt.Errorf("analysis runner is required")
	}

	mcpServer := server.NewMCPServer(
		"bytemetrics-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	AddAnalyzeTool(mcpServer, runner)
	AddHierarchyTool(mcpServer, runner)

	return &MCPServer{mcp: mcpServer}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
