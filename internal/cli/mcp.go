package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/bytemetrics/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for class metrics",
	Long: `Start the Model Context Protocol (MCP) server that lets coding assistants
measure compiled JVM code.

The MCP server:
- Provides bytemetrics_analyze (headline and per-class metrics)
- Provides bytemetrics_hierarchy (ancestors, depth, and subclasses of a class)
- Uses the resolver and analysis settings from .bytemetrics/config.yml
- Communicates via stdio (standard MCP transport)

Example:
  bytemetrics mcp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Bytemetrics MCP Server %s\n", Version)
	if len(cfg.Resolver.Classpath) > 0 {
		fmt.Fprintf(os.Stderr, "Classpath: %d entries\n", len(cfg.Resolver.Classpath))
	}
	fmt.Fprintf(os.Stderr, "\n")

	runner := mcp.NewConfigRunner(cfg)
	defer runner.Close()

	server, err := mcp.NewMCPServer(runner, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
