package main

import (
	"context"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"aperture/internal/logging"
	mcpserver "aperture/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing the culling tools:
process_image, review_image, list_images, get_metadata, export_metadata,
apply_learnings, and clear_learning_context.

The server monitors for parent process death and self-terminates when the
MCP client disconnects, to prevent zombie processes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting aperture MCP server over stdio (parent watchdog active)")
	return mcpserver.NewServer(pipeline, version).Run(ctx, &sdkmcp.StdioTransport{})
}
