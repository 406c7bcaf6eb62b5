// Command pagekit-mcp is an MCP (Model Context Protocol) server that exposes
// PDF page manipulation to AI assistants.
//
// # Installation
//
//	go install github.com/lvillar/pagekit/cmd/pagekit-mcp@latest
//
// # Configuration for Claude Desktop
//
// Add to ~/.config/claude/claude_desktop_config.json:
//
//	{
//	  "mcpServers": {
//	    "pagekit": {
//	      "command": "pagekit-mcp",
//	      "args": ["-out", "/home/me/Documents/pagekit"]
//	    }
//	  }
//	}
//
// Every tool writes a new file named <name>_<operation>_<timestamp>.pdf,
// next to its input or in the -out directory, and never modifies its input.
//
// # Available Tools
//
//   - page_count, pdf_info: inspect documents
//   - delete_pages, extract_pages, split_pages, merge_pdfs
//   - rotate_pages, normalize_rotation
//   - reorder_pages, move_page, duplicate_page
//   - add_blank_page, add_image_page, add_image_to_page
//   - add_page_numbers, add_watermark, compress_pdf
//
// # Available Resources
//
//   - pdf://metadata?path=... : Get document metadata
//   - pdf://pages?path=... : Get page information
//
// # Environment
//
// PAGEKIT_OUTPUT_DIR and PAGEKIT_LOG_LEVEL provide defaults for -out and
// -log-level.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/mcp"
	"github.com/lvillar/pagekit/output"
	"github.com/lvillar/pagekit/pageops"
)

var (
	outDir   = flag.String("out", os.Getenv("PAGEKIT_OUTPUT_DIR"), "directory for output files (default: next to the input)")
	logLevel = flag.String("log-level", envOr("PAGEKIT_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	validate = flag.Bool("validate", false, "validate every output with pdfcpu before publishing it")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()

	// stdout carries the protocol.
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagekit-mcp: %v\n", err)
		os.Exit(2)
	}
	logger.SetLevel(level)

	opts := []pagekit.Option{
		pagekit.WithLogger(logger),
		pagekit.WithValidation(*validate),
	}
	if *outDir != "" {
		opts = append(opts, pagekit.WithOutputDir(output.Dir(*outDir)))
	}

	server := mcp.NewServer()
	server.SetLogger(logger)
	mcp.RegisterDefaultTools(server, pageops.New(opts...))
	mcp.RegisterDefaultResources(server)

	logger.WithFields(logrus.Fields{"out": *outDir, "validate": *validate}).Info("pagekit-mcp ready")
	if err := server.Run(); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
