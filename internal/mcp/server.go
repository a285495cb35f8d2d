// Package mcp implements the MCP stdio server: JSON-RPC 2.0 messages,
// one per line, tools and resources answering natural-language queries
// about the files under one served root.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spoj/mq-mcp/internal/dispatch"
	"github.com/spoj/mq-mcp/internal/fstree"
	"github.com/spoj/mq-mcp/internal/overview"
	"github.com/spoj/mq-mcp/internal/selector"
)

// Deps bundles the services the tools operate on. All fields serve the
// same root directory.
type Deps struct {
	Enum       *fstree.Enumerator
	Selector   *selector.Selector
	Dispatcher *dispatch.Dispatcher
	Overview   *overview.Service

	// Description is the manifest description of the root, prepended
	// to overview synthesis. Empty when the root has no manifest.
	Description string
}

// Server represents the MCP server for one root directory
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *slog.Logger
	version string

	deps  Deps
	tools map[string]ToolHandler
}

// NewServer creates a new MCP server
func NewServer(version string, deps Deps, logger *slog.Logger) *Server {
	server := &Server{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger,
		version: version,
		deps:    deps,
		tools:   make(map[string]ToolHandler),
	}

	server.RegisterTools()

	return server
}

// Start begins processing messages. It returns nil on clean shutdown
// (stdin EOF) and the ctx error when the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("MCP server starting",
		"version", s.version,
		"root", s.deps.Enum.Root(),
	)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("MCP server shutting down (cancelled)")
			return err
		}

		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}
			s.logger.Error("Error reading message",
				"error", err.Error(),
			)

			// JSON-RPC prescribes id null when the frame is unparseable
			// and no id can be recovered.
			var pe *parseError
			if errors.As(err, &pe) {
				_ = s.writeError(json.RawMessage("null"), ParseError, fmt.Sprintf("Failed to parse message: %v", pe.err))
			}
			continue
		}

		// Notifications don't generate responses
		response := s.handleMessage(ctx, msg)
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response",
					"error", err.Error(),
				)
			}
		}
	}
}

// SetStdin sets the input stream (for testing)
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil // Reset scanner so it will be recreated with new reader
}

// SetStdout sets the output stream (for testing)
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}
