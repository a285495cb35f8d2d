package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the maximum size for a single MCP message (1MB).
// This accommodates large tool responses and batch results.
const MaxMessageSize = 1024 * 1024

// parseError marks a frame that could not be decoded as JSON-RPC.
// Start answers it with a -32700 response; read failures do not.
type parseError struct {
	err error
}

func (e *parseError) Error() string {
	return "error parsing JSON-RPC message: " + e.err.Error()
}

func (e *parseError) Unwrap() error { return e.err }

// readMessage reads a JSON-RPC message from the input stream
func (s *Server) readMessage() (*Message, error) {
	// Lazily initialize the scanner on first use
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		// Increase buffer size beyond default 64KB to handle large messages
		s.scanner.Buffer(make([]byte, MaxMessageSize), MaxMessageSize)
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading from stdin: %w", err)
		}
		return nil, io.EOF
	}

	line := s.scanner.Text()
	s.logger.Debug("Received message",
		"raw", line,
	)

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, &parseError{err: err}
	}

	return &msg, nil
}

// writeMessage writes a JSON-RPC message to the output stream. Only
// protocol frames go to stdout; all logging goes elsewhere.
func (s *Server) writeMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling JSON-RPC message: %w", err)
	}

	s.logger.Debug("Sending message",
		"raw", string(data),
	)

	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil {
		return fmt.Errorf("error writing to stdout: %w", err)
	}

	return nil
}

// writeError writes an error response
func (s *Server) writeError(id interface{}, code int, message string) error {
	return s.writeMessage(NewErrorMessage(id, code, message, nil))
}
