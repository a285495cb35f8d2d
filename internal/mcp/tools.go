package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spoj/mq-mcp/internal/envelope"
)

// Tool represents a tool exposed via MCP
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler handles one tool call and returns an envelope response.
// Argument errors are reported via errInvalidParams; any other error
// becomes a structured error payload in the tool result.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (*envelope.Response, error)

// errInvalidParams marks a malformed tool argument. It maps to the
// JSON-RPC -32602 protocol error instead of a tool result.
type errInvalidParams struct {
	name   string
	reason string
}

func (e *errInvalidParams) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.name, e.reason)
}

// RegisterTools wires every tool handler by name
func (s *Server) RegisterTools() {
	s.tools["map_query"] = s.toolMapQuery
	s.tools["map_query_regex"] = s.toolMapQueryRegex
	s.tools["map_query_regex_sampled"] = s.toolMapQueryRegexSampled
	s.tools["directory_tree"] = s.toolDirectoryTree
	s.tools["ls"] = s.toolLs
	s.tools["get_overview"] = s.toolGetOverview
}

// GetToolDefinitions returns all tool definitions
func (s *Server) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "map_query",
			Description: "Ask one question about several files at once. The query runs against each file independently and returns one answer per file, in the order given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Natural-language question to ask about each file",
					},
					"files": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "string",
						},
						"description": "Relative paths of the files to query",
					},
				},
				"required": []string{"query", "files"},
			},
		},
		{
			Name:        "map_query_regex",
			Description: "Ask one question about every file whose relative path matches a regular expression (unanchored search). Returns one answer per matched file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Natural-language question to ask about each file",
					},
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Regular expression matched against relative file paths",
					},
				},
				"required": []string{"query", "pattern"},
			},
		},
		{
			Name:        "map_query_regex_sampled",
			Description: "Like map_query_regex, but queries a uniform random sample of the matched files instead of all of them. Useful for large match sets.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Natural-language question to ask about each file",
					},
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Regular expression matched against relative file paths",
					},
					"sample_size": map[string]interface{}{
						"type":        "number",
						"description": "Number of matched files to sample (must be positive)",
					},
				},
				"required": []string{"query", "pattern", "sample_size"},
			},
		},
		{
			Name:        "directory_tree",
			Description: "List all files under the served root recursively, up to a configured cap. Reports whether the listing was truncated.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "ls",
			Description: "List the immediate children of one directory under the served root, files and subdirectories marked apart.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Relative directory path; defaults to the root",
					},
				},
			},
		},
		{
			Name:        "get_overview",
			Description: "Get a cached natural-language overview of the served directory, synthesized from per-file descriptions of a sample of its files.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"force_refresh": map[string]interface{}{
						"type":        "boolean",
						"default":     false,
						"description": "Recompute the overview even when a cached one exists",
					},
				},
			},
		},
	}
}

// handleCallTool executes a tool and wraps its envelope in the MCP
// content format.
func (s *Server) handleCallTool(ctx context.Context, id interface{}, params map[string]interface{}) *Message {
	toolName, ok := params["name"].(string)
	if !ok {
		return NewErrorMessage(id, InvalidParams, "Invalid params: name must be a string", nil)
	}

	args, ok := params["arguments"].(map[string]interface{})
	if !ok {
		args = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return NewErrorMessage(id, InvalidParams, fmt.Sprintf("Unknown tool: %s", toolName), nil)
	}

	s.logger.Info("Calling tool",
		"tool", toolName,
	)

	result, err := handler(ctx, args)
	if err != nil {
		var ipe *errInvalidParams
		if errors.As(err, &ipe) {
			return NewErrorMessage(id, InvalidParams, ipe.Error(), nil)
		}
		// Everything else is a structured tool result
		result = envelope.New().Data(nil).Error(err).Build()
	}

	return s.textResult(id, result)
}

// textResult marshals the envelope into the standard tool content frame
func (s *Server) textResult(id interface{}, resp *envelope.Response) *Message {
	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		return NewErrorMessage(id, InternalError, fmt.Sprintf("marshal response: %v", err), nil)
	}

	return NewResultMessage(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(jsonBytes),
			},
		},
	})
}

// argString extracts a required string argument
func argString(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", &errInvalidParams{name: name, reason: "required"}
	}
	str, ok := v.(string)
	if !ok {
		return "", &errInvalidParams{name: name, reason: "must be a string"}
	}
	return str, nil
}

// argStringSlice extracts a required array-of-strings argument
func argStringSlice(args map[string]interface{}, name string) ([]string, error) {
	v, ok := args[name]
	if !ok {
		return nil, &errInvalidParams{name: name, reason: "required"}
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, &errInvalidParams{name: name, reason: "must be an array of strings"}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, &errInvalidParams{name: name, reason: "must be an array of strings"}
		}
		out = append(out, str)
	}
	return out, nil
}

// argInt extracts a required integer argument (JSON numbers decode as
// float64)
func argInt(args map[string]interface{}, name string) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, &errInvalidParams{name: name, reason: "required"}
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &errInvalidParams{name: name, reason: "must be a number"}
	}
	return int(f), nil
}
