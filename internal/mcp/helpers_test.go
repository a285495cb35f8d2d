package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spoj/mq-mcp/internal/dispatch"
	"github.com/spoj/mq-mcp/internal/fstree"
	"github.com/spoj/mq-mcp/internal/overview"
	"github.com/spoj/mq-mcp/internal/selector"
	"github.com/spoj/mq-mcp/internal/slogutil"
)

// echoClient answers every query with a deterministic string derived
// from the file content, and counts calls.
type echoClient struct {
	calls atomic.Int32
	fail  func(query, content string) error
}

func (c *echoClient) Ask(ctx context.Context, query, content string) (string, error) {
	c.calls.Add(1)
	if c.fail != nil {
		if err := c.fail(query, content); err != nil {
			return "", err
		}
	}
	return "answer for: " + content, nil
}

// newTestServer builds a server over a temp root populated with the
// given relative-path -> content files.
func newTestServer(t *testing.T, client *echoClient, files map[string]string) (*Server, string) {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	enum := fstree.New(root, 100, nil)
	sel := selector.New(enum, rand.New(rand.NewSource(1)))
	disp := dispatch.New(dispatch.NewLimiter(10), client, dispatch.DefaultRetryPolicy(2, time.Millisecond), slogutil.NewDiscardLogger())
	views, err := overview.NewService(disp, 100, slogutil.NewDiscardLogger(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}

	server := NewServer("test", Deps{
		Enum:       enum,
		Selector:   sel,
		Dispatcher: disp,
		Overview:   views,
	}, slogutil.NewDiscardLogger())

	return server, root
}

// exchange feeds newline-delimited JSON-RPC requests to the server and
// returns the decoded responses after the input is exhausted.
func exchange(t *testing.T, server *Server, requests ...string) []*Message {
	t.Helper()

	var out bytes.Buffer
	server.SetStdin(strings.NewReader(strings.Join(requests, "\n") + "\n"))
	server.SetStdout(&out)

	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("server run failed: %v", err)
	}

	var responses []*Message
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("invalid response line %q: %v", line, err)
		}
		responses = append(responses, &msg)
	}
	return responses
}

// callToolRequest builds a tools/call request line
func callToolRequest(t *testing.T, id int, tool string, args map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      tool,
			"arguments": args,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

// toolEnvelope is the decoded shape of a tool result's text payload
type toolEnvelope struct {
	SchemaVersion string                 `json:"schemaVersion"`
	Data          map[string]interface{} `json:"data"`
	Meta          map[string]interface{} `json:"meta"`
	Warnings      []map[string]string    `json:"warnings"`
	Error         *string                `json:"error"`
}

// decodeToolResult extracts the envelope from a tools/call response
func decodeToolResult(t *testing.T, msg *Message) *toolEnvelope {
	t.Helper()

	if msg.Error != nil {
		t.Fatalf("unexpected protocol error: %+v", msg.Error)
	}
	result, ok := msg.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result is not an object: %v", msg.Result)
	}
	content, ok := result["content"].([]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content frame malformed: %v", result["content"])
	}
	item := content[0].(map[string]interface{})
	if item["type"] != "text" {
		t.Fatalf("content type = %v, want text", item["type"])
	}
	text, _ := item["text"].(string)

	var env toolEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		t.Fatalf("envelope payload %q: %v", text, err)
	}
	return &env
}

// batchResults pulls the ordered per-file results out of a batch envelope
func batchResults(t *testing.T, env *toolEnvelope) []map[string]interface{} {
	t.Helper()

	raw, ok := env.Data["results"].([]interface{})
	if !ok {
		t.Fatalf("data.results missing: %v", env.Data)
	}
	out := make([]map[string]interface{}, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]interface{})
	}
	return out
}

func mustString(t *testing.T, m map[string]interface{}, key string) string {
	t.Helper()
	s, ok := m[key].(string)
	if !ok {
		t.Fatalf("%s is not a string: %v", key, m[key])
	}
	return s
}
