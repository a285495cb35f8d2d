package model

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"

	"github.com/spoj/mq-mcp/internal/qerr"
)

// askInstruction frames every per-file query sent to the model.
const askInstruction = "answer the following query about the preceding file. " +
	"Use dense language to convey the most using fewest words. " +
	"Your answer must be grounded in the document."

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient creates a Gemini-backed QueryClient. apiKey may be
// empty, in which case the genai client reads GEMINI_API_KEY itself.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

// Name identifies the client in logs.
func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

// Ask sends the file content and query as text parts and returns the
// first candidate's text.
func (g *GeminiClient) Ask(ctx context.Context, query string, fileContent string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{
			{Text: fileContent},
			{Text: askInstruction},
			{Text: query},
		}}},
		nil,
	)
	if err != nil {
		return "", ClassifyError(err)
	}
	if len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", qerr.Newf(qerr.ModelQuery, "model returned no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// ClassifyError maps a genai failure onto the error taxonomy.
// HTTP 429 and 5xx responses are transient; everything else is a
// terminal model error.
func ClassifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code >= 500 {
			return qerr.New(qerr.RateLimited, "model rejected request transiently", err)
		}
		return qerr.New(qerr.ModelQuery, "model request failed", err)
	}

	// Transport-level failures come through as plain errors; treat
	// resource-exhausted wording as transient.
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "UNAVAILABLE") {
		return qerr.New(qerr.RateLimited, "model rejected request transiently", err)
	}
	return qerr.New(qerr.ModelQuery, "model request failed", err)
}
