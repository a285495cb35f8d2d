package mcp

import (
	"context"
	"time"

	"github.com/spoj/mq-mcp/internal/dispatch"
	"github.com/spoj/mq-mcp/internal/envelope"
	"github.com/spoj/mq-mcp/internal/qerr"
)

// FileError is the wire form of a per-file failure inside a batch
type FileError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// FileResult is one file's entry in a batch payload: an answer or an
// error, never both.
type FileResult struct {
	Path   string     `json:"path"`
	Answer string     `json:"answer,omitempty"`
	Error  *FileError `json:"error,omitempty"`
}

// batchResponse converts dispatch outcomes into the batch envelope,
// preserving input order.
func batchResponse(outcomes []dispatch.Outcome) *envelope.Response {
	results := make([]FileResult, 0, len(outcomes))
	failed := 0

	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			results = append(results, FileResult{
				Path: o.Path,
				Error: &FileError{
					Code:      string(qerr.CodeOf(o.Err)),
					Message:   o.Err.Error(),
					Retryable: qerr.IsRetryable(o.Err),
				},
			})
			continue
		}
		results = append(results, FileResult{Path: o.Path, Answer: o.Answer})
	}

	b := envelope.New().Data(map[string]interface{}{
		"results": results,
	})
	if failed > 0 {
		b.WarningWithCode("PARTIAL_FAILURE", "some files could not be answered")
	}
	return b.Build()
}

// toolMapQuery answers one query against an explicit list of files
func (s *Server) toolMapQuery(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	query, err := argString(args, "query")
	if err != nil {
		return nil, err
	}
	files, err := argStringSlice(args, "files")
	if err != nil {
		return nil, err
	}

	targets := s.deps.Selector.Explicit(files)
	outcomes, err := s.deps.Dispatcher.Run(ctx, query, targets)
	if err != nil {
		return nil, err
	}
	return batchResponse(outcomes), nil
}

// toolMapQueryRegex answers one query against every file matching a
// pattern
func (s *Server) toolMapQueryRegex(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	query, err := argString(args, "query")
	if err != nil {
		return nil, err
	}
	pattern, err := argString(args, "pattern")
	if err != nil {
		return nil, err
	}

	targets, err := s.deps.Selector.ByRegex(pattern)
	if err != nil {
		return nil, err
	}
	outcomes, err := s.deps.Dispatcher.Run(ctx, query, targets)
	if err != nil {
		return nil, err
	}
	return batchResponse(outcomes), nil
}

// toolMapQueryRegexSampled answers one query against a random sample
// of the files matching a pattern
func (s *Server) toolMapQueryRegexSampled(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	query, err := argString(args, "query")
	if err != nil {
		return nil, err
	}
	pattern, err := argString(args, "pattern")
	if err != nil {
		return nil, err
	}
	sampleSize, err := argInt(args, "sample_size")
	if err != nil {
		return nil, err
	}

	targets, err := s.deps.Selector.ByRegexSampled(pattern, sampleSize)
	if err != nil {
		return nil, err
	}
	outcomes, err := s.deps.Dispatcher.Run(ctx, query, targets)
	if err != nil {
		return nil, err
	}
	return batchResponse(outcomes), nil
}

// toolDirectoryTree lists all files under the root up to the tree cap
func (s *Server) toolDirectoryTree(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	files, truncated, err := s.deps.Enum.Tree()
	if err != nil {
		return nil, err
	}

	return envelope.New().
		Data(map[string]interface{}{
			"files":     files,
			"truncated": truncated,
		}).
		WithTruncation(truncated, len(files), 0, "tree-cap").
		Build(), nil
}

// toolLs lists the immediate children of one directory
func (s *Server) toolLs(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	path := ""
	if v, ok := args["path"]; ok {
		str, ok := v.(string)
		if !ok {
			return nil, &errInvalidParams{name: "path", reason: "must be a string"}
		}
		path = str
	}

	entries, err := s.deps.Enum.List(path)
	if err != nil {
		return nil, err
	}

	return envelope.Operational(map[string]interface{}{
		"path":    path,
		"entries": entries,
	}), nil
}

// toolGetOverview returns the cached overview of the root, computing
// it on first use
func (s *Server) toolGetOverview(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	force := false
	if v, ok := args["force_refresh"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, &errInvalidParams{name: "force_refresh", reason: "must be a boolean"}
		}
		force = b
	}

	start := time.Now()
	entry, err := s.deps.Overview.Get(ctx, s.deps.Enum, s.deps.Description, force)
	if err != nil {
		return nil, err
	}

	// An entry older than this call was served from cache
	hit := entry.CreatedAt.Before(start)

	return envelope.New().
		Data(entry).
		WithCache(hit, time.Since(entry.CreatedAt)).
		Build(), nil
}
