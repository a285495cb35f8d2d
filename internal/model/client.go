// Package model wraps the remote model service behind a narrow
// interface. The dispatcher owns the retry policy; this package only
// issues single calls and classifies their failures.
package model

import "context"

// QueryClient answers one natural-language query about one file's
// content. Implementations report rate-limit rejections as RATE_LIMITED
// errors so the dispatcher can retry them; everything else is terminal.
type QueryClient interface {
	Ask(ctx context.Context, query string, fileContent string) (string, error)
}
