// Package envelope provides a standardized response wrapper for all MCP tool
// responses. Every tool response is wrapped in a consistent envelope that
// includes metadata about truncation, cache status, and warnings.
package envelope

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`  // items returned
	Total       int    `json:"total,omitempty"`  // total available, 0 if unknown
	Reason      string `json:"reason,omitempty"` // "tree-cap", "sample-cap"
}

// CacheInfo describes cache status for this response.
type CacheInfo struct {
	Hit bool   `json:"hit"`           // true if served from cache
	Age string `json:"age,omitempty"` // if hit, how old (e.g., "2m30s")
}

// Meta holds response metadata.
type Meta struct {
	Truncation *Truncation `json:"truncation,omitempty"`
	Cache      *CacheInfo  `json:"cache,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"` // machine-readable code
	Message string `json:"message"`        // human-readable message
}

// Response is the standard envelope for all MCP tool responses.
type Response struct {
	SchemaVersion string      `json:"schemaVersion"`
	Data          interface{} `json:"data"`
	Meta          *Meta       `json:"meta,omitempty"`
	Warnings      []Warning   `json:"warnings,omitempty"`
	Error         *string     `json:"error,omitempty"`
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"
