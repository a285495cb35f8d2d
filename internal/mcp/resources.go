package mcp

import (
	"os"
	"strings"

	"github.com/spoj/mq-mcp/internal/paths"
	"github.com/spoj/mq-mcp/internal/qerr"
)

// Resource represents a readable file under the served root
type Resource struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
}

// ResourceTemplate represents a dynamic resource with URI template
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
}

const fileScheme = "file://"

// handleListResources lists in-root files as resources, capped the
// same way directory_tree is.
func (s *Server) handleListResources() (interface{}, error) {
	files, _, err := s.deps.Enum.Tree()
	if err != nil {
		return nil, err
	}

	resources := make([]Resource, 0, len(files))
	for _, rel := range files {
		resources = append(resources, Resource{
			URI:      fileScheme + rel,
			Name:     rel,
			MimeType: "text/plain",
		})
	}

	templates := []ResourceTemplate{
		{
			URITemplate: fileScheme + "{path}",
			Name:        "File",
			MimeType:    "text/plain",
		},
	}

	return map[string]interface{}{
		"resources":         resources,
		"resourceTemplates": templates,
	}, nil
}

// handleReadResource reads one in-root file by file:// URI
func (s *Server) handleReadResource(uri string) (interface{}, error) {
	if !strings.HasPrefix(uri, fileScheme) {
		return nil, qerr.Newf(qerr.NotFound, "expected %s URI, got %s", fileScheme, uri)
	}

	rel := strings.TrimPrefix(uri, fileScheme)
	if rel == "" {
		return nil, qerr.Newf(qerr.NotFound, "empty resource path")
	}

	_, abs, err := paths.Resolve(s.deps.Enum.Root(), rel)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, qerr.New(qerr.NotFound, "no such file "+rel, err)
		}
		return nil, qerr.New(qerr.FileRead, "cannot read "+rel, err)
	}

	return map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"uri":      uri,
				"mimeType": "text/plain",
				"text":     string(content),
			},
		},
	}, nil
}
