package mcp

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// RegisterDefaultResources adds all built-in PDF resources to the server.
// Resources take the file as a query parameter: pdf://pages?path=/a/b.pdf.
func RegisterDefaultResources(s *Server) {
	s.AddResource(Resource{
		URI:         "pdf://metadata",
		Name:        "PDF Metadata",
		Description: "Get metadata from a PDF file (title, author, subject, etc.). Pass the file path as a query parameter: pdf://metadata?path=/path/to/file.pdf",
		MIMEType:    "application/json",
		Handler:     handleMetadataResource,
	})

	s.AddResource(Resource{
		URI:         "pdf://pages",
		Name:        "PDF Page Info",
		Description: "Get page information from a PDF (count, dimensions, rotation). Pass the file path as a query parameter: pdf://pages?path=/path/to/file.pdf",
		MIMEType:    "application/json",
		Handler:     handlePagesResource,
	})
}

func extractPathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid resource URI: %w", err)
	}
	path := u.Query().Get("path")
	if path == "" {
		return "", fmt.Errorf("missing 'path' parameter in URI")
	}
	return path, nil
}

func jsonResource(uri string, v interface{}) ([]ResourceContent, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []ResourceContent{{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(jsonBytes),
	}}, nil
}

func handleMetadataResource(uri string) ([]ResourceContent, error) {
	path, err := extractPathFromURI(uri)
	if err != nil {
		return nil, err
	}
	info, err := documentInfo(path)
	if err != nil {
		return nil, err
	}
	delete(info, "pages")
	return jsonResource(uri, info)
}

func handlePagesResource(uri string) ([]ResourceContent, error) {
	path, err := extractPathFromURI(uri)
	if err != nil {
		return nil, err
	}
	info, err := documentInfo(path)
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, map[string]interface{}{
		"numPages": info["numPages"],
		"pages":    info["pages"],
	})
}
