// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/othalahq/othala/internal/storage"
	"github.com/othalahq/othala/internal/tagsvc"
)

// Server wraps the MCP server with othala tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *tagsvc.Service
	store storage.Provider
}

// New creates a new MCP server with all othala tools registered.
func New(svc *tagsvc.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the tag vocabulary with per-tag usage counts."),
		mcp.WithString("query", mcp.Description("Optional substring filter")),
		mcp.WithString("sort", mcp.Description("Sort order: name (default), count, or relevance")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("add_tag",
		mcp.WithDescription("Add a tag to the vocabulary. Names are lowercased and a leading # is stripped."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Tag name (e.g. golden-hour)")),
	), s.addTag)

	s.mcp.AddTool(mcp.NewTool("rename_tag",
		mcp.WithDescription("Rename a vocabulary tag and rewrite it in every note that uses it."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Current tag name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("Replacement tag name")),
	), s.renameTag)

	s.mcp.AddTool(mcp.NewTool("delete_tag",
		mcp.WithDescription("Delete a tag from the vocabulary and strip it from every note that uses it."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name to delete")),
	), s.deleteTag)

	s.mcp.AddTool(mcp.NewTool("rescan_vault",
		mcp.WithDescription("Scan every note for tags missing from the vocabulary. "+
			"Pass apply=merge to adopt the discovered tags into the vocabulary."),
		mcp.WithString("apply", mcp.Description("Optional: merge (empty to only report)")),
	), s.rescanVault)

	s.mcp.AddTool(mcp.NewTool("tag_image",
		mcp.WithDescription("Create a reference note for a vault image. The note follows the "+
			"canonical format (read the contract first via the get_note_contract tool or the "+
			"othala://note-format resource); tags outside the vocabulary are adopted into it."),
		mcp.WithString("image", mcp.Required(), mcp.Description("Image path or bare filename (e.g. photos/aurora.png)")),
		mcp.WithString("author", mcp.Description("Optional author credit")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags (e.g. travel,night)")),
		mcp.WithString("notes", mcp.Description("Optional free-form text for the Notes section")),
	), s.tagImage)

	s.mcp.AddTool(mcp.NewTool("list_images",
		mcp.WithDescription("List every image in the vault with its tagging state."),
	), s.listImages)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. Image Library/aurora.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("import_image",
		mcp.WithDescription("Download an image from a URL (or decode a base64 data URI) into the "+
			"vault's images/ directory. Returns the saved path and a ready-to-paste embed."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.importImage)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical othala reference-note contract. "+
			"Call this before creating notes to ensure correct structure."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://note-format", "Reference Note Contract",
			mcp.WithResourceDescription("Canonical Markdown format for the reference notes that tag images."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := ""
	if q, err := req.RequireString("query"); err == nil {
		query = q
	}
	sortMode := ""
	if v, err := req.RequireString("sort"); err == nil {
		sortMode = v
	}

	tags, err := s.svc.ListTags(ctx, query, sortMode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, err := s.svc.AddTag(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", tag)), nil
}

func (s *Server) renameTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newName, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	renamed, out, err := s.svc.RenameTag(ctx, tag, newName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fmt.Sprintf("renamed to %s: %d notes rewritten", renamed, out.Modified)
	if len(out.Failed) > 0 {
		msg += ", failed: " + strings.Join(out.Failed, ", ")
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) deleteTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.DeleteTag(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fmt.Sprintf("deleted: %s, %d notes rewritten", tag, out.Modified)
	if len(out.Failed) > 0 {
		msg += ", failed: " + strings.Join(out.Failed, ", ")
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) rescanVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode := ""
	if v, err := req.RequireString("apply"); err == nil {
		mode = v
	}
	// The replace mode is deliberately not reachable here: the scan only
	// reports tags missing from the vocabulary, and replacing the whole
	// vocabulary with that subset would drop every tag already adopted.
	if mode != "" && mode != tagsvc.ApplyMerge {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported apply mode %q (only merge)", mode)), nil
	}

	res, err := s.svc.Scan(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if mode == "" {
		out, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}

	applied, err := s.svc.ApplyScan(ctx, mode, res.Discovered)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(struct {
		Discovered []string `json:"discovered"`
		Scanned    int      `json:"scanned"`
		Failed     int      `json:"failed"`
		Added      int      `json:"added"`
		Total      int      `json:"total"`
	}{res.Discovered, res.Scanned, res.Failed, applied.Added, applied.Total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) tagImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	image, err := req.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nr := tagsvc.NoteRequest{Image: image}
	if v, pErr := req.RequireString("author"); pErr == nil {
		nr.Author = v
	}
	if v, pErr := req.RequireString("tags"); pErr == nil {
		nr.Tags = splitTags(v)
	}
	if v, pErr := req.RequireString("notes"); pErr == nil {
		nr.Notes = v
	}

	detail, err := s.svc.CreateImageNote(ctx, nr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", detail.Path)), nil
}

func (s *Server) listImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	images, err := s.svc.ListImages(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(images, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.svc.ReadNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

// splitTags parses a comma-separated tag list, dropping empty entries.
func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
