// Package mcpserver exposes the vault file service as MCP tools over stdio
// or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vaultmcp/internal/fileservice"
	"github.com/starford/vaultmcp/internal/search"
)

// Server wraps the MCP server with the vault tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *fileservice.Service
	logger *slog.Logger
}

// New creates a new MCP server with all vault tools registered.
func New(svc *fileservice.Service, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"vaultmcp",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Vault paths are relative, use forward slashes and never start with /. "+
			"Read the "+UsageURI+" resource for conventions."),
	)

	s.mcp.AddTool(mcp.NewTool("list_dir",
		mcp.WithDescription("List subdirectories in a path."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("path", mcp.Description(`Directory path (e.g. "Projects/" or "" for root)`)),
	), s.listDir)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List files in a directory, not recursive."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("path", mcp.Description(`Directory path (e.g. "Notes/" or "" for root)`)),
		mcp.WithString("extension", mcp.Description(`Filter by extension (e.g. "md")`)),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the content of a file. If you don't know the exact filename, use find_files first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("path", mcp.Required(), mcp.Description(`File path without trailing slash (e.g. "Notes/meeting.md")`)),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Create, overwrite or append to a file. Missing parent folders are created."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to file")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content")),
		mcp.WithString("mode",
			mcp.Enum(fileservice.ModeCreate, fileservice.ModeOverwrite, fileservice.ModeAppend),
			mcp.Description("Write mode (default: create)")),
		mcp.WithString("if_match", mcp.Description("Only write when the current checksum equals this value")),
	), s.writeFile)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Search for text across all notes, line by line."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Case sensitive search (default: false)")),
		mcp.WithBoolean("regex", mcp.Description("Treat query as a regular expression (default: false)")),
		mcp.WithNumber("max_results", mcp.Description("Maximum results (default: 100)")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("move_file",
		mcp.WithDescription("Move or rename a file."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source path")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("Destination path")),
		mcp.WithBoolean("overwrite", mcp.Description("Overwrite if exists (default: false)")),
	), s.moveFile)

	s.mcp.AddTool(mcp.NewTool("delete_file",
		mcp.WithDescription("Delete a file. By default it is moved to "+fileservice.DefaultTrashDir+
			"/ for recovery. Set permanent=true for irreversible deletion."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to file")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true (safety check)")),
		mcp.WithBoolean("permanent", mcp.Description("Skip the trash (default: false)")),
	), s.deleteFile)

	s.mcp.AddTool(mcp.NewTool("delete_folder",
		mcp.WithDescription("Delete all files in a folder recursively, to the trash unless permanent=true. "+
			"Empty folders may remain."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to folder")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true (safety check)")),
		mcp.WithBoolean("permanent", mcp.Description("Skip the trash (default: false)")),
	), s.deleteFolder)

	s.mcp.AddTool(mcp.NewTool("find_files",
		mcp.WithDescription("Find files by name with fuzzy matching. Use this when you don't know the exact filename."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query", mcp.Required(), mcp.Description("Partial filename, may contain typos")),
		mcp.WithBoolean("fuzzy", mcp.Description("Allow subsequence matches (default: true)")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of results (default: 10)")),
	), s.findFiles)

	s.mcp.AddTool(mcp.NewTool("create_directory",
		mcp.WithDescription(`Create a folder. Use "Notes" not "Notes/".`),
		mcp.WithString("path", mcp.Required(), mcp.Description("Folder path without trailing slash")),
	), s.createDirectory)

	s.mcp.AddResource(
		mcp.NewResource(UsageURI, "Vault usage guide",
			mcp.WithResourceDescription("Path conventions and tool usage for this vault."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readUsageResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HTTPHandler returns a stateless streamable HTTP transport for the server.
func (s *Server) HTTPHandler() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// result renders v as indented JSON, or err as a tool error.
func (s *Server) result(tool string, v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		s.logger.Debug("tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.ListDir(ctx, req.GetString("path", ""))
	return s.result("list_dir", res, err)
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.ListFiles(ctx, req.GetString("path", ""), req.GetString("extension", ""))
	return s.result("list_files", res, err)
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ReadFile(ctx, path)
	return s.result("read_file", res, err)
}

func (s *Server) writeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Empty content is allowed; only a missing argument is an error.
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.WriteFile(ctx, fileservice.WriteRequest{
		Path:    path,
		Content: content,
		Mode:    req.GetString("mode", fileservice.ModeCreate),
		IfMatch: req.GetString("if_match", ""),
	})
	return s.result("write_file", res, err)
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Search(ctx, search.ContentQuery{
		Query:         query,
		CaseSensitive: req.GetBool("case_sensitive", false),
		Regex:         req.GetBool("regex", false),
		MaxResults:    req.GetInt("max_results", search.DefaultContentResults),
	})
	return s.result("search", res, err)
}

func (s *Server) moveFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	destination, err := req.RequireString("destination")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.MoveFile(ctx, source, destination, req.GetBool("overwrite", false))
	return s.result("move_file", res, err)
}

func (s *Server) deleteFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.DeleteFile(ctx, path, req.GetBool("confirm", false), req.GetBool("permanent", false))
	return s.result("delete_file", res, err)
}

func (s *Server) deleteFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.DeleteFolder(ctx, path, req.GetBool("confirm", false), req.GetBool("permanent", false))
	return s.result("delete_folder", res, err)
}

func (s *Server) findFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.FindFiles(ctx, fileservice.FindRequest{
		Query:      query,
		Fuzzy:      req.GetBool("fuzzy", true),
		MaxResults: req.GetInt("max_results", search.DefaultFindResults),
	})
	return s.result("find_files", res, err)
}

func (s *Server) createDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CreateDirectory(ctx, path)
	return s.result("create_directory", res, err)
}

func (s *Server) readUsageResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      UsageURI,
			MIMEType: "text/markdown",
			Text:     UsageGuide,
		},
	}, nil
}
