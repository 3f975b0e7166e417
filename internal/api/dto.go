package api

import (
	"github.com/starford/vaultmcp/internal/fileservice"
)

// WriteFileRequest is the request body for PUT /api/files/{path}.
type WriteFileRequest struct {
	Content *string `json:"content" example:"# Hello\nWorld" validate:"required"`
	Mode    string  `json:"mode,omitempty" example:"create" enums:"create,overwrite,append"`
}

// MoveRequest is the request body for POST /api/move.
type MoveRequest struct {
	Source      string `json:"source" example:"Inbox/idea.md" validate:"required"`
	Destination string `json:"destination" example:"Projects/idea.md" validate:"required"`
	Overwrite   bool   `json:"overwrite,omitempty"`
}

// CreateDirectoryRequest is the request body for POST /api/folders.
type CreateDirectoryRequest struct {
	Path string `json:"path" example:"Projects/2025" validate:"required"`
}

// Response types are aliased from the domain layer.
type (
	FolderListing         = fileservice.FolderListing
	FileContent           = fileservice.FileContent
	WriteResult           = fileservice.WriteResult
	MoveResult            = fileservice.MoveResult
	DeleteResult          = fileservice.DeleteResult
	DeleteFolderResult    = fileservice.DeleteFolderResult
	CreateDirectoryResult = fileservice.CreateDirectoryResult
	FindResult            = fileservice.FindResult
	SearchResult          = fileservice.SearchResult
)
