package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultmcp/internal/fileservice"
	"github.com/starford/vaultmcp/internal/search"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *fileservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *fileservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardPath extracts the vault path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. Projects%2Fnote.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func queryBool(r *http.Request, name string, def bool) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// ListFolder handles GET /api/files.
//
//	@Summary		List the immediate folders and files of a directory
//	@Tags			files
//	@Produce		json
//	@Param			path		query		string	false	"Directory (vault root when empty)"
//	@Param			extension	query		string	false	"Only files with this extension"
//	@Success		200			{object}	FolderListing
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFolder(w http.ResponseWriter, r *http.Request) {
	dir := strings.Trim(r.URL.Query().Get("path"), "/")
	res, err := h.svc.ListFolder(r.Context(), dir, r.URL.Query().Get("extension"))
	if err != nil {
		writeError(w, "list folder", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ReadFile handles GET /api/files/*.
//
//	@Summary		Read a file
//	@Tags			files
//	@Produce		json
//	@Param			path	path		string	true	"File path"
//	@Success		200		{object}	FileContent
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [get]
func (h *Handler) ReadFile(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	f, err := h.svc.ReadFile(r.Context(), path)
	if err != nil {
		writeError(w, "read file", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(f.Checksum))
	writeJSON(w, http.StatusOK, f)
}

// WriteFile handles PUT /api/files/*.
//
//	@Summary		Create, overwrite or append to a file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"File path"
//	@Param			If-Match	header		string				false	"Checksum for optimistic concurrency"
//	@Param			body		body		WriteFileRequest	true	"Content and mode"
//	@Success		200			{object}	WriteResult
//	@Success		201			{object}	WriteResult
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [put]
func (h *Handler) WriteFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req WriteFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	res, err := h.svc.WriteFile(r.Context(), fileservice.WriteRequest{
		Path:    path,
		Content: *req.Content,
		Mode:    req.Mode,
		IfMatch: ifMatch,
	})
	if err != nil {
		writeError(w, "write file", err)
		return
	}
	status := http.StatusOK
	if res.Mode == fileservice.ModeCreate {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// DeleteFile handles DELETE /api/files/*.
//
//	@Summary		Delete a file, to the trash unless permanent
//	@Tags			files
//	@Produce		json
//	@Param			path		path		string	true	"File path"
//	@Param			permanent	query		bool	false	"Skip the trash"
//	@Success		200			{object}	DeleteResult
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.DeleteFile(r.Context(), path, true, queryBool(r, "permanent", false))
	if err != nil {
		writeError(w, "delete file", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MoveFile handles POST /api/move.
//
//	@Summary		Move or rename a file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Source and destination"
//	@Success		200		{object}	MoveResult
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/move [post]
func (h *Handler) MoveFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.MoveFile(r.Context(), req.Source, req.Destination, req.Overwrite)
	if err != nil {
		writeError(w, "move file", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateDirectory handles POST /api/folders.
//
//	@Summary		Create a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDirectoryRequest	true	"Folder path"
//	@Success		200		{object}	CreateDirectoryResult
//	@Success		201		{object}	CreateDirectoryResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.CreateDirectory(r.Context(), req.Path)
	if err != nil {
		writeError(w, "create directory", err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// DeleteFolder handles DELETE /api/folders/*.
//
//	@Summary		Delete every file under a folder
//	@Tags			folders
//	@Produce		json
//	@Param			path		path		string	true	"Folder path"
//	@Param			permanent	query		bool	false	"Skip the trash"
//	@Success		200			{object}	DeleteFolderResult
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{path} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.DeleteFolder(r.Context(), path, true, queryBool(r, "permanent", false))
	if err != nil {
		writeError(w, "delete folder", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// FindFiles handles GET /api/find.
//
//	@Summary		Rank vault paths against a filename query
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Filename query"
//	@Param			fuzzy	query		bool	false	"Allow subsequence matches (default true)"
//	@Param			limit	query		int		false	"Max results (default 10)"
//	@Success		200		{object}	FindResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/find [get]
func (h *Handler) FindFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	res, err := h.svc.FindFiles(r.Context(), fileservice.FindRequest{
		Query:      q,
		Fuzzy:      queryBool(r, "fuzzy", true),
		MaxResults: queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, "find files", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /api/search.
//
//	@Summary		Search note contents line by line
//	@Tags			search
//	@Produce		json
//	@Param			q				query		string	true	"Text or pattern"
//	@Param			case_sensitive	query		bool	false	"Match case"
//	@Param			regex			query		bool	false	"Treat q as a regular expression"
//	@Param			limit			query		int		false	"Max matches (default 100)"
//	@Success		200				{object}	SearchResult
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	res, err := h.svc.Search(r.Context(), search.ContentQuery{
		Query:         q,
		CaseSensitive: queryBool(r, "case_sensitive", false),
		Regex:         queryBool(r, "regex", false),
		MaxResults:    queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// InvalidateCache handles POST /api/cache/invalidate.
//
//	@Summary		Drop the cached filename index
//	@Tags			search
//	@Success		204	"Cache dropped"
//	@Security		BearerAuth
//	@Router			/cache/invalidate [post]
func (h *Handler) InvalidateCache(w http.ResponseWriter, _ *http.Request) {
	h.svc.InvalidateFilesCache()
	w.WriteHeader(http.StatusNoContent)
}
