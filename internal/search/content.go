package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/vaultmcp/internal/apperr"
	"github.com/starford/vaultmcp/internal/index"
	"github.com/starford/vaultmcp/internal/vault"
)

// DefaultContentResults is the match cap when none is given.
const DefaultContentResults = 100

// DefaultInclude restricts content search to Markdown notes.
var DefaultInclude = []string{"**/*.md"}

// ContentMatch is one matching line. Context lines are nil at file boundaries.
type ContentMatch struct {
	File          string  `json:"file"`
	Line          int     `json:"line"`
	Content       string  `json:"content"`
	ContextBefore *string `json:"context_before,omitempty"`
	ContextAfter  *string `json:"context_after,omitempty"`
}

// ContentQuery describes a grep request.
type ContentQuery struct {
	Query         string
	CaseSensitive bool
	Regex         bool
	MaxResults    int
}

// Skipped is a file that could not be read and was left out of the scan.
type Skipped struct {
	File string `json:"file"`
	Err  error  `json:"-"`
}

// ContentResult holds matches in file-then-line order.
type ContentResult struct {
	Matches       []ContentMatch
	Skipped       []Skipped
	FailedFolders []index.Failure
	FilesScanned  int
	LimitReached  bool
}

// CompilePattern builds the line matcher for q. Non-regex queries are quoted
// so every character is literal.
func CompilePattern(query string, useRegex, caseSensitive bool) (*regexp.Regexp, error) {
	expr := query
	if !useRegex {
		expr = regexp.QuoteMeta(query)
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidPattern, err)
	}
	return re, nil
}

// Grep scans note contents line by line.
type Grep struct {
	walker  index.FileWalker
	reader  vault.Reader
	include []string
	exclude []string
	logger  *slog.Logger
}

// GrepOption configures a Grep.
type GrepOption func(*Grep)

// WithInclude sets the doublestar patterns a file must match to be scanned.
func WithInclude(patterns ...string) GrepOption {
	return func(g *Grep) { g.include = patterns }
}

// WithExclude sets doublestar patterns that remove files from the scan.
func WithExclude(patterns ...string) GrepOption {
	return func(g *Grep) { g.exclude = patterns }
}

// NewGrep creates a content search engine. It walks the vault on every call
// rather than reading the filename cache, so results never lag a mutation.
func NewGrep(walker index.FileWalker, reader vault.Reader, logger *slog.Logger, opts ...GrepOption) (*Grep, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Grep{walker: walker, reader: reader, include: DefaultInclude, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	for _, p := range append(append([]string{}, g.include...), g.exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("search: invalid glob %q: %w", p, apperr.ErrInvalidPattern)
		}
	}
	return g, nil
}

func (g *Grep) wanted(path string) bool {
	included := false
	for _, p := range g.include {
		if ok, _ := doublestar.Match(p, path); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, p := range g.exclude {
		if ok, _ := doublestar.Match(p, path); ok {
			return false
		}
	}
	return true
}

// Search returns up to MaxResults matching lines. The pattern is compiled
// before the vault is touched. Unreadable files are logged and skipped.
func (g *Grep) Search(ctx context.Context, q ContentQuery) (*ContentResult, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("%w: query parameter is required", apperr.ErrInvalidArgument)
	}
	re, err := CompilePattern(q.Query, q.Regex, q.CaseSensitive)
	if err != nil {
		return nil, err
	}
	limit := q.MaxResults
	if limit <= 0 {
		limit = DefaultContentResults
	}

	walked, err := g.walker.Walk(ctx, "")
	if err != nil {
		return nil, err
	}

	res := &ContentResult{Matches: []ContentMatch{}, FailedFolders: walked.Failures}
	for _, file := range walked.Files {
		if len(res.Matches) >= limit {
			res.LimitReached = true
			break
		}
		if !g.wanted(file) {
			continue
		}
		content, err := g.reader.Read(ctx, file)
		if err != nil {
			g.logger.Warn("grep: failed to read file",
				slog.String("file", file),
				slog.String("error", err.Error()))
			res.Skipped = append(res.Skipped, Skipped{File: file, Err: err})
			continue
		}
		res.FilesScanned++
		res.Matches = scanLines(file, content, re, limit, res.Matches)
	}
	if len(res.Matches) >= limit {
		res.LimitReached = true
	}
	return res, nil
}

// scanLines appends matches from content until limit is reached.
func scanLines(file, content string, re *regexp.Regexp, limit int, out []ContentMatch) []ContentMatch {
	lines := strings.Split(content, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	for i, line := range lines {
		if len(out) >= limit {
			break
		}
		if !re.MatchString(line) {
			continue
		}
		m := ContentMatch{File: file, Line: i + 1, Content: line}
		if i > 0 {
			m.ContextBefore = &lines[i-1]
		}
		if i < len(lines)-1 {
			m.ContextAfter = &lines[i+1]
		}
		out = append(out, m)
	}
	return out
}
