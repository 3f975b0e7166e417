package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultmcp/internal/apperr"
	"github.com/starford/vaultmcp/internal/index"
	"github.com/starford/vaultmcp/internal/testutil"
)

func newGrep(t *testing.T, mv *testutil.MemVault, opts ...GrepOption) *Grep {
	t.Helper()
	g, err := NewGrep(index.NewWalker(mv, nil), mv, nil, opts...)
	require.NoError(t, err)
	return g
}

func TestGrepMatchWithContext(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"n.md": "foo\nbar baz\nqux"})
	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "bar"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	m := res.Matches[0]
	assert.Equal(t, "n.md", m.File)
	assert.Equal(t, 2, m.Line)
	assert.Equal(t, "bar baz", m.Content)
	require.NotNil(t, m.ContextBefore)
	require.NotNil(t, m.ContextAfter)
	assert.Equal(t, "foo", *m.ContextBefore)
	assert.Equal(t, "qux", *m.ContextAfter)
}

func TestGrepContextAbsentAtBoundaries(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"n.md": "hit first\nmiddle\nhit last"})
	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "hit"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	assert.Nil(t, res.Matches[0].ContextBefore)
	assert.Equal(t, "middle", *res.Matches[0].ContextAfter)
	assert.Equal(t, "middle", *res.Matches[1].ContextBefore)
	assert.Nil(t, res.Matches[1].ContextAfter)
}

func TestGrepBlankContextLineIsPresent(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"n.md": "\nneedle\n"})
	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "needle"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	require.NotNil(t, res.Matches[0].ContextBefore)
	assert.Equal(t, "", *res.Matches[0].ContextBefore)
	require.NotNil(t, res.Matches[0].ContextAfter)
	assert.Equal(t, "", *res.Matches[0].ContextAfter)
}

func TestGrepInvalidRegexReadsNothing(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"n.md": "anything"})
	_, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "(unclosed", Regex: true})
	assert.ErrorIs(t, err, apperr.ErrInvalidPattern)
	assert.Zero(t, mv.ReadCalls())
	assert.Zero(t, mv.ListCalls())
}

func TestGrepLiteralIsEscaped(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"n.md": "axb\na.b\n(unclosed"})
	g := newGrep(t, mv)

	res, err := g.Search(context.Background(), ContentQuery{Query: "a.b"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 2, res.Matches[0].Line)

	res, err = g.Search(context.Background(), ContentQuery{Query: "(unclosed"})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
}

func TestGrepRegexAndCase(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"n.md": "TODO: one\ntodo: two\nDONE"})
	g := newGrep(t, mv)
	ctx := context.Background()

	res, err := g.Search(ctx, ContentQuery{Query: "todo"})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 2, "case-insensitive by default")

	res, err = g.Search(ctx, ContentQuery{Query: "todo", CaseSensitive: true})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 2, res.Matches[0].Line)

	res, err = g.Search(ctx, ContentQuery{Query: `^(TODO|DONE)`, Regex: true, CaseSensitive: true})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 2)
}

func TestGrepStopsAtMaxResults(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{
		"a.md": "hit\nhit",
		"b.md": "hit",
		"c.md": "hit",
	})
	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "hit", MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 2)
	assert.True(t, res.LimitReached)
	assert.Equal(t, 1, mv.ReadCalls(), "no file may be read once the limit is reached")
}

func TestGrepOrderIsFileThenLine(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{
		"b.md":     "x\nhit",
		"a/z.md":   "hit\nhit",
		"a.md":     "hit",
	})
	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "hit"})
	require.NoError(t, err)

	var got []string
	for _, m := range res.Matches {
		got = append(got, m.File+":"+string(rune('0'+m.Line)))
	}
	assert.Equal(t, []string{"a.md:1", "a/z.md:1", "a/z.md:2", "b.md:2"}, got)
}

func TestGrepSkipsUnreadableFiles(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{
		"a.md": "hit",
		"b.md": "hit",
		"c.md": "hit",
	})
	mv.FailRead("b.md", testutil.ErrBroken)

	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "hit"})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 2)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "b.md", res.Skipped[0].File)
	assert.True(t, errors.Is(res.Skipped[0].Err, testutil.ErrBroken))
}

func TestGrepOnlyMarkdownByDefault(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{
		"note.md":   "hit",
		"data.json": "hit",
		"img.png":   "hit",
	})
	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "hit"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, []string{"note.md"}, mv.Reads())
}

func TestGrepExcludeGlob(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{
		"note.md":                      "hit",
		".trash-http-mcp/old_note.md": "hit",
	})
	res, err := newGrep(t, mv, WithExclude(".trash-http-mcp/**")).Search(context.Background(), ContentQuery{Query: "hit"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "note.md", res.Matches[0].File)
}

func TestGrepRejectsBadGlob(t *testing.T) {
	mv := testutil.NewMemVault(nil)
	_, err := NewGrep(index.NewWalker(mv, nil), mv, nil, WithInclude("[unclosed"))
	assert.ErrorIs(t, err, apperr.ErrInvalidPattern)
}

func TestGrepEmptyQuery(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"n.md": "x"})
	_, err := newGrep(t, mv).Search(context.Background(), ContentQuery{})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Zero(t, mv.ListCalls())
}

func TestGrepPartialWalk(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{
		"ok/a.md":     "hit",
		"broken/b.md": "hit",
	})
	mv.FailList("broken", testutil.ErrBroken)
	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "hit"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "ok/a.md", res.Matches[0].File)
	require.Len(t, res.FailedFolders, 1)
	assert.Equal(t, "broken", res.FailedFolders[0].Path)
}

func TestGrepRootFailure(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"a.md": "hit"})
	mv.FailList("", testutil.ErrBroken)
	_, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: "hit"})
	assert.ErrorIs(t, err, testutil.ErrBroken)
}

func TestGrepCRLF(t *testing.T) {
	mv := testutil.NewMemVault(map[string]string{"n.md": "one\r\ntwo end\r\nthree"})
	res, err := newGrep(t, mv).Search(context.Background(), ContentQuery{Query: `end$`, Regex: true})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "two end", res.Matches[0].Content)
	assert.Equal(t, "one", *res.Matches[0].ContextBefore)
}
