package fs

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/pkg/errors"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/p1", 0o755))
	return NewStoreWithFs(mem), mem
}

func TestSettingsRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	got, err := s.LoadSettings(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, &entity.ProjectSettings{}, got)

	want := &entity.ProjectSettings{
		Title:  "Night Harbor",
		Author: "A. Writer",
		Plot:   "A detective story",
		ProviderConfig: entity.ProviderConfig{
			Provider:    "google",
			GoogleModel: "gemini-1.5-pro",
		},
	}
	require.NoError(t, s.SaveSettings(ctx, "p1", want))

	got, err = s.LoadSettings(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsFileFormat(t *testing.T) {
	s, mem := newTestStore(t)
	require.NoError(t, afero.WriteFile(mem, "/p1/project.json",
		[]byte(`{"title":"T","provider":"xai","xaiApiKey":"k"}`), 0o644))

	got, err := s.LoadSettings(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "xai", got.Provider)
	assert.Equal(t, "k", got.XAIAPIKey)
}

func TestSettingsMalformedFallsBack(t *testing.T) {
	s, mem := newTestStore(t)
	require.NoError(t, afero.WriteFile(mem, "/p1/project.json", []byte("{oops"), 0o644))

	got, err := s.LoadSettings(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, &entity.ProjectSettings{}, got)
}

func TestSettingsUnknownProject(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.LoadSettings(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrProjectNotFound)
}

func TestChapterLifecycleAndOrder(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateChapter(ctx, "p1", "one", "<text>1</text>")
	require.NoError(t, err)
	_, err = s.CreateChapter(ctx, "p1", "two", "legacy two")
	require.NoError(t, err)
	// 未登记在顺序表中的章节
	require.NoError(t, afero.WriteFile(mem, "/p1/chapters/aaa.txt", []byte("x"), 0o644))

	chapters, err := s.ListChapters(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "aaa"}, chapterIDs(chapters))
	assert.Equal(t, "chapters/two.txt", chapters[1].Path)

	require.NoError(t, s.ReorderChapters(ctx, "p1", []string{"two", "aaa", "one"}))
	chapters, err = s.ListChapters(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "aaa", "one"}, chapterIDs(chapters))

	raw, err := s.ReadChapter(ctx, "p1", "two")
	require.NoError(t, err)
	assert.Equal(t, "legacy two", raw)

	require.NoError(t, s.WriteChapter(ctx, "p1", "two", "updated"))
	raw, err = s.ReadChapter(ctx, "p1", "two")
	require.NoError(t, err)
	assert.Equal(t, "updated", raw)
}

func TestChapterErrors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReadChapter(ctx, "p1", "nope")
	assert.ErrorIs(t, err, errors.ErrChapterNotFound)

	_, err = s.CreateChapter(ctx, "p1", "c", "")
	require.NoError(t, err)
	_, err = s.CreateChapter(ctx, "p1", "c", "")
	assert.True(t, errors.HasCode(err, errors.CodeConflict))

	assert.True(t, errors.HasCode(s.ReorderChapters(ctx, "p1", []string{"c", "ghost"}), errors.CodeChapterNotFound))
	assert.True(t, errors.HasCode(s.ReorderChapters(ctx, "p1", []string{"c", "c"}), errors.CodeInvalidParam))

	_, err = s.ReadChapter(ctx, "p1", "../p2/secret")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidParam))
}

func TestEntitiesWithFallback(t *testing.T) {
	s, mem := newTestStore(t)
	require.NoError(t, afero.WriteFile(mem, "/p1/characters/jane.json",
		[]byte(`{"name":"Jane","aka":"J","lifeStages":[{"appearance":"tall"}]}`), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/p1/characters/broken.json", []byte("not json"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/p1/characters/notes.md", []byte("ignored"), 0o644))

	got, err := s.ListEntities(context.Background(), "p1", entity.KindCharacter)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "broken", got[0].Name)
	assert.Equal(t, "characters/broken.json", got[0].File)
	assert.Equal(t, entity.KindCharacter, got[0].Kind)

	assert.Equal(t, "Jane", got[1].Name)
	assert.Equal(t, "J", got[1].AKA)
	require.Len(t, got[1].LifeStages, 1)
	assert.Equal(t, "tall", got[1].LifeStages[0].Appearance)

	places, err := s.ListEntities(context.Background(), "p1", entity.KindPlace)
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestPathTraversalRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"../other/project.json", "/etc/passwd", "a/../../x", "", ".."} {
		_, err := s.ReadFile(ctx, "p1", p)
		assert.ErrorIs(t, err, errors.ErrPathOutside, p)
	}

	_, err := s.ReadFile(ctx, "..", "project.json")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidParam))
}

func TestReadWriteFile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteFile(ctx, "p1", "exports/./book.pdf", []byte("pdf")))
	data, err := s.ReadFile(ctx, "p1", "exports/book.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))

	_, err = s.ReadFile(ctx, "p1", "exports/missing.pdf")
	assert.True(t, errors.HasCode(err, errors.CodeFileNotFound))

	abs, err := s.AbsPath("p1", "exports/book.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/p1/exports/book.pdf", abs)
}

func chapterIDs(chs []entity.Chapter) []string {
	out := make([]string, 0, len(chs))
	for _, c := range chs {
		out = append(out, c.ID)
	}
	return out
}
