package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/entity"
	pdfexport "z-novel-desk/internal/infrastructure/export"
	"z-novel-desk/internal/infrastructure/persistence/fs"
	"z-novel-desk/pkg/errors"
)

func TestExportPDFWritesIntoProject(t *testing.T) {
	ctx := context.Background()
	store := fs.NewStoreWithFs(afero.NewMemMapFs())
	require.NoError(t, store.SaveSettings(ctx, "p1", &entity.ProjectSettings{Title: "Night Rain", Author: "A. Writer"}))
	_, err := store.CreateChapter(ctx, "p1", "chapter-1", "<text><p>Rain again.</p></text>")
	require.NoError(t, err)
	_, err = store.CreateChapter(ctx, "p1", "chapter-2", "legacy body")
	require.NoError(t, err)

	svc := NewService(&config.Config{}, store, pdfexport.NewPDFRenderer())
	res, err := svc.ExportPDF(ctx, "p1", "")
	require.NoError(t, err)

	assert.Equal(t, "exports/Night_Rain.pdf", res.Path)
	assert.Equal(t, 2, res.Chapters)
	assert.Equal(t, "/p1/exports/Night_Rain.pdf", res.AbsPath)

	data, err := store.ReadFile(ctx, "p1", res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, len(data))
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestExportPDFUnknownProject(t *testing.T) {
	svc := NewService(&config.Config{}, fs.NewStoreWithFs(afero.NewMemMapFs()), pdfexport.NewPDFRenderer())
	_, err := svc.ExportPDF(context.Background(), "nope", "book")
	assert.True(t, errors.HasCode(err, errors.CodeProjectNotFound))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "book.pdf", fileName("book.pdf", "ignored"))
	assert.Equal(t, "passwd.pdf", fileName("../../etc/passwd", ""))
	assert.Equal(t, "My_Novel.pdf", fileName("", "My Novel"))
	assert.Equal(t, "manuscript.pdf", fileName("", "   "))
}

func TestChapterHeading(t *testing.T) {
	assert.Equal(t, "Chapter 01 The Rain", chapterHeading("chapter-01_the_rain"))
	assert.Equal(t, "Prologue", chapterHeading("prologue"))
}
