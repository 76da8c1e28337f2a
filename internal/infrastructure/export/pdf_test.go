package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPDF(t *testing.T) {
	data, err := NewPDFRenderer().Render(Manuscript{
		Title:  "Night Rain",
		Author: "A. Writer",
		Chapters: []ManuscriptChapter{
			{Heading: "Chapter 1", Body: "Rain again.\n\nShe lit a cigarette. Café au lait."},
			{Heading: "Chapter 2", Body: ""},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "%%EOF")
}

func TestRenderUntitled(t *testing.T) {
	data, err := NewPDFRenderer().Render(Manuscript{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestParagraphs(t *testing.T) {
	assert.Nil(t, paragraphs("  \n "))
	assert.Equal(t, []string{"a\nb", "c"}, paragraphs("a\nb\n\n\n\nc\n"))
}
