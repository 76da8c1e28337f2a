package chain

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-desk/internal/domain/entity"
	wfmodel "z-novel-desk/internal/workflow/model"
)

func TestCritiquePromptSectionOrder(t *testing.T) {
	b := NewPromptBuilder()

	out, err := b.CritiquePrompt(context.Background(), &wfmodel.CritiquePromptInput{
		Overview: wfmodel.ProjectOverview{Plot: "A detective story"},
		Settings: entity.ChapterSettings{Summary: "She finds the body", Style: "noir, first person"},
		World: []entity.WorldEntity{
			{Kind: entity.KindCharacter, Name: "Jane", Description: "A tired PI"},
		},
		ChapterText: "Rain again.",
	})
	require.NoError(t, err)

	fragments := []string{
		"pacing, tone, character voice, and consistency with the world and plot",
		"## Project Overview",
		"A detective story",
		"## Chapter Settings",
		"She finds the body",
		"noir, first person",
		"## World Context",
		"- Jane: A tired PI",
		"## Chapter Text",
		"Rain again.",
	}
	last := -1
	for _, f := range fragments {
		idx := strings.Index(out, f)
		require.GreaterOrEqual(t, idx, 0, "missing fragment %q", f)
		assert.Greater(t, idx, last, "fragment %q out of order", f)
		last = idx
	}
}

func TestRewritePromptPerMode(t *testing.T) {
	b := NewPromptBuilder()

	tests := []struct {
		mode entity.AssistMode
		want string
	}{
		{entity.ModeRewrite, "flow, tone, and clarity"},
		{entity.ModeShorten, "more concise"},
		{entity.ModeLengthen, "sensory detail"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			out, err := b.RewritePrompt(context.Background(), &wfmodel.RewritePromptInput{
				Mode:         tt.mode,
				StyleNotes:   "clipped sentences",
				World:        []entity.WorldEntity{{Kind: entity.KindPlace, Name: "Harbor"}},
				FullText:     "Whole chapter {with braces}.",
				SelectedText: "the selected bit",
			})
			require.NoError(t, err)

			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "## Style Notes\nclipped sentences")
			assert.Contains(t, out, "### Places\n- Harbor")
			assert.Contains(t, out, "do not output this")
			assert.Contains(t, out, "Whole chapter {with braces}.")
			assert.Less(t, strings.Index(out, "Whole chapter"), strings.Index(out, "the selected bit"))
			assert.Contains(t, out, "Output only the replacement prose")
		})
	}
}

func TestRewritePromptOmitsEmptyBlocks(t *testing.T) {
	b := NewPromptBuilder()

	out, err := b.RewritePrompt(context.Background(), &wfmodel.RewritePromptInput{
		Mode:         entity.ModeRewrite,
		FullText:     "x",
		SelectedText: "x",
	})
	require.NoError(t, err)

	assert.NotContains(t, out, "Style Notes")
	assert.NotContains(t, out, "World Context")
}

func TestRewritePromptRejectsNonRewriteMode(t *testing.T) {
	_, err := NewPromptBuilder().RewritePrompt(context.Background(), &wfmodel.RewritePromptInput{
		Mode:         entity.ModeChat,
		SelectedText: "x",
	})
	assert.Error(t, err)
}

func TestChatPrompt(t *testing.T) {
	b := NewPromptBuilder()

	out, err := b.ChatPrompt(context.Background(), &wfmodel.ChatPromptInput{
		Overview: wfmodel.ProjectOverview{Title: "Night Harbor"},
		Settings: &entity.ChapterSettings{Summary: "The stakeout"},
		History: []entity.ChatTurn{
			{Role: entity.ChatRoleUser, Content: "Who is Jane?"},
			{Role: entity.ChatRoleAssistant, Content: "The detective."},
		},
		Message: "What should happen next?",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Title: Night Harbor")
	assert.Contains(t, out, "Summary: The stakeout")
	assert.Contains(t, out, "Writer: Who is Jane?\nAssistant: The detective.")
	assert.True(t, strings.HasSuffix(out, "What should happen next?"))

	_, err = b.ChatPrompt(context.Background(), &wfmodel.ChatPromptInput{Message: "  "})
	assert.Error(t, err)
}
