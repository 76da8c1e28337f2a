package node

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"z-novel-desk/internal/domain/entity"
)

func TestBuildWorldContextBlockGroupsByKind(t *testing.T) {
	out := BuildWorldContextBlock([]entity.WorldEntity{
		{Kind: entity.KindObject, Name: "Locket"},
		{Kind: entity.KindCharacter, Name: "Jane", AKA: "J", LifeStages: []entity.LifeStage{
			{Appearance: "young"},
			{Appearance: "grey", Motivation: "justice"},
		}},
	})

	assert.Equal(t, "### Characters\n- Jane (aka J): Appearance: grey; Motivation: justice\n\n### Objects\n- Locket", out)
	assert.Equal(t, "(none)", BuildWorldContextBlock(nil))
}

func TestTruncateAndTail(t *testing.T) {
	assert.Equal(t, "雨夜", TruncateByRunes("雨夜侦探", 2))
	assert.Equal(t, "侦探", TailByRunes("雨夜侦探", 2))
	assert.Equal(t, "abc", TailByRunes("abc", 10))
	assert.Empty(t, TailByRunes("abc", 0))
}

func TestOpaqueLLMError(t *testing.T) {
	assert.Equal(t, "request timed out", OpaqueLLMError(fmt.Errorf("recv: %w", context.DeadlineExceeded)))
	assert.Equal(t, "boom", OpaqueLLMError(errors.New("boom")))
	assert.Empty(t, OpaqueLLMError(nil))
	assert.True(t, IsAuthError(errors.New("status 401 Unauthorized")))
}
