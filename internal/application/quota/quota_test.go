package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/service"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLedgerRecordsPerProject(t *testing.T) {
	l := NewUsageLedger()
	l.now = fixedNow(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, service.LLMUsageInput{ProjectID: "p1", Workflow: "assist_rewrite", Model: "gpt-4-turbo", PromptTokens: 100, CompletionTokens: 20}))
	require.NoError(t, l.Record(ctx, service.LLMUsageInput{ProjectID: "p1", Workflow: "assist_chat", Model: "gpt-4-turbo", PromptTokens: 50, CompletionTokens: 5}))
	require.NoError(t, l.Record(ctx, service.LLMUsageInput{ProjectID: "", PromptTokens: 999}))
	assert.Error(t, l.Record(ctx, service.LLMUsageInput{ProjectID: "p1", PromptTokens: -1}))

	u := l.Usage("p1")
	assert.Equal(t, int64(2), u.Calls)
	assert.Equal(t, int64(150), u.PromptTokens)
	assert.Equal(t, int64(25), u.CompletionTokens)
	assert.Equal(t, int64(175), u.TodayTokens)
	assert.Equal(t, int64(2), u.ByModel["gpt-4-turbo"].Calls)
	assert.Equal(t, int64(20), u.ByWorkflow["assist_rewrite"].CompletionTokens)

	empty := l.Usage("p2")
	assert.Zero(t, empty.Calls)
	assert.NotNil(t, empty.ByModel)
}

func TestCheckDailyTokens(t *testing.T) {
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	l := NewUsageLedger()
	l.now = fixedNow(day)
	require.NoError(t, l.Record(context.Background(), service.LLMUsageInput{ProjectID: "p1", PromptTokens: 90, CompletionTokens: 10}))

	c := NewTokenQuotaChecker(&config.Config{Assistant: config.AssistantConfig{DailyTokenBudget: 100}}, l)
	c.now = fixedNow(day)

	used, max, err := c.CheckDailyTokens(context.Background(), "p1")
	var exceeded TokenQuotaExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, int64(100), used)
	assert.Equal(t, int64(100), max)

	_, _, err = c.CheckDailyTokens(context.Background(), "p2")
	assert.NoError(t, err)

	c.now = fixedNow(day.Add(24 * time.Hour))
	_, _, err = c.CheckDailyTokens(context.Background(), "p1")
	assert.NoError(t, err, "budget resets the next day")

	unlimited := NewTokenQuotaChecker(&config.Config{}, l)
	_, max, err = unlimited.CheckDailyTokens(context.Background(), "p1")
	assert.NoError(t, err)
	assert.Zero(t, max)
}
