// Package quota 提供项目级 LLM 用量统计与 Token 日配额
package quota

import (
	"context"
	"fmt"
	"time"

	"z-novel-desk/internal/config"
)

// TokenQuotaExceededError 表示项目 Token 日配额已耗尽
type TokenQuotaExceededError struct {
	ProjectID string
	Max       int64
	Used      int64
}

func (e TokenQuotaExceededError) Error() string {
	return fmt.Sprintf("token quota exceeded: project=%s used=%d max=%d", e.ProjectID, e.Used, e.Max)
}

// TokenQuotaChecker 用于检查项目 Token 日配额
type TokenQuotaChecker struct {
	ledger *UsageLedger
	max    int64
	now    func() time.Time
}

// NewTokenQuotaChecker 配额为 0 时不限制
func NewTokenQuotaChecker(cfg *config.Config, ledger *UsageLedger) *TokenQuotaChecker {
	return &TokenQuotaChecker{
		ledger: ledger,
		max:    cfg.Assistant.DailyTokenBudget,
		now:    time.Now,
	}
}

// CheckDailyTokens 检查项目是否还有当日 Token 配额。
// 返回：used/max（便于客户端展示），以及是否超过配额的 error。
func (c *TokenQuotaChecker) CheckDailyTokens(_ context.Context, projectID string) (used int64, max int64, err error) {
	if c == nil || c.max <= 0 || c.ledger == nil {
		return 0, 0, nil
	}
	used = c.ledger.TokensOn(projectID, c.now())
	if used >= c.max {
		return used, c.max, TokenQuotaExceededError{
			ProjectID: projectID,
			Max:       c.max,
			Used:      used,
		}
	}
	return used, c.max, nil
}
