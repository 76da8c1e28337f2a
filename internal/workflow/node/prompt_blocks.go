package node

import (
	"strings"

	"z-novel-desk/internal/domain/entity"
	wfmodel "z-novel-desk/internal/workflow/model"
)

const emptyBlock = "(none)"

// BuildWorldContextBlock 按 角色 / 地点 / 物品 分组列出实体摘要
func BuildWorldContextBlock(entities []entity.WorldEntity) string {
	if len(entities) == 0 {
		return emptyBlock
	}

	groups := make(map[entity.WorldEntityKind][]string, len(entity.WorldEntityKinds))
	for _, e := range entities {
		groups[e.Kind] = append(groups[e.Kind], e.Summary())
	}

	sections := make([]string, 0, len(entity.WorldEntityKinds))
	for _, kind := range entity.WorldEntityKinds {
		lines := groups[kind]
		if len(lines) == 0 {
			continue
		}
		sections = append(sections, "### "+kind.Heading()+"\n"+strings.Join(lines, "\n"))
	}
	if len(sections) == 0 {
		return emptyBlock
	}
	return strings.Join(sections, "\n\n")
}

// BuildOverviewBlock 项目概览
func BuildOverviewBlock(o wfmodel.ProjectOverview) string {
	return strings.Join([]string{
		"Title: " + orNone(o.Title),
		"Author: " + orNone(o.Author),
		"Plot: " + orNone(o.Plot),
	}, "\n")
}

// BuildChapterSettingsBlock 章节设置
func BuildChapterSettingsBlock(s entity.ChapterSettings) string {
	return strings.Join([]string{
		"Summary: " + orNone(s.Summary),
		"Age Offset: " + orNone(s.AgeOffset),
		"Style: " + orNone(s.Style),
	}, "\n")
}

// BuildChatHistoryBlock 最近若干轮对话
func BuildChatHistoryBlock(turns []entity.ChatTurn) string {
	if len(turns) == 0 {
		return emptyBlock
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		lines = append(lines, roleLabel(t.Role)+": "+content)
	}
	if len(lines) == 0 {
		return emptyBlock
	}
	return strings.Join(lines, "\n")
}

func roleLabel(r entity.ChatRole) string {
	switch r {
	case entity.ChatRoleAssistant:
		return "Assistant"
	case entity.ChatRoleSystem:
		return "System"
	default:
		return "Writer"
	}
}

func orNone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return emptyBlock
	}
	return s
}
