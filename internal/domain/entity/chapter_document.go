// Package entity 定义领域实体
package entity

// ChapterSettings 章节作者元数据，用于丰富 AI 提示
type ChapterSettings struct {
	Summary   string `json:"summary"`
	AgeOffset string `json:"ageOffset"`
	Style     string `json:"style"`
}

// IsZero 是否全部为空
func (s ChapterSettings) IsZero() bool {
	return s == ChapterSettings{}
}

// ChapterDocument 章节文档（text / settings / critique 三段）
type ChapterDocument struct {
	// Text 正文富文本，核心逻辑只把它当作字符串
	Text     string          `json:"text"`
	Settings ChapterSettings `json:"settings"`
	// Critique 最近一次 AI 评审，可由作者编辑
	Critique string `json:"critique"`
}

// Chapter 章节索引项
type Chapter struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Order int    `json:"order"`
}
