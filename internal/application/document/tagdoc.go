// Package document 实现章节文件的三段标签格式（text / settings / critique）。
//
// 序列化形式：
//
//	<text>…</text>
//	<settings>{ "summary": …, "ageOffset": …, "style": … }</settings>
//	<critique>…</critique>
//
// 不含 <text> 开标签的内容视为旧版纯文本，整体作为 text。
// 字段中若出现字面量闭合标签（如 "</text>"）则无法往返，这是格式本身的限制。
package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/pkg/logger"
)

// Section 文档段名
type Section string

const (
	SectionText     Section = "text"
	SectionSettings Section = "settings"
	SectionCritique Section = "critique"
)

func (s Section) open() string  { return "<" + string(s) + ">" }
func (s Section) close() string { return "</" + string(s) + ">" }

// sectionSpan 一段在原文中的解析结果
type sectionSpan struct {
	inner string
	found bool
}

// taggedRecord 显式的解析中间结果：旧版或三段各自是否存在
type taggedRecord struct {
	legacy   bool
	raw      string
	text     sectionSpan
	settings sectionSpan
	critique sectionSpan
}

// scan 把原文拆成 taggedRecord。
// 三段按 text -> settings -> critique 顺序依次查找，每段取开标签到其后第一个闭标签（非贪婪）；
// 正文中出现的字面量开标签因此不会被当作后续段。顺序查找失败的段再从头独立查找一次（乱序文件）。
func scan(raw string) taggedRecord {
	if !strings.Contains(raw, SectionText.open()) {
		return taggedRecord{legacy: true, raw: raw}
	}

	rec := taggedRecord{raw: raw}
	pos := 0
	rec.text, pos = extractFrom(raw, SectionText, 0)
	rec.settings, pos = extractOrdered(raw, SectionSettings, pos)
	rec.critique, _ = extractOrdered(raw, SectionCritique, pos)
	return rec
}

// extractOrdered 先从 from 之后查找，失败时退回全文查找；返回后续查找的起点
func extractOrdered(raw string, sec Section, from int) (sectionSpan, int) {
	if span, end := extractFrom(raw, sec, from); span.found {
		return span, end
	}
	span, _ := extractFrom(raw, sec, 0)
	return span, from
}

// extractFrom 从 from 开始查找一段，返回该段及其闭标签之后的位置；未找到时位置为 from
func extractFrom(raw string, sec Section, from int) (sectionSpan, int) {
	start := strings.Index(raw[from:], sec.open())
	if start < 0 {
		return sectionSpan{}, from
	}
	start += from + len(sec.open())
	end := strings.Index(raw[start:], sec.close())
	if end < 0 {
		return sectionSpan{}, from
	}
	return sectionSpan{inner: raw[start : start+end], found: true}, start + end + len(sec.close())
}

// Parse 解析章节文件，永不失败
func Parse(raw string) entity.ChapterDocument {
	rec := scan(raw)
	if rec.legacy {
		return entity.ChapterDocument{Text: raw}
	}

	doc := entity.ChapterDocument{
		Text:     rec.text.inner,
		Critique: rec.critique.inner,
	}
	if rec.settings.found {
		doc.Settings = parseSettings(rec.settings.inner)
	}
	return doc
}

// parseSettings 按键读取 settings JSON，非字符串值（如数字 ageOffset）转为文本；
// 只有 JSON 本身无法解析时才把整段原文作为旧版 summary
func parseSettings(inner string) entity.ChapterSettings {
	dec := json.NewDecoder(strings.NewReader(inner))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		logger.Default().Debug("chapter settings is not json, using legacy summary", "error", err)
		return entity.ChapterSettings{Summary: inner}
	}
	return entity.ChapterSettings{
		Summary:   settingText(fields["summary"]),
		AgeOffset: settingText(fields["ageOffset"]),
		Style:     settingText(fields["style"]),
	}
}

func settingText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

// Serialize 按固定顺序输出三段
func Serialize(doc entity.ChapterDocument) string {
	return compose(doc.Text, encodeSettings(doc.Settings), doc.Critique)
}

// InjectCritique 仅替换 critique 段，text / settings 原文保持不变。
// 无标签的旧版内容整体作为 text 包裹；缺失的 settings 段使用默认值。
func InjectCritique(raw, critique string) string {
	rec := scan(raw)
	if rec.legacy {
		return compose(raw, encodeSettings(entity.ChapterSettings{}), critique)
	}

	settings := rec.settings.inner
	if !rec.settings.found {
		settings = encodeSettings(entity.ChapterSettings{})
	}
	return compose(rec.text.inner, settings, critique)
}

// HasTags 原文是否已是标签格式
func HasTags(raw string) bool {
	return !scan(raw).legacy
}

func compose(text, settings, critique string) string {
	var b strings.Builder
	b.Grow(len(text) + len(settings) + len(critique) + 64)
	b.WriteString(SectionText.open())
	b.WriteString(text)
	b.WriteString(SectionText.close())
	b.WriteByte('\n')
	b.WriteString(SectionSettings.open())
	b.WriteString(settings)
	b.WriteString(SectionSettings.close())
	b.WriteByte('\n')
	b.WriteString(SectionCritique.open())
	b.WriteString(critique)
	b.WriteString(SectionCritique.close())
	return b.String()
}

func encodeSettings(s entity.ChapterSettings) string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		// 仅包含字符串字段，不会失败
		return "{}"
	}
	return string(data)
}
