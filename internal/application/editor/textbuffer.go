// Package editor 提供打开中的章节文档（活动文档）及其选区、光标操作
package editor

import (
	"strings"
	"sync"

	"z-novel-desk/internal/domain/entity"
)

// LiveDocument 控制器所绑定的可编辑文档能力，坐标均为 rune 下标
type LiveDocument interface {
	Selection() entity.Range
	Text() string
	TextInRange(r entity.Range) string
	DeleteRange(r entity.Range)
	InsertAtCursor(s string)
	SetCursor(pos int)
}

// TextBuffer 内存中的纯文本文档。
// 互斥锁只保证单次操作不撕裂；流式插入与用户编辑之间的光标漂移不做协调。
type TextBuffer struct {
	mu        sync.Mutex
	runes     []rune
	cursor    int
	selection entity.Range
}

var _ LiveDocument = (*TextBuffer)(nil)

// NewTextBuffer 创建文档，光标位于末尾
func NewTextBuffer(text string) *TextBuffer {
	r := []rune(text)
	return &TextBuffer{
		runes:     r,
		cursor:    len(r),
		selection: entity.Range{Start: len(r), End: len(r)},
	}
}

// Text 全文
func (b *TextBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.runes)
}

// Len rune 数
func (b *TextBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.runes)
}

// SetText 整体替换内容，光标与选区收拢到末尾
func (b *TextBuffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runes = []rune(text)
	b.cursor = len(b.runes)
	b.selection = entity.Range{Start: b.cursor, End: b.cursor}
}

// Selection 当前选区
func (b *TextBuffer) Selection() entity.Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selection
}

// SetSelection 设置选区，光标移到选区末端
func (b *TextBuffer) SetSelection(r entity.Range) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r = b.clampRange(r)
	b.selection = r
	b.cursor = r.End
}

// Cursor 当前光标
func (b *TextBuffer) Cursor() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// SetCursor 移动光标并清空选区
func (b *TextBuffer) SetCursor(pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = b.clamp(pos)
	b.selection = entity.Range{Start: b.cursor, End: b.cursor}
}

// TextInRange 区间内文本
func (b *TextBuffer) TextInRange(r entity.Range) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	r = b.clampRange(r)
	return string(b.runes[r.Start:r.End])
}

// DeleteRange 删除区间，光标置于删除点
func (b *TextBuffer) DeleteRange(r entity.Range) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r = b.clampRange(r)
	b.runes = append(b.runes[:r.Start:r.Start], b.runes[r.End:]...)
	b.cursor = r.Start
	b.selection = entity.Range{Start: r.Start, End: r.Start}
}

// InsertAtCursor 在光标处插入并把光标移到插入内容之后
func (b *TextBuffer) InsertAtCursor(s string) {
	if s == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ins := []rune(s)
	pos := b.clamp(b.cursor)

	out := make([]rune, 0, len(b.runes)+len(ins))
	out = append(out, b.runes[:pos]...)
	out = append(out, ins...)
	out = append(out, b.runes[pos:]...)
	b.runes = out

	b.cursor = pos + len(ins)
	b.selection = entity.Range{Start: b.cursor, End: b.cursor}
}

// FindAll 返回 query 所有不重叠出现位置
func (b *TextBuffer) FindAll(query string, caseSensitive bool) []entity.Range {
	if query == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return findAll(b.runes, []rune(query), caseSensitive)
}

// ReplaceAll 替换所有出现，返回替换次数
func (b *TextBuffer) ReplaceAll(query, replacement string, caseSensitive bool) int {
	if query == "" {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	hits := findAll(b.runes, []rune(query), caseSensitive)
	if len(hits) == 0 {
		return 0
	}

	rep := []rune(replacement)
	out := make([]rune, 0, len(b.runes))
	last := 0
	for _, h := range hits {
		out = append(out, b.runes[last:h.Start]...)
		out = append(out, rep...)
		last = h.End
	}
	out = append(out, b.runes[last:]...)
	b.runes = out

	b.cursor = len(b.runes)
	b.selection = entity.Range{Start: b.cursor, End: b.cursor}
	return len(hits)
}

func findAll(haystack, needle []rune, caseSensitive bool) []entity.Range {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil
	}
	h, n := haystack, needle
	if !caseSensitive {
		h = []rune(strings.ToLower(string(haystack)))
		n = []rune(strings.ToLower(string(needle)))
		// 大小写转换改变了长度时退回精确匹配
		if len(h) != len(haystack) || len(n) != len(needle) {
			h, n = haystack, needle
		}
	}

	var out []entity.Range
	for i := 0; i+len(n) <= len(h); {
		if equalRunes(h[i:i+len(n)], n) {
			out = append(out, entity.Range{Start: i, End: i + len(n)})
			i += len(n)
			continue
		}
		i++
	}
	return out
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (b *TextBuffer) clamp(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > len(b.runes) {
		return len(b.runes)
	}
	return pos
}

func (b *TextBuffer) clampRange(r entity.Range) entity.Range {
	r = r.Normalize()
	return entity.Range{Start: b.clamp(r.Start), End: b.clamp(r.End)}
}
