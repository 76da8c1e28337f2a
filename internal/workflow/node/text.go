package node

import "unicode/utf8"

// TruncateByRunes 按 rune 截断
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TailByRunes 保留末尾 maxRunes 个 rune
func TailByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= maxRunes {
		return s
	}
	skip := total - maxRunes
	n := 0
	for i := range s {
		if n == skip {
			return s[i:]
		}
		n++
	}
	return ""
}
