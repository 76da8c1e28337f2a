package document

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements 换段的块级元素
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "pre": true, "hr": true,
}

// PlainText 把编辑器富文本（HTML 片段）压平为纯文本，供提示与导出使用。
// 非 HTML 内容原样返回（仅规范化换行）。
func PlainText(rich string) string {
	if !strings.ContainsAny(rich, "<&") {
		return normalizeNewlines(rich)
	}

	nodes, err := html.ParseFragment(strings.NewReader(rich), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return normalizeNewlines(rich)
	}

	var b strings.Builder
	for _, n := range nodes {
		walkText(&b, n)
	}
	return collapseBlankLines(normalizeNewlines(b.String()))
}

func walkText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
		if n.Data == "br" {
			b.WriteByte('\n')
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(b, c)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		b.WriteByte('\n')
	}
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// collapseBlankLines 最多保留一个空行，去掉首尾空白行
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blank = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}
