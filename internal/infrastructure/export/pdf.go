// Package export 渲染书稿导出格式
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// ManuscriptChapter 一个章节的导出内容（纯文本）
type ManuscriptChapter struct {
	Heading string
	Body    string
}

// Manuscript 待导出的整部书稿
type Manuscript struct {
	Title    string
	Author   string
	Chapters []ManuscriptChapter
}

// PDFOptions 版式参数
type PDFOptions struct {
	PageSize   string
	FontFamily string
	BodySize   float64
	LineHeight float64
}

// DefaultPDFOptions A4、Times 11pt
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:   "A4",
		FontFamily: "Times",
		BodySize:   11,
		LineHeight: 5.5,
	}
}

// PDFRenderer 基于 fpdf 的书稿渲染器
type PDFRenderer struct {
	opts PDFOptions
}

// NewPDFRenderer 创建 PDF 渲染器
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{opts: DefaultPDFOptions()}
}

// WithOptions 替换版式参数
func (r *PDFRenderer) WithOptions(opts PDFOptions) *PDFRenderer {
	r.opts = opts
	return r
}

// Render 输出标题页与按序排列的章节
func (r *PDFRenderer) Render(m Manuscript) ([]byte, error) {
	opts := r.opts
	pdf := fpdf.New("P", "mm", opts.PageSize, "")
	pdf.SetMargins(25, 25, 25)
	pdf.SetAutoPageBreak(true, 20)

	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = "Untitled"
	}
	pdf.SetTitle(title, true)
	if m.Author != "" {
		pdf.SetAuthor(m.Author, true)
	}
	pdf.SetCreator("z-novel-desk", true)

	// 核心字体只支持 cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		if pdf.PageNo() == 1 {
			return
		}
		pdf.SetY(-15)
		pdf.SetFont(opts.FontFamily, "I", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()-1), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.Ln(70)
	pdf.SetFont(opts.FontFamily, "B", 28)
	pdf.MultiCell(0, 12, tr(title), "", "C", false)
	if author := strings.TrimSpace(m.Author); author != "" {
		pdf.Ln(8)
		pdf.SetFont(opts.FontFamily, "", 16)
		pdf.CellFormat(0, 10, tr("by "+author), "", 1, "C", false, 0, "")
	}

	for _, ch := range m.Chapters {
		pdf.AddPage()
		pdf.SetFont(opts.FontFamily, "B", 18)
		pdf.MultiCell(0, 9, tr(ch.Heading), "", "L", false)
		pdf.Ln(6)

		pdf.SetFont(opts.FontFamily, "", opts.BodySize)
		for _, para := range paragraphs(ch.Body) {
			pdf.MultiCell(0, opts.LineHeight, tr(para), "", "J", false)
			pdf.Ln(opts.LineHeight / 2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// paragraphs 按空行切分段落，段内换行保留
func paragraphs(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	parts := strings.Split(body, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
