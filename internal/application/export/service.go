// Package export 组装书稿并写入项目的导出目录
package export

import (
	"context"
	"path"
	"regexp"
	"strings"

	"z-novel-desk/internal/application/document"
	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/repository"
	pdfexport "z-novel-desk/internal/infrastructure/export"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
	"z-novel-desk/pkg/metrics"
)

const defaultExportDir = "exports"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Result 导出结果
type Result struct {
	Path     string `json:"path"`
	AbsPath  string `json:"abs_path"`
	Bytes    int    `json:"bytes"`
	Chapters int    `json:"chapters"`
}

// Service 书稿导出
type Service struct {
	store     repository.ProjectStore
	renderer  *pdfexport.PDFRenderer
	exportDir string
}

// NewService 创建导出服务
func NewService(cfg *config.Config, store repository.ProjectStore, renderer *pdfexport.PDFRenderer) *Service {
	dir := strings.Trim(cfg.Workspace.ExportDir, "/")
	if dir == "" {
		dir = defaultExportDir
	}
	return &Service{store: store, renderer: renderer, exportDir: dir}
}

// ExportPDF 按章节顺序导出 PDF；name 为空时以项目标题命名
func (s *Service) ExportPDF(ctx context.Context, projectID, name string) (res *Result, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.ExportTotal.WithLabelValues("pdf", status).Inc()
	}()

	settings, err := s.store.LoadSettings(ctx, projectID)
	if err != nil {
		return nil, err
	}
	chapters, err := s.store.ListChapters(ctx, projectID)
	if err != nil {
		return nil, err
	}

	m := pdfexport.Manuscript{Title: settings.Title, Author: settings.Author}
	for _, ch := range chapters {
		raw, err := s.store.ReadChapter(ctx, projectID, ch.ID)
		if err != nil {
			return nil, err
		}
		doc := document.Parse(raw)
		m.Chapters = append(m.Chapters, pdfexport.ManuscriptChapter{
			Heading: chapterHeading(ch.ID),
			Body:    document.PlainText(doc.Text),
		})
	}

	data, err := s.renderer.Render(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExportFailed, "failed to render pdf")
	}

	rel := path.Join(s.exportDir, fileName(name, settings.Title))
	if err := s.store.WriteFile(ctx, projectID, rel, data); err != nil {
		return nil, err
	}
	abs, err := s.store.AbsPath(projectID, rel)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "manuscript exported", "project_id", projectID, "path", rel, "chapters", len(chapters), "bytes", len(data))
	return &Result{Path: rel, AbsPath: abs, Bytes: len(data), Chapters: len(chapters)}, nil
}

// fileName 生成安全的文件名，总是以 .pdf 结尾
func fileName(name, title string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = strings.TrimSpace(title)
	}
	base = strings.TrimSuffix(path.Base(base), ".pdf")
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "manuscript"
	}
	return base + ".pdf"
}

// chapterHeading "chapter-01_the_rain" -> "Chapter 01 The Rain"
func chapterHeading(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return id
	}
	return strings.Join(words, " ")
}
