package editor

import (
	"context"
	"sync"

	"z-novel-desk/internal/application/document"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/repository"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

// DocumentKey 打开文档的唯一键
func DocumentKey(projectID, chapterID string) string {
	return projectID + "/" + chapterID
}

// OpenDocument 编辑器中打开的一个章节：正文在 TextBuffer 中，设置与点评单独保存
type OpenDocument struct {
	ProjectID string
	ChapterID string
	Buffer    *TextBuffer

	mu       sync.RWMutex
	settings entity.ChapterSettings
	critique string
}

// Key 文档键
func (d *OpenDocument) Key() string {
	return DocumentKey(d.ProjectID, d.ChapterID)
}

// Settings 章节设置
func (d *OpenDocument) Settings() entity.ChapterSettings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.settings
}

// SetSettings 更新章节设置
func (d *OpenDocument) SetSettings(s entity.ChapterSettings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = s
}

// Critique 当前点评
func (d *OpenDocument) Critique() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.critique
}

// SetCritique 更新点评（点评完成时由控制器调用）
func (d *OpenDocument) SetCritique(c string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.critique = c
}

// Snapshot 当前文档内容
func (d *OpenDocument) Snapshot() entity.ChapterDocument {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return entity.ChapterDocument{
		Text:     d.Buffer.Text(),
		Settings: d.settings,
		Critique: d.critique,
	}
}

// Workspace 所有打开的文档
type Workspace struct {
	store repository.ChapterRepository

	mu   sync.Mutex
	docs map[string]*OpenDocument
}

// NewWorkspace 创建编辑工作区
func NewWorkspace(store repository.ChapterRepository) *Workspace {
	return &Workspace{
		store: store,
		docs:  make(map[string]*OpenDocument),
	}
}

// Open 从磁盘加载章节；已打开时直接返回现有实例，reload 为真时用磁盘内容覆盖
func (w *Workspace) Open(ctx context.Context, projectID, chapterID string, reload bool) (*OpenDocument, error) {
	key := DocumentKey(projectID, chapterID)

	w.mu.Lock()
	existing, ok := w.docs[key]
	w.mu.Unlock()
	if ok && !reload {
		return existing, nil
	}

	raw, err := w.store.ReadChapter(ctx, projectID, chapterID)
	if err != nil {
		return nil, err
	}
	parsed := document.Parse(raw)

	w.mu.Lock()
	defer w.mu.Unlock()
	if doc, ok := w.docs[key]; ok {
		doc.Buffer.SetText(parsed.Text)
		doc.SetSettings(parsed.Settings)
		doc.SetCritique(parsed.Critique)
		return doc, nil
	}

	doc := &OpenDocument{
		ProjectID: projectID,
		ChapterID: chapterID,
		Buffer:    NewTextBuffer(parsed.Text),
		settings:  parsed.Settings,
		critique:  parsed.Critique,
	}
	w.docs[key] = doc
	logger.Debug(ctx, "document opened", "document", key)
	return doc, nil
}

// Get 返回已打开的文档
func (w *Workspace) Get(projectID, chapterID string) (*OpenDocument, error) {
	doc, ok := w.Lookup(projectID, chapterID)
	if !ok {
		return nil, errors.ErrDocumentNotOpen.WithDetail(DocumentKey(projectID, chapterID))
	}
	return doc, nil
}

// Lookup 查找已打开的文档
func (w *Workspace) Lookup(projectID, chapterID string) (*OpenDocument, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs[DocumentKey(projectID, chapterID)]
	return doc, ok
}

// Save 序列化打开的文档并写回磁盘
func (w *Workspace) Save(ctx context.Context, projectID, chapterID string) error {
	doc, err := w.Get(projectID, chapterID)
	if err != nil {
		return err
	}
	raw := document.Serialize(doc.Snapshot())
	if err := w.store.WriteChapter(ctx, projectID, chapterID, raw); err != nil {
		return err
	}
	logger.Debug(ctx, "document saved", "document", doc.Key())
	return nil
}

// Close 关闭文档（不保存）
func (w *Workspace) Close(projectID, chapterID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, DocumentKey(projectID, chapterID))
}
