package fs

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

func chapterPath(chapterID string) string {
	return path.Join("/", chaptersDir, chapterID+chapterExt)
}

// ListChapters 先按 chapter_order.json 排列，未登记的章节按名称追加
func (s *Store) ListChapters(ctx context.Context, projectID string) ([]entity.Chapter, error) {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return nil, err
	}

	names, err := listNames(pfs, "/"+chaptersDir, chapterExt)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to list chapters")
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[strings.TrimSuffix(n, path.Ext(n))] = true
	}

	ids := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, id := range s.readOrder(ctx, pfs, projectID) {
		if present[id] && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	for _, n := range names {
		id := strings.TrimSuffix(n, path.Ext(n))
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	out := make([]entity.Chapter, 0, len(ids))
	for i, id := range ids {
		out = append(out, entity.Chapter{
			ID:    id,
			Path:  strings.TrimPrefix(chapterPath(id), "/"),
			Order: i,
		})
	}
	return out, nil
}

// CreateChapter 新建章节文件并追加到顺序表末尾
func (s *Store) CreateChapter(ctx context.Context, projectID, chapterID, raw string) (*entity.Chapter, error) {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return nil, err
	}
	if err := validateSegment(chapterID); err != nil {
		return nil, errors.ErrInvalidParam.WithDetail("invalid chapter id")
	}

	p := chapterPath(chapterID)
	exists, err := afero.Exists(pfs, p)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to stat chapter")
	}
	if exists {
		return nil, errors.New(errors.CodeConflict, "chapter already exists").WithDetail(chapterID)
	}

	if err := writeFileAtomic(pfs, p, []byte(raw)); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to create chapter")
	}

	order := s.readOrder(ctx, pfs, projectID)
	order = append(order, chapterID)
	if err := writeJSON(pfs, "/"+chapterOrderFile, order); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to update chapter order")
	}

	return &entity.Chapter{
		ID:    chapterID,
		Path:  strings.TrimPrefix(p, "/"),
		Order: len(order) - 1,
	}, nil
}

// ReadChapter 读取章节原始内容
func (s *Store) ReadChapter(_ context.Context, projectID, chapterID string) (string, error) {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return "", err
	}
	if err := validateSegment(chapterID); err != nil {
		return "", errors.ErrInvalidParam.WithDetail("invalid chapter id")
	}

	data, err := afero.ReadFile(pfs, chapterPath(chapterID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.ErrChapterNotFound.WithDetail(chapterID)
		}
		return "", errors.Wrap(err, errors.CodeStorageError, "failed to read chapter")
	}
	return string(data), nil
}

// WriteChapter 覆盖写入章节原始内容
func (s *Store) WriteChapter(ctx context.Context, projectID, chapterID, raw string) error {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return err
	}
	if err := validateSegment(chapterID); err != nil {
		return errors.ErrInvalidParam.WithDetail("invalid chapter id")
	}

	if err := writeFileAtomic(pfs, chapterPath(chapterID), []byte(raw)); err != nil {
		logger.Error(ctx, "failed to write chapter", err, "project_id", projectID, "chapter_id", chapterID)
		return errors.Wrap(err, errors.CodeStorageError, "failed to write chapter")
	}
	return nil
}

// ReorderChapters 重写顺序表；未知章节 ID 视为参数错误
func (s *Store) ReorderChapters(ctx context.Context, projectID string, chapterIDs []string) error {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		if err := validateSegment(id); err != nil {
			return errors.ErrInvalidParam.WithDetail("invalid chapter id")
		}
		if seen[id] {
			return errors.ErrInvalidParam.WithDetail("duplicate chapter id " + id)
		}
		seen[id] = true

		ok, err := afero.Exists(pfs, chapterPath(id))
		if err != nil {
			return errors.Wrap(err, errors.CodeStorageError, "failed to stat chapter")
		}
		if !ok {
			return errors.ErrChapterNotFound.WithDetail(id)
		}
	}

	if err := writeJSON(pfs, "/"+chapterOrderFile, chapterIDs); err != nil {
		logger.Error(ctx, "failed to write chapter order", err, "project_id", projectID)
		return errors.Wrap(err, errors.CodeStorageError, "failed to write chapter order")
	}
	return nil
}

// readOrder 读取顺序表；缺失或格式错误时返回空
func (s *Store) readOrder(ctx context.Context, pfs afero.Fs, projectID string) []string {
	data, err := afero.ReadFile(pfs, "/"+chapterOrderFile)
	if err != nil {
		return nil
	}
	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		logger.Debug(ctx, "chapter order is not valid json, ignoring", "project_id", projectID, "error", err)
		return nil
	}
	return order
}
