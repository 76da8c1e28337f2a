// Package fs 基于 afero 的项目目录存储
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/repository"
	"z-novel-desk/pkg/errors"
)

var tracer = otel.Tracer("store.fs")

const (
	settingsFile     = "project.json"
	chaptersDir      = "chapters"
	chapterExt       = ".txt"
	chapterOrderFile = "chapter_order.json"
)

var _ repository.ProjectStore = (*Store)(nil)

// Store 项目目录存储：workspace.root/<projectID>/...
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore 在工作区根目录上创建存储
func NewStore(cfg *config.Config) (*Store, error) {
	root, err := filepath.Abs(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Store{fs: afero.NewBasePathFs(osFs, root), root: root}, nil
}

// NewStoreWithFs 使用给定文件系统（测试用 MemMapFs）
func NewStoreWithFs(fs afero.Fs) *Store {
	return &Store{fs: fs, root: string(filepath.Separator)}
}

// Root 工作区根目录
func (s *Store) Root() string {
	return s.root
}

// projectFs 返回限定在项目目录内的文件系统
func (s *Store) projectFs(projectID string) (afero.Fs, error) {
	if err := validateSegment(projectID); err != nil {
		return nil, errors.ErrInvalidParam.WithDetail("invalid project id")
	}
	return afero.NewBasePathFs(s.fs, "/"+projectID), nil
}

// projectExists 项目目录是否存在
func (s *Store) projectExists(projectID string) (bool, error) {
	ok, err := afero.DirExists(s.fs, "/"+projectID)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeStorageError, "failed to stat project")
	}
	return ok, nil
}

// ReadFile 读取项目内相对路径
func (s *Store) ReadFile(ctx context.Context, projectID, relPath string) ([]byte, error) {
	_, span := tracer.Start(ctx, "fs.ReadFile", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.String("path", relPath),
	))
	defer span.End()

	pfs, rel, err := s.resolve(projectID, relPath)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(pfs, rel)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeFileNotFound, "file not found").WithDetail(relPath)
		}
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to read file")
	}
	return data, nil
}

// WriteFile 写入项目内相对路径（先写临时文件再重命名）
func (s *Store) WriteFile(ctx context.Context, projectID, relPath string, data []byte) error {
	_, span := tracer.Start(ctx, "fs.WriteFile", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.String("path", relPath),
		attribute.Int("bytes", len(data)),
	))
	defer span.End()

	pfs, rel, err := s.resolve(projectID, relPath)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(pfs, rel, data); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeStorageError, "failed to write file")
	}
	return nil
}

// AbsPath 项目内相对路径对应的绝对路径
func (s *Store) AbsPath(projectID, relPath string) (string, error) {
	if err := validateSegment(projectID); err != nil {
		return "", errors.ErrInvalidParam.WithDetail("invalid project id")
	}
	rel, err := CleanRelPath(relPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, projectID, filepath.FromSlash(rel)), nil
}

func (s *Store) resolve(projectID, relPath string) (afero.Fs, string, error) {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return nil, "", err
	}
	rel, err := CleanRelPath(relPath)
	if err != nil {
		return nil, "", err
	}
	return pfs, "/" + rel, nil
}

// CleanRelPath 规范化相对路径，拒绝绝对路径与越出项目目录的路径
func CleanRelPath(relPath string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(relPath, "\\", "/"))
	if p == "" || strings.HasPrefix(p, "/") || filepath.IsAbs(p) {
		return "", errors.ErrPathOutside.WithDetail(relPath)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", errors.ErrPathOutside.WithDetail(relPath)
	}
	return p, nil
}

// validateSegment 项目 / 章节 ID 必须是单个路径段
func validateSegment(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.TrimSpace(id) != id {
		return fmt.Errorf("invalid path segment %q", id)
	}
	return nil
}

func writeFileAtomic(fs afero.Fs, name string, data []byte) error {
	if err := fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	tmp := name + ".tmp-" + uuid.NewString()[:8]
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return err
	}
	if err := fs.Rename(tmp, name); err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	return nil
}

func writeJSON(fs afero.Fs, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(fs, name, data)
}

// listNames 列出目录中指定扩展名的文件名（已排序）；目录不存在时返回空
func listNames(fs afero.Fs, dir, ext string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() || !strings.EqualFold(path.Ext(fi.Name()), ext) {
			continue
		}
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	return names, nil
}
