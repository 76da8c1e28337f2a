package fs

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/afero"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

// LoadSettings 读取 project.json；文件缺失返回零值，格式错误时回退零值并记录日志
func (s *Store) LoadSettings(ctx context.Context, projectID string) (*entity.ProjectSettings, error) {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return nil, err
	}
	exists, err := s.projectExists(projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.ErrProjectNotFound.WithDetail(projectID)
	}

	data, err := afero.ReadFile(pfs, "/"+settingsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &entity.ProjectSettings{}, nil
		}
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to read project settings")
	}

	var settings entity.ProjectSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		logger.Warn(ctx, "project settings is not valid json, using defaults", "project_id", projectID, "error", err)
		return &entity.ProjectSettings{}, nil
	}
	return &settings, nil
}

// SaveSettings 写入 project.json，项目目录不存在时创建
func (s *Store) SaveSettings(ctx context.Context, projectID string, settings *entity.ProjectSettings) error {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return err
	}
	if settings == nil {
		settings = &entity.ProjectSettings{}
	}
	if err := writeJSON(pfs, "/"+settingsFile, settings); err != nil {
		logger.Error(ctx, "failed to save project settings", err, "project_id", projectID)
		return errors.Wrap(err, errors.CodeStorageError, "failed to save project settings")
	}
	return nil
}
