package fs

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/spf13/afero"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

// ListEntities 读取某类世界设定实体；无法解析的文件以文件名作为名称回退
func (s *Store) ListEntities(ctx context.Context, projectID string, kind entity.WorldEntityKind) ([]entity.WorldEntity, error) {
	pfs, err := s.projectFs(projectID)
	if err != nil {
		return nil, err
	}

	dir := "/" + kind.Dir()
	names, err := listNames(pfs, dir, ".json")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to list entities")
	}

	out := make([]entity.WorldEntity, 0, len(names))
	for _, name := range names {
		rel := path.Join(kind.Dir(), name)
		fallback := entity.WorldEntity{
			Kind: kind,
			File: rel,
			Name: strings.TrimSuffix(name, path.Ext(name)),
		}

		data, err := afero.ReadFile(pfs, path.Join(dir, name))
		if err != nil {
			logger.Warn(ctx, "failed to read entity file", "project_id", projectID, "file", rel, "error", err)
			out = append(out, fallback)
			continue
		}

		var e entity.WorldEntity
		if err := json.Unmarshal(data, &e); err != nil {
			logger.Debug(ctx, "entity file is not valid json, using defaults", "project_id", projectID, "file", rel, "error", err)
			out = append(out, fallback)
			continue
		}
		e.Kind = kind
		e.File = rel
		out = append(out, e)
	}
	return out, nil
}
