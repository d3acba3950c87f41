package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"glass-station/internal/domain/entity"
	"glass-station/internal/domain/port"
)

// FileImageStore сохраняет снимки дефектов в каталог
type FileImageStore struct {
	dir string
}

// NewFileImageStore создаёт хранилище в каталоге dir
func NewFileImageStore(dir string) (*FileImageStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("image dir is required")
	}
	return &FileImageStore{dir: dir}, nil
}

// Save записывает JPEG с именем <тип>_<время>_<id>.jpg и возвращает путь
func (s *FileImageStore) Save(ctx context.Context, det entity.Detection, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", fmt.Errorf("save image: empty image")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure image dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s.jpg",
		strings.ToLower(sanitize(det.DefectType)),
		det.DetectedAt.Format("20060102_150405"),
		uuid.NewString()[:8],
	)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

func sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "defect"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, value)
}

var _ port.ImageStore = (*FileImageStore)(nil)
