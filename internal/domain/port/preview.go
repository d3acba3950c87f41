package port

import (
	"context"

	"glass-station/internal/domain/entity"
)

// PreviewSource источник кадров предпросмотра
type PreviewSource interface {
	// Capture снимает кадр и, возможно, находит на нём дефект
	Capture(ctx context.Context) (*entity.Frame, error)
}
