package port

import (
	"context"

	"glass-station/internal/domain/entity"
)

// DefectNotifier оповещает оператора о новом дефекте
type DefectNotifier interface {
	NotifyDefect(ctx context.Context, record *entity.DefectRecord, image []byte) error
}
