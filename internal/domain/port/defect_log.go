package port

import (
	"context"

	"glass-station/internal/domain/entity"
)

// DefectLog интерфейс локального журнала дефектов
type DefectLog interface {
	// Add добавляет запись и присваивает ей ID и порядковый номер
	Add(ctx context.Context, record *entity.DefectRecord) (*entity.DefectRecord, error)

	// List возвращает записи, новые первыми
	List(ctx context.Context) ([]*entity.DefectRecord, error)

	// Count возвращает количество записей
	Count(ctx context.Context) (int, error)

	// Clear удаляет все записи и возвращает их количество
	Clear(ctx context.Context) (int, error)
}

// ImageStore сохраняет снимки дефектов
type ImageStore interface {
	// Save записывает JPEG и возвращает путь к файлу
	Save(ctx context.Context, det entity.Detection, image []byte) (string, error)
}
