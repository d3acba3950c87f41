package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"glass-station/internal/domain/entity"
	"glass-station/internal/domain/port"
)

// MemoryDefectLog in-memory журнал дефектов
type MemoryDefectLog struct {
	mu      sync.RWMutex
	records []*entity.DefectRecord // новые в конце
	seq     int
}

// NewMemoryDefectLog создаёт пустой журнал
func NewMemoryDefectLog() *MemoryDefectLog {
	return &MemoryDefectLog{}
}

// Add сохраняет копию записи с новым ID и порядковым номером
func (l *MemoryDefectLog) Add(ctx context.Context, record *entity.DefectRecord) (*entity.DefectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := *record
	stored.ID = uuid.NewString()

	l.mu.Lock()
	l.seq++
	stored.Seq = l.seq
	l.records = append(l.records, &stored)
	l.mu.Unlock()

	out := stored
	return &out, nil
}

// List возвращает копии записей, новые первыми
func (l *MemoryDefectLog) List(ctx context.Context) ([]*entity.DefectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*entity.DefectRecord, 0, len(l.records))
	for i := len(l.records) - 1; i >= 0; i-- {
		rec := *l.records[i]
		out = append(out, &rec)
	}
	return out, nil
}

// Count возвращает количество записей
func (l *MemoryDefectLog) Count(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records), nil
}

// Clear очищает журнал и сбрасывает нумерацию
func (l *MemoryDefectLog) Clear(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.records)
	l.records = nil
	l.seq = 0
	return n, nil
}

// Проверка реализации интерфейса
var _ port.DefectLog = (*MemoryDefectLog)(nil)
