package port

import "context"

// ProcessSupervisor управляет внешним процессом детекции
type ProcessSupervisor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
}
