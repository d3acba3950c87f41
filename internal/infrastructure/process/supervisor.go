package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"glass-station/internal/domain/port"
	"glass-station/internal/infrastructure/metrics"
)

// DefaultStopGrace время на корректное завершение после SIGTERM.
const DefaultStopGrace = 3 * time.Second

// ErrDisabled возвращается, если команда детектора не задана.
var ErrDisabled = errors.New("detector command is not configured")

// Config параметры внешнего процесса детекции.
type Config struct {
	Command   string
	Args      []string
	StopGrace time.Duration
	Logger    *zap.Logger
}

// Supervisor запускает и останавливает внешний процесс детекции.
type Supervisor struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	done     chan struct{}
	stopping bool
}

// NewSupervisor создаёт супервизор. Процесс не запускается до Start.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: cfg.Logger.Named("detector"),
	}
}

// Start запускает процесс, если он ещё не запущен.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(s.cfg.Command) == "" {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return nil
	}

	stdout := &lineWriter{logger: s.logger.With(zap.String("stream", "stdout"))}
	stderr := &lineWriter{logger: s.logger.With(zap.String("stream", "stderr"))}

	// Процесс живёт дольше ctx вызова, поэтому exec.Command, а не CommandContext.
	cmd := exec.Command(s.cfg.Command, s.cfg.Args...) //nolint:gosec
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = s.cfg.StopGrace

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detector: %w", err)
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.done = done
	s.stopping = false

	s.logger.Info("detector started",
		zap.String("command", s.cfg.Command),
		zap.Strings("args", s.cfg.Args),
		zap.Int("pid", cmd.Process.Pid),
	)

	go func() {
		err := cmd.Wait()
		stdout.flush()
		stderr.flush()
		s.exited(cmd, err)
		close(done)
	}()
	return nil
}

// Stop посылает SIGTERM и ждёт StopGrace, затем убивает процесс.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	if cmd == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	s.mu.Unlock()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	timer := time.NewTimer(s.cfg.StopGrace)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	s.logger.Warn("detector did not exit in time, killing", zap.Duration("grace", s.cfg.StopGrace))
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("kill detector", zap.Error(err))
	}
	<-done
	return nil
}

// Running сообщает, работает ли процесс.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

func (s *Supervisor) exited(cmd *exec.Cmd, err error) {
	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()
	defer s.release(cmd)

	code := cmd.ProcessState.ExitCode()
	outcome := "normal exit"
	var exitErr *exec.ExitError
	if err != nil && errors.As(err, &exitErr) && exitErr.ExitCode() == -1 {
		outcome = "crashed"
	}
	if stopping {
		outcome = "stopped"
	}
	metrics.ObserveDetectorExit(outcome)

	fields := []zap.Field{zap.String("outcome", outcome), zap.Int("code", code)}
	if err != nil && exitErr == nil {
		fields = append(fields, zap.Error(err))
	}
	if stopping {
		s.logger.Info("detector finished", fields...)
		return
	}
	s.logger.Warn("detector process stopped, telemetry still active", fields...)
}

func (s *Supervisor) release(cmd *exec.Cmd) {
	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
	}
	s.mu.Unlock()
}

// lineWriter пишет вывод процесса в лог построчно.
type lineWriter struct {
	logger *zap.Logger
	buf    []byte
}

const maxLine = 4096

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) > maxLine {
		w.flush()
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
	}
	w.buf = nil
}

func (w *lineWriter) emit(line []byte) {
	text := strings.TrimSpace(string(line))
	if text != "" {
		w.logger.Info(text)
	}
}

var _ port.ProcessSupervisor = (*Supervisor)(nil)
