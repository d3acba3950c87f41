package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	app "glass-station/internal/application"
	"glass-station/internal/domain/entity"
)

const operatorChat int64 = 42

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	updates chan tgbotapi.Update
	stopped bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (a *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, c)
	return tgbotapi.Message{}, nil
}

func (a *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return a.updates
}

func (a *fakeAPI) StopReceivingUpdates() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
}

func (a *fakeAPI) texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, c := range a.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, "photo:"+m.Caption)
		}
	}
	return out
}

type fakeStation struct {
	err     error
	frame   *entity.Frame
	records []*entity.DefectRecord
	calls   []string
}

func (s *fakeStation) call(name string) error {
	s.calls = append(s.calls, name)
	return s.err
}

func (s *fakeStation) Start(context.Context) error           { return s.call("start") }
func (s *fakeStation) Stop(context.Context) error            { return s.call("stop") }
func (s *fakeStation) SetAutomatic(context.Context) error    { return s.call("auto") }
func (s *fakeStation) SetManual(context.Context) error       { return s.call("manual") }
func (s *fakeStation) RequestUpload(context.Context) error   { return s.call("upload") }
func (s *fakeStation) RequestDownload(context.Context) error { return s.call("download") }

func (s *fakeStation) Capture(context.Context) (*entity.Frame, error) {
	if err := s.call("capture"); err != nil {
		return nil, err
	}
	return s.frame, nil
}

func (s *fakeStation) ClearDefects(context.Context) (int, error) {
	if err := s.call("clear"); err != nil {
		return 0, err
	}
	return len(s.records), nil
}

func (s *fakeStation) Defects(context.Context) ([]*entity.DefectRecord, error) {
	return s.records, s.call("defects")
}

func (s *fakeStation) Status(context.Context) entity.StationStatus {
	return entity.StationStatus{
		DeviceID:   "raspberry-pi-1",
		Running:    true,
		Mode:       entity.ModeAutomatic,
		Connection: entity.Connected,
		Defects:    len(s.records),
	}
}

func command(chatID int64, text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func record(seq int, defectType string) *entity.DefectRecord {
	return &entity.DefectRecord{
		ID:         fmt.Sprintf("id-%d", seq),
		Seq:        seq,
		Type:       defectType,
		Severity:   entity.SeverityMedium,
		DetectedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestBot(t *testing.T, station Station, chatID int64) (*Bot, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	return newBot(api, station, chatID, zaptest.NewLogger(t)), api
}

func TestBot_Commands(t *testing.T) {
	tests := []struct {
		name    string
		command string
		err     error
		want    string
	}{
		{name: "run", command: "/run", want: msgStarted},
		{name: "stop", command: "/stop", want: msgStopped},
		{name: "auto", command: "/auto", want: msgAutomatic},
		{name: "manual", command: "/manual", want: msgManual},
		{name: "upload", command: "/upload", want: msgUploading},
		{name: "download", command: "/download", want: msgDownloading},
		{name: "auto while stopped", command: "/auto", err: app.ErrNotRunning, want: msgNotRunning},
		{name: "capture in automatic mode", command: "/capture", err: app.ErrAutomaticMode, want: msgAutomaticMode},
		{name: "upload empty log", command: "/upload", err: app.ErrNoDefects, want: msgNoDefects},
		{name: "unexpected failure", command: "/run", err: errors.New("boom"), want: msgError},
		{name: "unknown", command: "/dance", want: msgUnknownCommand},
		{name: "help", command: "/help", want: msgHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, api := newTestBot(t, &fakeStation{err: tt.err}, 0)
			bot.handleMessage(context.Background(), command(operatorChat, tt.command))
			require.Equal(t, []string{tt.want}, api.texts())
		})
	}
}

func TestBot_CaptureRepliesWithPhoto(t *testing.T) {
	station := &fakeStation{frame: &entity.Frame{
		Image:     []byte{0xff, 0xd8},
		Detection: &entity.Detection{DefectType: entity.DefectCrack, Confidence: 0.85},
	}}
	bot, api := newTestBot(t, station, 0)

	bot.handleMessage(context.Background(), command(operatorChat, "/capture"))
	require.Equal(t, []string{"photo:🔍 Дефект: Crack (85%)"}, api.texts())
}

func TestBot_CaptureWithoutImage(t *testing.T) {
	bot, api := newTestBot(t, &fakeStation{frame: &entity.Frame{}}, 0)

	bot.handleMessage(context.Background(), command(operatorChat, "/capture"))
	require.Equal(t, []string{msgNoDefectsFound}, api.texts())
}

func TestBot_Defects(t *testing.T) {
	var records []*entity.DefectRecord
	for i := 12; i >= 1; i-- {
		records = append(records, record(i, entity.DefectScratch))
	}
	bot, api := newTestBot(t, &fakeStation{records: records}, 0)

	bot.handleMessage(context.Background(), command(operatorChat, "/defects"))
	texts := api.texts()
	require.Len(t, texts, 1)
	require.True(t, strings.HasPrefix(texts[0], "📋 Дефектов в журнале: 12\n[12] Scratch (Severity: Medium)"))
	require.True(t, strings.HasSuffix(texts[0], "... и ещё 2"))
	require.NotContains(t, texts[0], "[2] Scratch")
}

func TestBot_DefectsEmpty(t *testing.T) {
	bot, api := newTestBot(t, &fakeStation{}, 0)

	bot.handleMessage(context.Background(), command(operatorChat, "/defects"))
	require.Equal(t, []string{msgNoDefects}, api.texts())
}

func TestBot_Clear(t *testing.T) {
	station := &fakeStation{records: []*entity.DefectRecord{record(1, entity.DefectCrack), record(2, entity.DefectBubble)}}
	bot, api := newTestBot(t, station, 0)

	bot.handleMessage(context.Background(), command(operatorChat, "/clear"))
	require.Equal(t, []string{"🗑 Удалено записей: 2"}, api.texts())
}

func TestBot_Status(t *testing.T) {
	bot, api := newTestBot(t, &fakeStation{}, 0)

	bot.handleMessage(context.Background(), command(operatorChat, "/status"))
	require.Equal(t, []string{
		"📟 Устройство: raspberry-pi-1\nСистема: работает\nРежим: automatic\nСервер: connected\nДефектов в журнале: 0",
	}, api.texts())
}

func TestBot_IgnoresForeignChat(t *testing.T) {
	station := &fakeStation{}
	bot, api := newTestBot(t, station, operatorChat)

	bot.handleMessage(context.Background(), command(7, "/run"))
	require.Empty(t, api.texts())
	require.Empty(t, station.calls)
}

func TestBot_PlainText(t *testing.T) {
	bot, api := newTestBot(t, &fakeStation{}, 0)

	bot.handleMessage(context.Background(), &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: operatorChat}})
	require.Equal(t, []string{msgSendCommand}, api.texts())
}

func TestBot_NotifyDefect(t *testing.T) {
	rec := record(3, entity.DefectCrack)

	bot, api := newTestBot(t, &fakeStation{}, 0)
	require.NoError(t, bot.NotifyDefect(context.Background(), rec, nil))
	require.Empty(t, api.texts())

	bot, api = newTestBot(t, &fakeStation{}, operatorChat)
	require.NoError(t, bot.NotifyDefect(context.Background(), rec, nil))
	require.NoError(t, bot.NotifyDefect(context.Background(), rec, []byte{0xff}))
	require.Equal(t, []string{
		"🚨 Обнаружен дефект\n[3] Crack (Severity: Medium) 2024-01-01 10:00:00",
		"photo:🚨 Обнаружен дефект\n[3] Crack (Severity: Medium) 2024-01-01 10:00:00",
	}, api.texts())
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	station := &fakeStation{}
	bot, api := newTestBot(t, station, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- tgbotapi.Update{Message: command(operatorChat, "/run")}
	require.Eventually(t, func() bool { return len(api.texts()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
	require.True(t, api.stopped)
	require.Equal(t, []string{"start"}, station.calls)
}
