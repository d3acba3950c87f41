package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "glass-station/internal/application"
	"glass-station/internal/domain/entity"
	"glass-station/internal/domain/port"
)

const (
	msgStart = `👋 Панель управления станцией контроля стекла.

📋 Команды:
/run — запустить систему детекции
/stop — остановить систему
/auto — автоматический режим
/manual — ручной режим
/capture — снять кадр (ручной режим)
/upload — выгрузить дефекты на сервер
/download — загрузить дефекты с сервера
/clear — очистить журнал
/defects — последние дефекты
/status — состояние станции
/help — справка`

	msgHelp = `ℹ️ Как пользоваться панелью:

1️⃣ /run — станция подключается к серверу и запускает детектор
2️⃣ /capture снимает кадр по команде, /auto включает съёмку по таймеру
3️⃣ Найденные дефекты попадают в журнал и отправляются на сервер

💡 В автоматическом режиме ручная съёмка недоступна, вернитесь через /manual.`

	msgStarted        = "▶️ Система детекции запущена (ручной режим)."
	msgStopped        = "⏹ Система детекции остановлена."
	msgAutomatic      = "🔁 Автоматический режим включён."
	msgManual         = "✋ Ручной режим включён."
	msgNotRunning     = "⚠️ Система не запущена. Используйте /run."
	msgAutomaticMode  = "⚠️ В автоматическом режиме съёмка по команде недоступна. Используйте /manual."
	msgNoDefects      = "📭 Журнал дефектов пуст."
	msgNoDefectsFound = "✅ Дефекты не обнаружены."
	msgUploading      = "⬆️ Выгрузка дефектов на сервер..."
	msgDownloading    = "⬇️ Загрузка дефектов с сервера..."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgSendCommand    = "📋 Используйте команды, список: /help"
	msgError          = "⚠️ Не удалось выполнить команду."

	defectsPageSize = 10
)

// Station операции станции, доступные из панели.
type Station interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SetAutomatic(ctx context.Context) error
	SetManual(ctx context.Context) error
	Capture(ctx context.Context) (*entity.Frame, error)
	RequestUpload(ctx context.Context) error
	RequestDownload(ctx context.Context) error
	ClearDefects(ctx context.Context) (int, error)
	Defects(ctx context.Context) ([]*entity.DefectRecord, error)
	Status(ctx context.Context) entity.StationStatus
}

// botAPI часть tgbotapi.BotAPI, которой пользуется бот.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot представляет Telegram-панель оператора
type Bot struct {
	api     botAPI
	station Station
	chatID  int64
	logger  *zap.Logger
}

// NewBot создаёт нового бота. Если chatID не ноль, бот обслуживает только этот чат
// и присылает в него оповещения о дефектах.
func NewBot(token string, station Station, chatID int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, station, chatID, logger)
	b.logger.Info("authorized", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(api botAPI, station Station, chatID int64, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:     api,
		station: station,
		chatID:  chatID,
		logger:  logger.Named("telegram"),
	}
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// NotifyDefect присылает оповещение о дефекте в чат оператора
func (b *Bot) NotifyDefect(_ context.Context, record *entity.DefectRecord, image []byte) error {
	if b.chatID == 0 {
		return nil
	}

	text := "🚨 Обнаружен дефект\n" + record.Summary()
	if len(image) > 0 {
		photo := tgbotapi.NewPhoto(b.chatID, tgbotapi.FileBytes{Name: "defect.jpg", Bytes: image})
		photo.Caption = text
		_, err := b.api.Send(photo)
		return err
	}
	_, err := b.api.Send(tgbotapi.NewMessage(b.chatID, text))
	return err
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	if b.chatID != 0 && msg.Chat.ID != b.chatID {
		b.logger.Warn("ignoring message from foreign chat", zap.Int64("chat_id", msg.Chat.ID))
		return
	}

	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgSendCommand)
		return
	}
	b.handleCommand(ctx, msg)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	b.logger.Debug("command", zap.String("command", command), zap.Int64("chat_id", chatID))

	switch command {
	case "start":
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "run":
		b.reply(chatID, b.station.Start(ctx), msgStarted)

	case "stop":
		b.reply(chatID, b.station.Stop(ctx), msgStopped)

	case "auto":
		b.reply(chatID, b.station.SetAutomatic(ctx), msgAutomatic)

	case "manual":
		b.reply(chatID, b.station.SetManual(ctx), msgManual)

	case "capture":
		b.handleCapture(ctx, chatID)

	case "upload":
		b.reply(chatID, b.station.RequestUpload(ctx), msgUploading)

	case "download":
		b.reply(chatID, b.station.RequestDownload(ctx), msgDownloading)

	case "clear":
		n, err := b.station.ClearDefects(ctx)
		b.reply(chatID, err, fmt.Sprintf("🗑 Удалено записей: %d", n))

	case "defects":
		records, err := b.station.Defects(ctx)
		if err != nil || len(records) == 0 {
			b.reply(chatID, err, msgNoDefects)
			return
		}
		b.sendMessage(chatID, formatDefects(records))

	case "status":
		b.sendMessage(chatID, formatStatus(b.station.Status(ctx)))

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handleCapture снимает кадр и отвечает снимком, если он есть
func (b *Bot) handleCapture(ctx context.Context, chatID int64) {
	frame, err := b.station.Capture(ctx)
	if err != nil {
		b.reply(chatID, err, "")
		return
	}

	text := msgNoDefectsFound
	if frame.HasDefect() {
		det := frame.Detection
		text = fmt.Sprintf("🔍 Дефект: %s (%.0f%%)", det.DefectType, det.Confidence*100)
	}

	if len(frame.Image) == 0 {
		b.sendMessage(chatID, text)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "frame.jpg", Bytes: frame.Image})
	photo.Caption = text
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Warn("send photo", zap.Error(err))
	}
}

// reply отвечает ok при успехе или понятным текстом ошибки
func (b *Bot) reply(chatID int64, err error, ok string) {
	switch {
	case err == nil:
		b.sendMessage(chatID, ok)
	case errors.Is(err, app.ErrNotRunning):
		b.sendMessage(chatID, msgNotRunning)
	case errors.Is(err, app.ErrAutomaticMode):
		b.sendMessage(chatID, msgAutomaticMode)
	case errors.Is(err, app.ErrNoDefects):
		b.sendMessage(chatID, msgNoDefects)
	default:
		b.logger.Error("command failed", zap.Error(err))
		b.sendMessage(chatID, msgError)
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send message", zap.Error(err))
	}
}

func formatDefects(records []*entity.DefectRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Дефектов в журнале: %d\n", len(records))
	for i, rec := range records {
		if i == defectsPageSize {
			fmt.Fprintf(&sb, "... и ещё %d", len(records)-defectsPageSize)
			break
		}
		sb.WriteString(rec.Summary())
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatStatus(st entity.StationStatus) string {
	running := "остановлена"
	if st.Running {
		running = "работает"
	}
	return fmt.Sprintf("📟 Устройство: %s\nСистема: %s\nРежим: %s\nСервер: %s\nДефектов в журнале: %d",
		st.DeviceID, running, st.Mode, st.Connection, st.Defects)
}

var _ port.DefectNotifier = (*Bot)(nil)
