package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"glass-station/internal/domain/entity"
	"glass-station/internal/infrastructure/telemetry"
)

const DefaultServerURL = "wss://glass-defect-detection-prototype-production.up.railway.app:8080"

type Config struct {
	ServerURL        string        `yaml:"server_url"`
	DeviceID         string        `yaml:"device_id"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`

	CaptureInterval   time.Duration   `yaml:"capture_interval"`
	DefectProbability float64         `yaml:"defect_probability"`
	Severity          entity.Severity `yaml:"severity"`
	ImageDir          string          `yaml:"image_dir"`

	DetectorPython string        `yaml:"detector_python"`
	DetectorScript string        `yaml:"detector_script"`
	StopGrace      time.Duration `yaml:"stop_grace"`

	AutoStart bool        `yaml:"auto_start"`
	StartMode entity.Mode `yaml:"start_mode"`

	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// Load читает .env и переменные окружения, затем накладывает YAML-файл.
// Если path пуст, путь берётся из STATION_CONFIG.
func Load(path string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		ServerURL:         getenvDefault("TELEMETRY_URL", DefaultServerURL),
		DeviceID:          getenvDefault("DEVICE_ID", "raspberry-pi-1"),
		HandshakeTimeout:  getenvDurationDefault("TELEMETRY_HANDSHAKE_TIMEOUT", 10*time.Second),
		WriteTimeout:      getenvDurationDefault("TELEMETRY_WRITE_TIMEOUT", 5*time.Second),
		CaptureInterval:   getenvDurationDefault("CAPTURE_INTERVAL", 5*time.Second),
		DefectProbability: getenvFloatDefault("DEFECT_PROBABILITY", 0.6),
		Severity:          entity.Severity(getenvDefault("DEFECT_SEVERITY", string(entity.SeverityMedium))),
		ImageDir:          os.Getenv("IMAGE_DIR"),
		DetectorPython:    getenvDefault("DETECTOR_PYTHON", "python3"),
		DetectorScript:    getenvDefault("DETECTOR_SCRIPT", "detect_db2.py"),
		StopGrace:         getenvDurationDefault("DETECTOR_STOP_GRACE", 3*time.Second),
		AutoStart:         getenvBoolDefault("AUTO_START", true),
		StartMode:         entity.Mode(getenvDefault("START_MODE", string(entity.ModeManual))),
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:    getenvIntDefault("TELEGRAM_CHAT_ID", 0),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		LogFormat:         getenvDefault("LOG_FORMAT", "console"),
	}

	if _, ok := os.LookupEnv("DETECTOR_SCRIPT"); ok {
		cfg.DetectorScript = os.Getenv("DETECTOR_SCRIPT")
	}

	if path == "" {
		path = os.Getenv("STATION_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения после загрузки.
func (c *Config) Validate() error {
	var errs []error
	if _, err := telemetry.ParseEndpoint(c.ServerURL); err != nil {
		errs = append(errs, fmt.Errorf("server_url: %w", err))
	}
	if strings.TrimSpace(c.DeviceID) == "" {
		errs = append(errs, errors.New("device_id: must not be empty"))
	}
	if c.DefectProbability < 0 || c.DefectProbability > 1 {
		errs = append(errs, fmt.Errorf("defect_probability: %v is outside [0, 1]", c.DefectProbability))
	}
	switch c.Severity {
	case entity.SeverityLow, entity.SeverityMedium, entity.SeverityHigh:
	default:
		errs = append(errs, fmt.Errorf("severity: unsupported value %q", c.Severity))
	}
	switch c.StartMode {
	case entity.ModeManual, entity.ModeAutomatic:
	default:
		errs = append(errs, fmt.Errorf("start_mode: unsupported value %q", c.StartMode))
	}
	for name, d := range map[string]time.Duration{
		"handshake_timeout": c.HandshakeTimeout,
		"write_timeout":     c.WriteTimeout,
		"capture_interval":  c.CaptureInterval,
		"stop_grace":        c.StopGrace,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive", name))
		}
	}
	return errors.Join(errs...)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDurationDefault(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
