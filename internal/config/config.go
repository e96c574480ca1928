package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone      = "Asia/Seoul"
	configPathEnv        = "RESET_TRACKER_CONFIG"
	databaseDSNEnv       = "DATABASE_DSN"
	databaseDriverEnv    = "DATABASE_DRIVER"
	naverClientIDEnv     = "NAVER_CLIENT_ID"
	naverClientSecretEnv = "NAVER_CLIENT_SECRET"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
	ocrEndpointEnv       = "OCR_ENDPOINT"
	logLevelEnv          = "LOG_LEVEL"
)

// DefaultLocations are the branches tracked when the config names none.
var DefaultLocations = []string{
	"B홍대", "일산", "마곡", "서울대", "양재", "신림",
	"연남", "강남", "사당", "신사", "논현", "문래",
}

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Source        SourceConfig       `yaml:"source"`
	Extractor     ExtractorConfig    `yaml:"extractor"`
	OCR           OCRConfig          `yaml:"ocr"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Notifications NotificationConfig `yaml:"notifications"`
	Server        ServerConfig       `yaml:"server"`
	Locations     []string           `yaml:"locations"`
}

// LoggingConfig selects level and output format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the status store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SourceConfig groups settings for the candidate post source.
type SourceConfig struct {
	Strategy      string      `yaml:"strategy"`
	Publisher     string      `yaml:"publisher"`
	Brand         string      `yaml:"brand"`
	Suffix        string      `yaml:"suffix"`
	QueryTemplate string      `yaml:"queryTemplate"`
	PageSize      int         `yaml:"pageSize"`
	Sort          string      `yaml:"sort"`
	Naver         NaverConfig `yaml:"naver"`
	RSSURL        string      `yaml:"rssUrl"`
}

// NaverConfig holds the search API endpoint and client credentials.
type NaverConfig struct {
	APIURL       string `yaml:"apiUrl"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
}

// ExtractorConfig locates post pages and sizes their images.
type ExtractorConfig struct {
	PostViewURL    string `yaml:"postViewUrl"`
	BlogID         string `yaml:"blogId"`
	ImageSizeToken string `yaml:"imageSizeToken"`
}

// OCRConfig selects the text recognition backend.
type OCRConfig struct {
	Backend       string        `yaml:"backend"`
	Endpoint      string        `yaml:"endpoint"`
	APIKey        string        `yaml:"apiKey"`
	Language      string        `yaml:"language"`
	TesseractPath string        `yaml:"tesseractPath"`
	Timeout       time.Duration `yaml:"timeout"`
	Crop          CropConfig    `yaml:"crop"`
}

// CropConfig narrows images to the band where status text is printed.
type CropConfig struct {
	Enabled  bool    `yaml:"enabled"`
	TopRatio float64 `yaml:"topRatio"`
	MaxWidth int     `yaml:"maxWidth"`
}

// ArchiveConfig sets where images and pages are written and how they are linked.
type ArchiveConfig struct {
	Root          string `yaml:"root"`
	PublicBaseURL string `yaml:"publicBaseUrl"`
}

// PipelineConfig tunes a run.
type PipelineConfig struct {
	Mode        string        `yaml:"mode"`
	Concurrency int           `yaml:"concurrency"`
	CallTimeout time.Duration `yaml:"callTimeout"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ServerConfig enables the HTTP server when Addr is set.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the YAML file named by RESET_TRACKER_CONFIG (if set) over the defaults,
// then applies environment overrides and binds the timezone.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if len(cfg.Locations) == 0 {
		cfg.Locations = append([]string(nil), DefaultLocations...)
	}
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if strings.TrimSpace(c.Scheduler.CronExpression) == "" {
		errs = append(errs, errors.New("scheduler.cronExpression is required"))
	}

	switch c.Source.Strategy {
	case "naver":
		if c.Source.Naver.ClientID == "" || c.Source.Naver.ClientSecret == "" {
			errs = append(errs, errors.New("source.naver credentials are required"))
		}
	case "rss":
		if c.Source.RSSURL == "" {
			errs = append(errs, errors.New("source.rssUrl is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.strategy %q is not supported", c.Source.Strategy))
	}
	if c.Source.Publisher == "" || c.Source.Brand == "" {
		errs = append(errs, errors.New("source.publisher and source.brand are required"))
	}

	switch c.OCR.Backend {
	case "http":
		if c.OCR.Endpoint == "" {
			errs = append(errs, errors.New("ocr.endpoint is required for the http backend"))
		}
	case "tesseract":
	default:
		errs = append(errs, fmt.Errorf("ocr.backend %q is not supported", c.OCR.Backend))
	}
	if c.OCR.Crop.Enabled && (c.OCR.Crop.TopRatio <= 0 || c.OCR.Crop.TopRatio > 1) {
		errs = append(errs, fmt.Errorf("ocr.crop.topRatio %v must be in (0, 1]", c.OCR.Crop.TopRatio))
	}

	if c.Archive.Root == "" {
		errs = append(errs, errors.New("archive.root is required"))
	}

	switch c.Pipeline.Mode {
	case "latest", "resync":
	default:
		errs = append(errs, fmt.Errorf("pipeline.mode %q is not supported", c.Pipeline.Mode))
	}

	if len(c.Locations) == 0 {
		errs = append(errs, errors.New("at least one location is required"))
	}
	for _, loc := range c.Locations {
		if strings.TrimSpace(loc) == "" || strings.ContainsAny(loc, `/\`) {
			errs = append(errs, fmt.Errorf("location %q is not a valid name", loc))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(naverClientIDEnv); v != "" {
		c.Source.Naver.ClientID = v
	}
	if v := os.Getenv(naverClientSecretEnv); v != "" {
		c.Source.Naver.ClientSecret = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(ocrEndpointEnv); v != "" {
		c.OCR.Endpoint = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
	return nil
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "data/status.db"},
		Scheduler: SchedulerConfig{
			CronExpression: "0 2 * * *",
			Timezone:       defaultTimezone,
			RunOnStart:     true,
		},
		Source: SourceConfig{
			Strategy:      "naver",
			Publisher:     "https://blog.naver.com/theholdshop",
			Brand:         "더클라임",
			Suffix:        "점",
			QueryTemplate: "[{brand}{location}] / 실내 클라이밍",
			PageSize:      100,
			Sort:          "date",
			Naver:         NaverConfig{APIURL: "https://openapi.naver.com/v1/search/blog"},
		},
		Extractor: ExtractorConfig{
			PostViewURL:    "https://blog.naver.com/PostView.naver",
			BlogID:         "theholdshop",
			ImageSizeToken: "w773",
		},
		OCR: OCRConfig{
			Backend:       "tesseract",
			Language:      "eng",
			TesseractPath: "tesseract",
			Timeout:       60 * time.Second,
			Crop:          CropConfig{Enabled: true, TopRatio: 0.35, MaxWidth: 1200},
		},
		Archive:  ArchiveConfig{Root: "public"},
		Pipeline: PipelineConfig{Mode: "latest", Concurrency: 4, CallTimeout: 30 * time.Second},
	}
}
