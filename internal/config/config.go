// Пакет config — загрузка и валидация конфигурации хранилища документов.
// Источники (по убыванию приоритета): переменные окружения VAULT_*,
// YAML-файл конфигурации, значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// EnvPrefix — префикс переменных окружения (VAULT_SERVER_PORT и т.д.).
const EnvPrefix = "VAULT"

// Config содержит все параметры конфигурации.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Share     ShareConfig     `mapstructure:"share"`
	Search    SearchConfig    `mapstructure:"search"`
	Log       LogConfig       `mapstructure:"log"`
	Dephealth DephealthConfig `mapstructure:"dephealth"`
}

// ServerConfig — HTTP-сервер.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	TLSCert         string        `mapstructure:"tls_cert" validate:"required_with=TLSKey"`
	TLSKey          string        `mapstructure:"tls_key" validate:"required_with=TLSCert"`
}

// TLSEnabled возвращает true, если заданы сертификат и ключ.
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

// StorageConfig — директории хранилища.
type StorageConfig struct {
	// VaultDir — директория с файлами документов
	VaultDir string `mapstructure:"vault_dir" validate:"required"`
	// StagingDir — директория загрузок (по умолчанию рядом с VaultDir)
	StagingDir string `mapstructure:"staging_dir"`
	// JournalDir — директория журнала намерений (по умолчанию рядом с VaultDir)
	JournalDir    string `mapstructure:"journal_dir"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" validate:"gt=0"`
}

// LifecycleConfig — параметры жизненного цикла документов.
type LifecycleConfig struct {
	// RelockDelay — задержка повторной блокировки после временной разблокировки
	RelockDelay time.Duration `mapstructure:"relock_delay" validate:"gt=0"`
	// TrashRetention — срок хранения в корзине, 0 отключает автоочистку
	TrashRetention    time.Duration `mapstructure:"trash_retention" validate:"gte=0"`
	RetentionInterval time.Duration `mapstructure:"retention_interval" validate:"gt=0"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" validate:"gt=0"`
}

// AuthConfig — JWT и шлюз авторизации.
type AuthConfig struct {
	// JWKSURL — пустое значение включает режим без аутентификации
	JWKSURL         string        `mapstructure:"jwks_url" validate:"omitempty,url"`
	JWKSCACert      string        `mapstructure:"jwks_ca_cert"`
	TLSSkipVerify   bool          `mapstructure:"tls_skip_verify"`
	ClientTimeout   time.Duration `mapstructure:"client_timeout" validate:"gt=0"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"gt=0"`
	JWTLeeway       time.Duration `mapstructure:"jwt_leeway" validate:"gte=0"`
	// GateScope — scope, подтверждающий чувствительные действия
	GateScope string `mapstructure:"gate_scope" validate:"required"`
}

// DevMode возвращает true, если JWKS не настроен.
func (a AuthConfig) DevMode() bool {
	return a.JWKSURL == ""
}

// ShareConfig — выгрузка документов в S3-совместимое хранилище.
type ShareConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Bucket    string        `mapstructure:"bucket" validate:"required_if=Enabled true"`
	Region    string        `mapstructure:"region"`
	Endpoint  string        `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Prefix    string        `mapstructure:"prefix"`
	URLTTL    time.Duration `mapstructure:"url_ttl" validate:"gt=0"`
}

// SearchConfig — кэш результатов поиска.
type SearchConfig struct {
	CacheSize int           `mapstructure:"cache_size" validate:"gt=0"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
}

// LogConfig — логирование.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// DephealthConfig — мониторинг зависимостей topologymetrics.
type DephealthConfig struct {
	// Name — имя владельца пода для метки name (пусто — имя сервиса)
	Name          string        `mapstructure:"name"`
	Group         string        `mapstructure:"group" validate:"required"`
	DepName       string        `mapstructure:"dep_name" validate:"required"`
	CheckInterval time.Duration `mapstructure:"check_interval" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// setDefaults задаёт значения по умолчанию для всех ключей.
// Ключ без значения по умолчанию не читается из окружения при Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.tls_cert", "")
	v.SetDefault("server.tls_key", "")

	v.SetDefault("storage.vault_dir", "./vault")
	v.SetDefault("storage.staging_dir", "")
	v.SetDefault("storage.journal_dir", "")
	v.SetDefault("storage.max_upload_size", int64(100<<20))

	v.SetDefault("lifecycle.relock_delay", 30*time.Second)
	v.SetDefault("lifecycle.trash_retention", 720*time.Hour)
	v.SetDefault("lifecycle.retention_interval", time.Hour)
	v.SetDefault("lifecycle.reconcile_interval", 6*time.Hour)

	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.jwks_ca_cert", "")
	v.SetDefault("auth.tls_skip_verify", false)
	v.SetDefault("auth.client_timeout", 10*time.Second)
	v.SetDefault("auth.refresh_interval", 15*time.Minute)
	v.SetDefault("auth.jwt_leeway", 5*time.Second)
	v.SetDefault("auth.gate_scope", "vault:authorize")

	v.SetDefault("share.enabled", false)
	v.SetDefault("share.bucket", "")
	v.SetDefault("share.region", "us-east-1")
	v.SetDefault("share.endpoint", "")
	v.SetDefault("share.access_key", "")
	v.SetDefault("share.secret_key", "")
	v.SetDefault("share.prefix", "shared/")
	v.SetDefault("share.url_ttl", 15*time.Minute)

	v.SetDefault("search.cache_size", 256)
	v.SetDefault("search.cache_ttl", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("dephealth.name", "")
	v.SetDefault("dephealth.group", "docvault")
	v.SetDefault("dephealth.dep_name", "auth-jwks")
	v.SetDefault("dephealth.check_interval", 15*time.Second)
}

// Load загружает конфигурацию. configPath — путь к YAML-файлу;
// пустая строка — только окружение и значения по умолчанию.
// Путь также можно задать через VAULT_CONFIG.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	cfg.applyDerived()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDerived вычисляет значения, зависящие от других ключей.
func (c *Config) applyDerived() {
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)

	parent := filepath.Dir(filepath.Clean(c.Storage.VaultDir))
	if c.Storage.StagingDir == "" {
		c.Storage.StagingDir = filepath.Join(parent, ".vault-staging")
	}
	if c.Storage.JournalDir == "" {
		c.Storage.JournalDir = filepath.Join(parent, ".vault-journal")
	}
}

// Validate проверяет конфигурацию по тегам validate.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("конфигурация: %s не прошло проверку '%s' (значение: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
		return fmt.Errorf("конфигурация: %w", err)
	}
	return nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel преобразует проверенную строку уровня в slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
