// Пакет config: конфигурация Paperless UI из переменных окружения PU_*
// и необязательного dotenv-файла.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version задаётся при сборке: -ldflags "-X .../internal/config.Version=1.2.3".
var Version = "dev"

// Config: параметры запуска Paperless UI.
type Config struct {
	Port      int
	LogLevel  slog.Level
	LogFormat string // json | text

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration

	// BackendURL: адрес paperless REST без завершающего слэша.
	BackendURL string
	// BackendTimeout: таймаут одного запроса к backend (0 без таймаута).
	BackendTimeout    time.Duration
	BackendCACertPath string
	// DownloadBaseURL: адрес для ссылок скачивания; если пусто, скачивание идёт через UI.
	DownloadBaseURL string

	MaxUploadSize        int64
	ValidatePDFStructure bool

	DefaultLang string // en | de

	DephealthEnabled       bool
	DephealthGroup         string
	DephealthCheckInterval time.Duration
	// DephealthHealthPath: health endpoint backend (только 2xx считается здоровым);
	// пусто: проверка тем же Ping, что и без topologymetrics.
	DephealthHealthPath string

	// HTMXSrc: адрес htmx для страницы; пусто: встроенная копия или CDN.
	HTMXSrc string
}

// Load читает конфигурацию. Сначала подгружается dotenv-файл (PU_ENV_FILE,
// по умолчанию .env; отсутствие файла не ошибка), уже заданные переменные
// окружения он не перекрывает. Ошибки всех переменных возвращаются вместе.
func Load() (*Config, error) {
	if err := loadEnvFile(os.Getenv("PU_ENV_FILE")); err != nil {
		return nil, fmt.Errorf("PU_ENV_FILE: %w", err)
	}

	var env envReader
	cfg := &Config{
		Port:      env.intIn("PU_PORT", 8080, 1, 65535),
		LogLevel:  env.logLevel("PU_LOG_LEVEL", slog.LevelInfo),
		LogFormat: env.oneOf("PU_LOG_FORMAT", "json", "json", "text"),

		HTTPReadTimeout:  env.duration("PU_HTTP_READ_TIMEOUT", 30*time.Second),
		HTTPWriteTimeout: env.duration("PU_HTTP_WRITE_TIMEOUT", 60*time.Second),
		HTTPIdleTimeout:  env.duration("PU_HTTP_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout:  env.duration("PU_SHUTDOWN_TIMEOUT", 5*time.Second),

		BackendURL:        env.baseURL("PU_BACKEND_URL", "http://localhost:8081"),
		BackendTimeout:    env.duration("PU_BACKEND_TIMEOUT", 0),
		BackendCACertPath: env.str("PU_BACKEND_CA_CERT_PATH", ""),
		DownloadBaseURL:   env.baseURL("PU_DOWNLOAD_BASE_URL", ""),

		MaxUploadSize:        int64(env.intIn("PU_MAX_UPLOAD_SIZE", 32<<20, 1, 1<<40)),
		ValidatePDFStructure: env.boolean("PU_VALIDATE_PDF_STRUCTURE", false),

		DefaultLang: env.oneOf("PU_DEFAULT_LANG", "en", "en", "de"),

		DephealthEnabled:       env.boolean("PU_DEPHEALTH_ENABLED", true),
		DephealthGroup:         env.str("PU_DEPHEALTH_GROUP", "paperless"),
		DephealthCheckInterval: env.duration("PU_DEPHEALTH_CHECK_INTERVAL", 15*time.Second),
		DephealthHealthPath:    env.absPath("PU_DEPHEALTH_HEALTH_PATH", ""),
		HTMXSrc:                env.str("PU_HTMX_SRC", ""),
	}

	if err := env.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger создаёт логгер по LogLevel и LogFormat и делает его slog.Default.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func loadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// envReader читает переменные окружения и копит ошибки разбора.
// При ошибке метод возвращает значение по умолчанию.
type envReader struct {
	errs []error
}

// Err возвращает все накопленные ошибки или nil.
func (e *envReader) Err() error {
	return errors.Join(e.errs...)
}

func (e *envReader) fail(key, format string, args ...any) {
	e.errs = append(e.errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) intIn(key string, def, lo, hi int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, "некорректное целое число %q", raw)
		return def
	}
	if n < lo || n > hi {
		e.fail(key, "значение %d вне диапазона %d-%d", n, lo, hi)
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, "некорректное булево значение %q", raw)
		return def
	}
	return b
}

// duration разбирает длительность в формате Go (30s, 15m); отрицательные запрещены.
func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, "некорректная длительность %q (формат Go: 30s, 1h, 15m)", raw)
		return def
	}
	if d < 0 {
		e.fail(key, "отрицательная длительность %s", d)
		return def
	}
	return d
}

// oneOf приводит значение к нижнему регистру и проверяет по списку допустимых.
func (e *envReader) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(e.str(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	e.fail(key, "недопустимое значение %q, допустимые: %s", v, strings.Join(allowed, ", "))
	return def
}

func (e *envReader) logLevel(key string, def slog.Level) slog.Level {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	level, err := parseLogLevel(raw)
	if err != nil {
		e.fail(key, "%v", err)
		return def
	}
	return level
}

// baseURL проверяет абсолютный http(s) URL и убирает завершающий слэш.
// Пустое значение допустимо, если пуст и def.
func (e *envReader) baseURL(key, def string) string {
	raw := e.str(key, def)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		e.fail(key, "некорректный URL %q", raw)
	case u.Scheme != "http" && u.Scheme != "https":
		e.fail(key, "схема %q не поддерживается, допустимые: http, https", u.Scheme)
	case u.Host == "":
		e.fail(key, "в URL %q не указан хост", raw)
	default:
		return strings.TrimRight(raw, "/")
	}
	return def
}

func (e *envReader) absPath(key, def string) string {
	p := e.str(key, def)
	if p != "" && !strings.HasPrefix(p, "/") {
		e.fail(key, "путь %q должен начинаться с /", p)
		return def
	}
	return p
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
}
