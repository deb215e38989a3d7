package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort         = ":5000"
	defaultHistoryLimit = 1000
	defaultHeartbeat    = 15 * time.Second
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	Chat     ChatConfig
	History  HistoryConfig
	Archive  ArchiveConfig
}

type ChatConfig struct {
	HistoryLimit      int
	HeartbeatInterval time.Duration
}

// HistoryConfig selects the persistent history backend. DatabaseURL wins
// over SQLitePath; with neither set history lives in memory only.
type HistoryConfig struct {
	DatabaseURL string
	SQLitePath  string
}

type ArchiveConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c ArchiveConfig) CanUseS3() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", defaultPort, "server port")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	logLevel := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevel == "" && isLocal(env) {
		logLevel = "debug"
	}

	return &Config{
		Port:     *port,
		Env:      env,
		LogLevel: firstNonEmpty(logLevel, "info"),
		Chat: ChatConfig{
			HistoryLimit:      resolveHistoryLimit(),
			HeartbeatInterval: resolveDuration("CHAT_HEARTBEAT_INTERVAL", defaultHeartbeat),
		},
		History: HistoryConfig{
			DatabaseURL: strings.TrimSpace(os.Getenv("HISTORY_DATABASE_URL")),
			SQLitePath:  strings.TrimSpace(os.Getenv("HISTORY_SQLITE_PATH")),
		},
		Archive: loadArchiveConfig(env),
	}, nil
}

func loadArchiveConfig(env string) ArchiveConfig {
	return ArchiveConfig{
		Endpoint:  resolveArchiveEndpoint(env),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "chatrelay-archive"),
		UseSSL:    resolveArchiveUseSSL(env),
	}
}

func resolveArchiveEndpoint(env string) string {
	if isLocal(env) {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_MINIO_ENDPOINT")), strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT")))
	}
	return strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT"))
}

// resolveArchiveUseSSL honours ARCHIVE_S3_USE_SSL when it parses; otherwise
// local talks plain HTTP to minio and everything else uses TLS.
func resolveArchiveUseSSL(env string) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("ARCHIVE_S3_USE_SSL"))); err == nil {
		return v
	}
	return !isLocal(env)
}

func resolveHistoryLimit() int {
	raw := strings.TrimSpace(os.Getenv("CHAT_HISTORY_LIMIT"))
	if raw == "" {
		return defaultHistoryLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultHistoryLimit
	}
	if n < 1 {
		return 1
	}
	return n
}

func resolveDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
