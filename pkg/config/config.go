package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT"`
		Host    string `env:"POSTGRES_HOST"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	Feed struct {
		ViewerID      string `env:"FEED_VIEWER_ID"`
		PageSize      int    `env:"FEED_PAGE_SIZE" env-default:"10"`
		MaxPosts      int    `env:"FEED_MAX_POSTS" env-default:"100"`
		TrimBatch     int    `env:"FEED_TRIM_BATCH" env-default:"50"`
		RetentionDays int    `env:"FEED_RETENTION_DAYS" env-default:"90"`
	}
	MediaCache struct {
		MaxEntries   int   `env:"MEDIA_CACHE_MAX_ENTRIES" env-default:"16"`
		MaxBytes     int64 `env:"MEDIA_CACHE_MAX_BYTES" env-default:"67108864"`
		WindowRadius int   `env:"MEDIA_CACHE_WINDOW_RADIUS" env-default:"2"`
	}
	VideoCache struct {
		Capacity int `env:"VIDEO_CACHE_CAPACITY" env-default:"6"`
	}
	HTTPCache struct {
		Dir            string        `env:"HTTP_CACHE_DIR" env-default:"./media-cache"`
		MemoryBytes    int64         `env:"HTTP_CACHE_MEMORY_BYTES" env-default:"33554432"`
		DiskBytes      int64         `env:"HTTP_CACHE_DISK_BYTES" env-default:"268435456"`
		ConnectTimeout time.Duration `env:"HTTP_CONNECT_TIMEOUT" env-default:"30s"`
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"60s"`
	}
	Playback struct {
		MaxBitrateBps int           `env:"PLAYBACK_MAX_BITRATE_BPS" env-default:"2000000"`
		ForwardBuffer time.Duration `env:"PLAYBACK_FORWARD_BUFFER" env-default:"15s"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}

// GetDSN returns the postgres connection string in keyword/value form.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("dbname=%s user=%s password=%s host=%s port=%d sslmode=%s",
		c.Postgres.Name, c.Postgres.User, c.Postgres.Pass, c.Postgres.Host, c.Postgres.Port, c.Postgres.SslMode)
}
