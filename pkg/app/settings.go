package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/util"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BOTDASH_STORE_DRIVER.
const EnvPrefix = "BOTDASH"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	// DriverMemory keeps responses in process memory; they are lost on exit.
	DriverMemory = "memory"
)

// Settings is the process configuration.
type Settings struct {
	ListenAddr  string          `mapstructure:"listen_addr"`
	APIToken    string          `mapstructure:"api_token"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	LogLevel    string          `mapstructure:"log_level"`
	Store       StoreSettings   `mapstructure:"store"`
	Bot         BotSettings     `mapstructure:"bot"`
	Discord     DiscordSettings `mapstructure:"discord"`
	Push        PushSettings    `mapstructure:"push"`
	Session     SessionSettings `mapstructure:"session"`
}

type StoreSettings struct {
	Driver string `mapstructure:"driver"`
	// Path overrides the driver's platform default location.
	Path string `mapstructure:"path"`
}

// BotSettings addresses the bot runtime that receives saved responses.
// An empty BaseURL disables pushing.
type BotSettings struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// DiscordSettings holds the bot token. When set, the gateway connection that
// executes component actions is started.
type DiscordSettings struct {
	Token string `mapstructure:"token"`
}

type PushSettings struct {
	Schedule string `mapstructure:"schedule"`
	Workers  int    `mapstructure:"workers"`
}

type SessionSettings struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// LoadOptions selects the config file and command line overrides.
type LoadOptions struct {
	// ConfigFile is an explicit config path. When empty, botdash.yaml is
	// looked up in the config directory and the working directory.
	ConfigFile string

	// Overrides are applied on top of file and environment values.
	Overrides map[string]any
}

var defaults = map[string]any{
	"listen_addr":   "127.0.0.1:8377",
	"api_token":     "",
	"cors_origins":  []string{},
	"log_level":     "info",
	"store.driver":  DriverSQLite,
	"store.path":    "",
	"bot.base_url":  "",
	"bot.token":     "",
	"discord.token": "",
	"push.schedule": "@every 1m",
	"push.workers":  4,
	"session.ttl":   "30m",
}

// LoadSettings reads defaults, the optional config file, the environment and
// opts.Overrides, in increasing precedence.
func LoadSettings(opts LoadOptions) (Settings, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(util.ApplicationSupportPath)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) normalize() {
	s.ListenAddr = strings.TrimSpace(s.ListenAddr)
	s.Store.Driver = strings.ToLower(strings.TrimSpace(s.Store.Driver))
	s.Bot.BaseURL = strings.TrimSpace(s.Bot.BaseURL)
	origins := s.CORSOrigins[:0]
	for _, o := range s.CORSOrigins {
		for _, part := range strings.Split(o, ",") {
			if p := strings.TrimSpace(part); p != "" {
				origins = append(origins, p)
			}
		}
	}
	s.CORSOrigins = origins
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	switch s.Store.Driver {
	case DriverSQLite, DriverFile, DriverMemory:
	default:
		return message.NewValidationError("store.driver", s.Store.Driver, "store driver must be sqlite, file or memory")
	}
	if s.Push.Workers < 1 {
		return message.NewValidationError("push.workers", s.Push.Workers, "push workers must be at least 1")
	}
	if s.Session.TTL <= 0 {
		return message.NewValidationError("session.ttl", s.Session.TTL, "session ttl must be positive")
	}
	if s.Bot.BaseURL != "" && !strings.HasPrefix(s.Bot.BaseURL, "http://") && !strings.HasPrefix(s.Bot.BaseURL, "https://") {
		return message.NewValidationError("bot.base_url", s.Bot.BaseURL, "bot base url must be http or https")
	}
	return nil
}
