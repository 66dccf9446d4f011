package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AppName   = "fragments"
	envPrefix = "FRAGMENTS"

	TagPolicyFirst = "first"
	TagPolicyNone  = "none"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	PageSize    int           `mapstructure:"page_size"`
	AllowLocal  bool          `mapstructure:"allow_local"`
}

type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type FeedConfig struct {
	// TagPolicy picks the tag forwarded to the server: "first" or "none".
	TagPolicy     string `mapstructure:"tag_policy"`
	NarrowDisplay bool   `mapstructure:"narrow_display"`
	SearchLimit   int    `mapstructure:"search_limit"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr     string   `mapstructure:"addr"`
	Fixtures string   `mapstructure:"fixtures"`
	Feeds    []string `mapstructure:"feeds"`
}

type UIConfig struct {
	Colors UIColors   `mapstructure:"colors"`
	Card   CardConfig `mapstructure:"card"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type CardConfig struct {
	MaxSummaryLength int `mapstructure:"max_summary_length"`
	MaxTopics        int `mapstructure:"max_topics"`
	WordWrapMaxWidth int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int `mapstructure:"word_wrap_min_width"`
}

type MediaConfig struct {
	Darwin        []string `mapstructure:"darwin"`
	Linux         []string `mapstructure:"linux"`
	Windows       []string `mapstructure:"windows"`
	DefaultOpener string   `mapstructure:"default_opener"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit       string `mapstructure:"quit"`
	Search     string `mapstructure:"search"`
	Tags       string `mapstructure:"tags"`
	AddTag     string `mapstructure:"add_tag"`
	RemoveTag  string `mapstructure:"remove_tag"`
	Refresh    string `mapstructure:"refresh"`
	OpenImage  string `mapstructure:"open_image"`
	OpenSource string `mapstructure:"open_source"`
	Back       string `mapstructure:"back"`
	Help       string `mapstructure:"help"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		API: APIConfig{
			BaseURL:     "http://127.0.0.1:4800/api",
			HTTPTimeout: 30 * time.Second,
			UserAgent:   "fragments/1.0 (news reader)",
			PageSize:    20,
			AllowLocal:  true,
		},
		Database: DatabaseConfig{
			Path:    filepath.Join(homeDir, ".fragments.db"),
			Timeout: 1 * time.Second,
		},
		Feed: FeedConfig{
			TagPolicy:     TagPolicyFirst,
			NarrowDisplay: true,
			SearchLimit:   20,
		},
		Log: LogConfig{
			Level: "off",
			Path:  filepath.Join(homeDir, ".fragments", "fragments.log"),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:4800",
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
			Card: CardConfig{
				MaxSummaryLength: 150,
				MaxTopics:        3,
				WordWrapMaxWidth: 120,
				WordWrapMinWidth: 40,
			},
		},
		Media: MediaConfig{
			Darwin:        []string{"open"},
			Linux:         []string{"sxiv", "feh", "eog", "xdg-open"},
			Windows:       []string{"start"},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:       "q",
				Search:     "s",
				Tags:       "t",
				AddTag:     "n",
				RemoveTag:  "x",
				Refresh:    "r",
				OpenImage:  "o",
				OpenSource: "l",
				Back:       "esc",
				Help:       "?",
			},
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// settings flattens cfg into dotted viper keys. Durations are rendered as
// strings so the written TOML stays readable.
func settings(cfg *Config) map[string]any {
	return map[string]any{
		"api.base_url":     cfg.API.BaseURL,
		"api.http_timeout": cfg.API.HTTPTimeout.String(),
		"api.user_agent":   cfg.API.UserAgent,
		"api.page_size":    cfg.API.PageSize,
		"api.allow_local":  cfg.API.AllowLocal,

		"database.path":    cfg.Database.Path,
		"database.timeout": cfg.Database.Timeout.String(),

		"feed.tag_policy":     cfg.Feed.TagPolicy,
		"feed.narrow_display": cfg.Feed.NarrowDisplay,
		"feed.search_limit":   cfg.Feed.SearchLimit,

		"log.level": cfg.Log.Level,
		"log.path":  cfg.Log.Path,

		"server.addr":     cfg.Server.Addr,
		"server.fixtures": cfg.Server.Fixtures,
		"server.feeds":    cfg.Server.Feeds,

		"ui.colors.primary":   cfg.UI.Colors.Primary,
		"ui.colors.secondary": cfg.UI.Colors.Secondary,
		"ui.colors.accent":    cfg.UI.Colors.Accent,
		"ui.colors.text":      cfg.UI.Colors.Text,
		"ui.colors.muted":     cfg.UI.Colors.Muted,
		"ui.colors.error":     cfg.UI.Colors.Error,
		"ui.colors.success":   cfg.UI.Colors.Success,

		"ui.card.max_summary_length":  cfg.UI.Card.MaxSummaryLength,
		"ui.card.max_topics":          cfg.UI.Card.MaxTopics,
		"ui.card.word_wrap_max_width": cfg.UI.Card.WordWrapMaxWidth,
		"ui.card.word_wrap_min_width": cfg.UI.Card.WordWrapMinWidth,

		"media.darwin":         cfg.Media.Darwin,
		"media.linux":          cfg.Media.Linux,
		"media.windows":        cfg.Media.Windows,
		"media.default_opener": cfg.Media.DefaultOpener,

		"keys.modifier":             cfg.Keys.Modifier,
		"keys.bindings.quit":        cfg.Keys.Bindings.Quit,
		"keys.bindings.search":      cfg.Keys.Bindings.Search,
		"keys.bindings.tags":        cfg.Keys.Bindings.Tags,
		"keys.bindings.add_tag":     cfg.Keys.Bindings.AddTag,
		"keys.bindings.remove_tag":  cfg.Keys.Bindings.RemoveTag,
		"keys.bindings.refresh":     cfg.Keys.Bindings.Refresh,
		"keys.bindings.open_image":  cfg.Keys.Bindings.OpenImage,
		"keys.bindings.open_source": cfg.Keys.Bindings.OpenSource,
		"keys.bindings.back":        cfg.Keys.Bindings.Back,
		"keys.bindings.help":        cfg.Keys.Bindings.Help,
	}
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", AppName, "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	for key, value := range settings(defaultConfig()) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.API.PageSize < 1 {
		return fmt.Errorf("api.page_size must be at least 1, got %d", c.API.PageSize)
	}
	if c.API.HTTPTimeout < 0 {
		return fmt.Errorf("api.http_timeout must not be negative")
	}
	switch strings.ToLower(c.Feed.TagPolicy) {
	case TagPolicyFirst, TagPolicyNone:
	default:
		return fmt.Errorf("feed.tag_policy must be %q or %q, got %q", TagPolicyFirst, TagPolicyNone, c.Feed.TagPolicy)
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Log.Path = expandPath(cfg.Log.Path)
	cfg.Server.Fixtures = expandPath(cfg.Server.Fixtures)
}

func Save(config *Config, path string) error {
	v := viper.New()

	for key, value := range settings(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
