package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env string `env:"BLUELOG_ENV" env-default:"development"`

	HTTP
	Store
	Blog
	Mail
	Auth
	Log
}

type HTTP struct {
	BindAddress     string        `env:"BIND_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	// RatePerMinute limits form posts per client and path; 0 disables it.
	RatePerMinute int `env:"RATE_LIMIT_PER_MINUTE" env-default:"20"`
	RateBurst     int `env:"RATE_LIMIT_BURST" env-default:"5"`
}

type Store struct {
	Driver string `env:"STORE_DRIVER" env-default:"badger"`
	Path   string `env:"STORE_PATH" env-default:"./data/bluelog"`
}

type Blog struct {
	Title          string            `env:"BLUELOG_TITLE" env-default:"Bluelog"`
	SiteURL        string            `env:"BLUELOG_SITE_URL" env-default:"http://localhost:8080"`
	AdminEmail     string            `env:"BLUELOG_EMAIL" env-default:"admin@example.com"`
	PostPerPage    int               `env:"BLUELOG_POST_PER_PAGE" env-default:"10"`
	CommentPerPage int               `env:"BLUELOG_COMMENT_PER_PAGE" env-default:"15"`
	Themes         map[string]string `env:"BLUELOG_THEMES" env-default:"perfect_blue:Perfect Blue,black_swan:Black Swan"`
	DefaultTheme   string            `env:"BLUELOG_DEFAULT_THEME" env-default:"perfect_blue"`
}

type Mail struct {
	Server   string `env:"MAIL_SERVER"`
	Port     int    `env:"MAIL_PORT" env-default:"587"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	Sender   string `env:"MAIL_SENDER" env-default:"Bluelog Admin <noreply@example.com>"`
}

type Auth struct {
	SecretKey  string        `env:"SECRET_KEY" env-default:"dev key"`
	SessionTTL time.Duration `env:"SESSION_TTL" env-default:"720h"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// Load reads the optional dotenv file at path (skipped when it does not
// exist) and then the process environment.
func Load(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("godotenv.Load: %w", err)
			}
		}
	}

	conf := &Config{}
	if err := cleanenv.ReadEnv(conf); err != nil {
		return nil, fmt.Errorf("cleanenv.ReadEnv: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the values cleanenv cannot.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case "badger", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("STORE_DRIVER must be badger or sqlite, got %q", c.Store.Driver))
	}
	if !govalidator.IsEmail(c.Blog.AdminEmail) {
		problems = append(problems, "BLUELOG_EMAIL must be a valid e-mail address")
	}
	if !govalidator.IsURL(c.Blog.SiteURL) {
		problems = append(problems, "BLUELOG_SITE_URL must be a valid URL")
	}
	if c.Blog.PostPerPage < 1 || c.Blog.CommentPerPage < 1 {
		problems = append(problems, "page sizes must be positive")
	}
	if len(c.Blog.Themes) == 0 {
		problems = append(problems, "BLUELOG_THEMES must name at least one theme")
	} else if _, ok := c.Blog.Themes[c.Blog.DefaultTheme]; !ok {
		problems = append(problems, fmt.Sprintf("BLUELOG_DEFAULT_THEME %q is not in BLUELOG_THEMES", c.Blog.DefaultTheme))
	}
	if c.Auth.SecretKey == "" {
		problems = append(problems, "SECRET_KEY is required")
	}
	if c.IsProduction() && c.Auth.SecretKey == "dev key" {
		problems = append(problems, "SECRET_KEY must be changed in production")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ThemeNames returns the configured theme keys in a stable order.
func (b Blog) ThemeNames() []string {
	names := make([]string, 0, len(b.Themes))
	for name := range b.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
