package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", conf.Env)
	assert.Equal(t, "badger", conf.Store.Driver)
	assert.Equal(t, 10, conf.Blog.PostPerPage)
	assert.Equal(t, 15, conf.Blog.CommentPerPage)
	assert.Equal(t, 15*time.Second, conf.HTTP.ReadTimeout)
	assert.Equal(t, "Perfect Blue", conf.Blog.Themes["perfect_blue"])
	assert.Equal(t, []string{"black_swan", "perfect_blue"}, conf.Blog.ThemeNames())
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "BLUELOG_POST_PER_PAGE=20\nSTORE_DRIVER=sqlite\nBLUELOG_THEMES=dark:Dark\nBLUELOG_DEFAULT_THEME=dark\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Cleanup(func() {
		for _, key := range []string{"BLUELOG_POST_PER_PAGE", "STORE_DRIVER", "BLUELOG_THEMES", "BLUELOG_DEFAULT_THEME"} {
			os.Unsetenv(key)
		}
	})

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, conf.Blog.PostPerPage)
	assert.Equal(t, "sqlite", conf.Store.Driver)
	assert.Equal(t, map[string]string{"dark": "Dark"}, conf.Blog.Themes)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:   "development",
			Store: Store{Driver: "badger"},
			Blog: Blog{
				SiteURL:        "http://localhost:8080",
				AdminEmail:     "admin@example.com",
				PostPerPage:    10,
				CommentPerPage: 15,
				Themes:         map[string]string{"perfect_blue": "Perfect Blue"},
				DefaultTheme:   "perfect_blue",
			},
			Auth: Auth{SecretKey: "dev key"},
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "unknown driver", modify: func(c *Config) { c.Store.Driver = "postgres" }, errMsg: "STORE_DRIVER"},
		{name: "bad email", modify: func(c *Config) { c.Blog.AdminEmail = "nope" }, errMsg: "BLUELOG_EMAIL"},
		{name: "bad site", modify: func(c *Config) { c.Blog.SiteURL = "::" }, errMsg: "BLUELOG_SITE_URL"},
		{name: "zero page size", modify: func(c *Config) { c.Blog.PostPerPage = 0 }, errMsg: "page sizes"},
		{name: "default theme missing", modify: func(c *Config) { c.Blog.DefaultTheme = "black_swan" }, errMsg: "BLUELOG_DEFAULT_THEME"},
		{name: "dev key in production", modify: func(c *Config) { c.Env = "production" }, errMsg: "production"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := valid()
			tt.modify(conf)
			err := conf.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
