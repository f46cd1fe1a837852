package services

import (
	"fmt"
	"sort"
	"time"
)

const (
	ThemeCookieName = "theme"
	ThemeMaxAge     = 30 * 24 * time.Hour
)

// ThemeChoice is an accepted theme to be stored on the client.
type ThemeChoice struct {
	Name    string
	MaxAge  time.Duration
	Expires time.Time
}

// Theme is one entry of the allow-list.
type Theme struct {
	Name  string
	Label string
}

// ThemeService checks theme names against the configured allow-list.
type ThemeService struct {
	themes       map[string]string
	defaultTheme string
	now          func() time.Time
}

func NewThemeService(themes map[string]string, defaultTheme string) *ThemeService {
	return &ThemeService{themes: themes, defaultTheme: defaultTheme, now: time.Now}
}

// Select accepts name only when it is in the allow-list.
func (s *ThemeService) Select(name string) (*ThemeChoice, error) {
	if _, ok := s.themes[name]; !ok {
		return nil, fmt.Errorf("theme %q: %w", name, ErrNotFound)
	}
	return &ThemeChoice{
		Name:    name,
		MaxAge:  ThemeMaxAge,
		Expires: s.now().Add(ThemeMaxAge),
	}, nil
}

// Resolve returns the theme to render with for a stored preference.
func (s *ThemeService) Resolve(stored string) string {
	if _, ok := s.themes[stored]; ok {
		return stored
	}
	return s.defaultTheme
}

// Themes lists the allow-list ordered by name.
func (s *ThemeService) Themes() []Theme {
	themes := make([]Theme, 0, len(s.themes))
	for name, label := range s.themes {
		themes = append(themes, Theme{Name: name, Label: label})
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i].Name < themes[j].Name })
	return themes
}
