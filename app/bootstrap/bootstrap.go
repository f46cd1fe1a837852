package bootstrap

import (
	"fmt"
	"io/fs"
	"net/http"

	"bluelog/app/auth"
	"bluelog/app/config"
	"bluelog/app/controllers"
	"bluelog/app/metrics"
	"bluelog/app/middleware"
	"bluelog/app/notify"
	"bluelog/app/render"
	"bluelog/app/repositories"
	"bluelog/app/repositories/sqlite"
	"bluelog/app/routes"
	"bluelog/app/services"
	"bluelog/app/views"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// App is the fully wired application. It is built once at start and owns
// the store and the mailer.
type App struct {
	Config   *config.Config
	Log      logrus.FieldLogger
	Metrics  *metrics.Metrics
	Store    repositories.Store
	Mailer   *notify.Mailer
	Sessions *auth.Sessions

	Posts    *services.PostService
	Comments *services.CommentService
	Themes   *services.ThemeService
	Auth     *services.AuthService

	Router http.Handler
}

// OpenStore opens the configured store driver.
func OpenStore(cfg config.Store) (repositories.Store, error) {
	switch cfg.Driver {
	case "badger":
		repo, err := repositories.NewRepository(cfg.Path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewSender returns an SMTP sender when a mail server is configured and a
// logging sender otherwise.
func NewSender(cfg config.Mail, log logrus.FieldLogger) notify.Sender {
	if cfg.Server == "" {
		return notify.LogSender{Log: log}
	}
	return notify.NewSMTPSender(cfg.Server, cfg.Port, cfg.Username, cfg.Password, cfg.Sender)
}

// New opens the store and builds every component.
func New(cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	store, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	app, err := NewWithStore(cfg, log, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return app, nil
}

// NewWithStore builds every component on an already open store.
func NewWithStore(cfg *config.Config, log logrus.FieldLogger, store repositories.Store) (*App, error) {
	m := metrics.New()
	mailer := notify.NewMailer(NewSender(cfg.Mail, log), notify.MailerOptions{
		SiteURL:    cfg.Blog.SiteURL,
		AdminEmail: cfg.Blog.AdminEmail,
	}, log, m)

	app := &App{
		Config:   cfg,
		Log:      log,
		Metrics:  m,
		Store:    store,
		Mailer:   mailer,
		Sessions: auth.NewSessions(cfg.Auth.SecretKey, cfg.Auth.SessionTTL),
		Posts:    services.NewPostService(store, log),
		Comments: services.NewCommentService(store, mailer, m, log, services.CommentOptions{
			SiteURL:    cfg.Blog.SiteURL,
			AdminEmail: cfg.Blog.AdminEmail,
		}),
		Themes: services.NewThemeService(cfg.Blog.Themes, cfg.Blog.DefaultTheme),
		Auth:   services.NewAuthService(store, cfg.Blog.AdminEmail, log),
	}

	renderer, err := render.New(views.Templates)
	if err != nil {
		mailer.Close()
		return nil, err
	}
	static, err := fs.Sub(views.Static, "static")
	if err != nil {
		mailer.Close()
		return nil, err
	}
	limit, err := middleware.RateLimit(cfg.HTTP.RatePerMinute, cfg.HTTP.RateBurst, log)
	if err != nil {
		mailer.Close()
		return nil, fmt.Errorf("failed to set up rate limiting: %w", err)
	}

	base := controllers.NewBase(app.Posts, app.Themes, renderer, log, cfg.Blog.Title)
	app.Router = routes.Setup(routes.Dependencies{
		Log:       log,
		Metrics:   m,
		Sessions:  app.Sessions,
		Static:    static,
		Blog:      controllers.NewBlogController(base, app.Comments, cfg.Blog.PostPerPage, cfg.Blog.CommentPerPage),
		Auth:      controllers.NewAuthController(base, app.Auth, app.Sessions),
		Admin:     controllers.NewAdminController(base, app.Comments),
		RateLimit: limit,
	})

	return app, nil
}

// Server returns an HTTP server for the configured address.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:         a.Config.HTTP.BindAddress,
		Handler:      a.Router,
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: a.Config.HTTP.WriteTimeout,
	}
}

// Close drains the mail queue and closes the store.
func (a *App) Close() error {
	var result *multierror.Error
	if err := a.Mailer.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("mailer: %w", err))
	}
	if err := a.Store.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("store: %w", err))
	}
	return result.ErrorOrNil()
}
