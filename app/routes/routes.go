package routes

import (
	"io/fs"
	"net/http"

	"bluelog/app/auth"
	"bluelog/app/controllers"
	"bluelog/app/metrics"
	"bluelog/app/middleware"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Dependencies are the constructed controllers and cross-cutting pieces the
// router is built from.
type Dependencies struct {
	Log      logrus.FieldLogger
	Metrics  *metrics.Metrics
	Sessions *auth.Sessions
	Static   fs.FS

	Blog  *controllers.BlogController
	Auth  *controllers.AuthController
	Admin *controllers.AdminController

	// RateLimit wraps form submissions. Nil disables limiting.
	RateLimit func(http.Handler) http.Handler
}

// Setup wires every route of the blog.
func Setup(d Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.Recoverer(d.Log))
	router.Use(middleware.Logger(d.Log, d.Metrics))
	router.Use(middleware.LimitBody)
	router.Use(middleware.Identity(d.Sessions))
	router.Use(middleware.CSRF)

	limit := d.RateLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	requireAdmin := middleware.RequireAdmin("/auth/login")

	router.Handle("/metrics", requireAdmin(d.Metrics.Handler())).Methods(http.MethodGet)
	if d.Static != nil {
		router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(d.Static))))
	}

	// JSON API
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	api.Use(middleware.Protector())
	api.HandleFunc("/posts", d.Blog.Index).Methods(http.MethodGet)
	api.HandleFunc("/category/{id}", d.Blog.Category).Methods(http.MethodGet)
	api.HandleFunc("/post/{id}", d.Blog.ShowPost).Methods(http.MethodGet)

	// Blog
	router.HandleFunc("/", d.Blog.Index).Methods(http.MethodGet)
	router.HandleFunc("/about", d.Blog.About).Methods(http.MethodGet)
	router.HandleFunc("/category/{id}", d.Blog.Category).Methods(http.MethodGet)
	router.HandleFunc("/post/{id}", d.Blog.ShowPost).Methods(http.MethodGet)
	router.Handle("/post/{id}", limit(http.HandlerFunc(d.Blog.SubmitComment))).Methods(http.MethodPost)
	router.HandleFunc("/reply/comment/{id}", d.Blog.ReplyComment).Methods(http.MethodGet)
	router.HandleFunc("/change-theme/{name}", d.Blog.ChangeTheme).Methods(http.MethodGet)

	// Auth
	router.HandleFunc("/auth/login", d.Auth.LoginForm).Methods(http.MethodGet)
	router.Handle("/auth/login", limit(http.HandlerFunc(d.Auth.Login))).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", d.Auth.Logout).Methods(http.MethodGet)

	// Admin
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(requireAdmin)
	admin.HandleFunc("/comment/{id}/approve", d.Admin.ApproveComment).Methods(http.MethodPost)

	// Unmatched routes skip the router middleware.
	router.NotFoundHandler = middleware.LimitBody(middleware.Identity(d.Sessions)(middleware.CSRF(http.HandlerFunc(d.Blog.NotFound))))

	return router
}
