package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bluelog/app/auth"
	"bluelog/app/flash"
	"bluelog/app/middleware"
	"bluelog/app/render"
	"bluelog/app/services"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Base holds what every controller needs to build a page.
type Base struct {
	posts    *services.PostService
	themes   *services.ThemeService
	renderer *render.Renderer
	log      logrus.FieldLogger
	title    string
}

func NewBase(posts *services.PostService, themes *services.ThemeService, renderer *render.Renderer, log logrus.FieldLogger, title string) *Base {
	return &Base{
		posts:    posts,
		themes:   themes,
		renderer: renderer,
		log:      log,
		title:    title,
	}
}

// view fills the parts shared by every page. It consumes the pending flash
// message.
func (b *Base) view(w http.ResponseWriter, r *http.Request) render.View {
	ctx := r.Context()

	categories, err := b.posts.ListCategories(ctx)
	if err != nil {
		b.log.WithError(err).Warn("failed to load categories")
	}

	title := b.title
	admin, err := b.posts.Profile(ctx)
	if err == nil && admin.BlogTitle != "" {
		title = admin.BlogTitle
	} else if err != nil && !errors.Is(err, services.ErrNotFound) {
		b.log.WithError(err).Warn("failed to load blog profile")
	}

	themes := b.themes.Themes()
	viewThemes := make([]render.Theme, len(themes))
	for i, t := range themes {
		viewThemes[i] = render.Theme{Name: t.Name, Label: t.Label}
	}

	var stored string
	if cookie, err := r.Cookie(services.ThemeCookieName); err == nil {
		stored = cookie.Value
	}

	return render.View{
		BlogTitle:  title,
		Path:       r.URL.RequestURI(),
		Theme:      b.themes.Resolve(stored),
		Themes:     viewThemes,
		Categories: categories,
		Identity:   auth.FromContext(ctx),
		CSRFToken:  middleware.CSRFToken(ctx),
		Flash:      flash.Pop(w, r),
		Admin:      admin,
	}
}

func (b *Base) render(w http.ResponseWriter, r *http.Request, status int, page string, view render.View) {
	if err := b.renderer.Render(w, status, page, view); err != nil {
		b.log.WithError(err).WithField("page", page).Error("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// wantsJSON reports whether the caller asked for JSON.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (b *Base) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.log.WithError(err).Warn("failed to encode response")
	}
}

// sendError maps err to a status and answers with an error page or JSON.
// Internal details go to the log only.
func (b *Base) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, "Internal Server Error"
	if verr, ok := services.IsValidation(err); ok {
		if wantsJSON(r) {
			b.sendJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": "validation failed", "fields": verr.Fields})
			return
		}
		status, message = http.StatusUnprocessableEntity, "Unprocessable Entity"
	} else if errors.Is(err, services.ErrNotFound) {
		status, message = http.StatusNotFound, "Not Found"
	} else {
		b.log.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
	}

	if wantsJSON(r) {
		b.sendJSON(w, status, map[string]string{"error": message})
		return
	}

	page := "errors/500"
	if status == http.StatusNotFound {
		page = "errors/404"
	}
	b.render(w, r, status, page, b.view(w, r))
}

// NotFound answers unmatched routes.
func (b *Base) NotFound(w http.ResponseWriter, r *http.Request) {
	b.sendError(w, r, services.ErrNotFound)
}

// redirectBack sends the caller to the "next" query value or the referrer,
// whichever is a same-host URL, else to fallback.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string, status int) {
	for _, target := range []string{r.URL.Query().Get("next"), r.Referer()} {
		if uri, ok := safeRedirect(r, target); ok {
			http.Redirect(w, r, uri, status)
			return
		}
	}
	http.Redirect(w, r, fallback, status)
}

// safeRedirect resolves target against the request host and returns it as a
// path on this host. Targets on other hosts, or that a browser could read as
// another host, are rejected.
func safeRedirect(r *http.Request, target string) (string, bool) {
	if target == "" || strings.Contains(target, "\\") {
		return "", false
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base := &url.URL{Scheme: scheme, Host: r.Host, Path: "/"}

	u, err := base.Parse(target)
	if err != nil {
		return "", false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host != r.Host {
		return "", false
	}
	if strings.Contains(u.Path, "\\") {
		return "", false
	}

	uri := u.RequestURI()
	if !strings.HasPrefix(uri, "/") || strings.HasPrefix(uri, "//") {
		return "", false
	}
	if u.Fragment != "" {
		uri += "#" + u.EscapedFragment()
	}
	return uri, true
}

// pathID reads a numeric route variable. Non-numeric ids never match a
// record, so they are reported as not found.
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, services.ErrNotFound
	}
	return id, nil
}

// pageParam reads the "page" query value. Missing or malformed values mean
// the first page; out-of-range values are left for the services to reject.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return page
}
