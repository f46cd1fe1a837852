package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"bluelog/app/auth"
	"bluelog/app/controllers"
	"bluelog/app/flash"
	"bluelog/app/logger"
	"bluelog/app/metrics"
	"bluelog/app/middleware"
	"bluelog/app/models"
	"bluelog/app/render"
	"bluelog/app/repositories/mock"
	"bluelog/app/services"
	"bluelog/app/views"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testToken = "test-csrf-token"

type recordingNotifier struct {
	mu       sync.Mutex
	comments int
	replies  int
}

func (n *recordingNotifier) NotifyNewComment(*models.Post) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments++
}

func (n *recordingNotifier) NotifyNewReply(*models.Comment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies++
}

type testApp struct {
	router   *mux.Router
	store    *mock.Store
	notifier *recordingNotifier
	sessions *auth.Sessions
	category *models.Category
}

func setupTestRouter(t *testing.T) *testApp {
	t.Helper()
	models.HashCost = bcrypt.MinCost

	log := logger.Discard()
	store := mock.NewStore()
	notifier := &recordingNotifier{}
	sessions := auth.NewSessions("test secret", time.Hour)
	m := metrics.New()

	renderer, err := render.New(views.Templates)
	require.NoError(t, err)

	posts := services.NewPostService(store, log)
	comments := services.NewCommentService(store, notifier, m, log, services.CommentOptions{
		SiteURL:    "http://localhost:8080",
		AdminEmail: "admin@example.com",
	})
	themes := services.NewThemeService(map[string]string{
		"perfect_blue": "Perfect Blue",
		"black_swan":   "Black Swan",
	}, "perfect_blue")
	authService := services.NewAuthService(store, "admin@example.com", log)

	_, err = authService.Init(context.Background(), "admin", "helloflask")
	require.NoError(t, err)
	category, err := store.Categories().GetByName(context.Background(), services.DefaultCategory)
	require.NoError(t, err)

	base := controllers.NewBase(posts, themes, renderer, log, "Bluelog")
	router := Setup(Dependencies{
		Log:      log,
		Metrics:  m,
		Sessions: sessions,
		Static:   fstest.MapFS{"css/perfect_blue.css": {Data: []byte("body{}")}},
		Blog:     controllers.NewBlogController(base, comments, 2, 2),
		Auth:     controllers.NewAuthController(base, authService, sessions),
		Admin:    controllers.NewAdminController(base, comments),
	})

	return &testApp{router: router, store: store, notifier: notifier, sessions: sessions, category: category}
}

func (a *testApp) post(t *testing.T, title string, canComment bool) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Body: "Body of " + title, CategoryID: a.category.ID, CanComment: canComment}
	require.NoError(t, a.store.Posts().Create(context.Background(), p))
	return p
}

func (a *testApp) comment(t *testing.T, postID int, reviewed bool) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, Author: "Mima", Email: "mima@example.com", Body: "First!", Reviewed: reviewed}
	require.NoError(t, a.store.Comments().Create(context.Background(), c))
	return c
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := a.sessions.Issue(auth.Identity{Authenticated: true, Username: "admin", Name: "Admin"})
	require.NoError(t, err)
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

// formRequest builds a POST carrying a valid CSRF token.
func formRequest(target string, form url.Values) *http.Request {
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFieldName, testToken)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: testToken})
	return req
}

func flashOf(t *testing.T, rec *httptest.ResponseRecorder) *flash.Message {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flash.CookieName && cookie.Value != "" {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(cookie)
			return flash.Pop(httptest.NewRecorder(), req)
		}
	}
	return nil
}

func TestIndex(t *testing.T) {
	app := setupTestRouter(t)
	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		app.post(t, title, true)
	}

	rec := app.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gamma")
	assert.Contains(t, rec.Body.String(), "Beta")
	assert.NotContains(t, rec.Body.String(), "Alpha")

	rec = app.do(httptest.NewRequest(http.MethodGet, "/?page=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alpha")

	rec = app.do(httptest.NewRequest(http.MethodGet, "/?page=3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/?page=0", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexEmptyBlog(t *testing.T) {
	app := setupTestRouter(t)
	rec := app.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAboutAndNotFound(t *testing.T) {
	app := setupTestRouter(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/about", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Anything about you.")

	rec = app.do(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestCategory(t *testing.T) {
	app := setupTestRouter(t)
	app.post(t, "Filed", true)
	other := &models.Category{Name: "Other"}
	require.NoError(t, app.store.Categories().Create(context.Background(), other))

	rec := app.do(httptest.NewRequest(http.MethodGet, "/category/"+itoa(app.category.ID), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Filed")

	rec = app.do(httptest.NewRequest(http.MethodGet, "/category/"+itoa(other.ID), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Filed")

	for _, path := range []string{"/category/999", "/category/abc"} {
		rec = app.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestShowPost(t *testing.T) {
	app := setupTestRouter(t)
	post := app.post(t, "Hello", true)
	app.comment(t, post.ID, true)
	pending := app.comment(t, post.ID, false)
	pending.Body = "Waiting"
	require.NoError(t, app.store.Comments().Update(context.Background(), pending))

	rec := app.do(httptest.NewRequest(http.MethodGet, "/post/"+itoa(post.ID), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Hello")
	assert.Contains(t, body, "First!")
	assert.NotContains(t, body, "Waiting")
	assert.Contains(t, body, `name="csrf_token"`)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/post/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI(t *testing.T) {
	app := setupTestRouter(t)
	post := app.post(t, "Hello", true)
	app.comment(t, post.ID, true)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var page models.Page[*models.Post]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Hello", page.Items[0].Title)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/api/post/"+itoa(post.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var shown struct {
		Post     models.Post                   `json:"post"`
		Comments models.Page[*models.Comment] `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shown))
	assert.Equal(t, post.ID, shown.Post.ID)
	assert.Equal(t, 1, shown.Comments.Total)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/api/post/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestSubmitComment(t *testing.T) {
	form := url.Values{
		"author": {"Mima"},
		"email":  {"mima@example.com"},
		"site":   {"https://example.com"},
		"body":   {"Nice post"},
	}

	t.Run("anonymous comment waits for review", func(t *testing.T) {
		app := setupTestRouter(t)
		post := app.post(t, "Hello", true)

		rec := app.do(formRequest("/post/"+itoa(post.ID), form))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/post/"+itoa(post.ID), rec.Header().Get("Location"))

		msg := flashOf(t, rec)
		require.NotNil(t, msg)
		assert.Equal(t, services.MessagePending, msg.Text)
		assert.Equal(t, 1, app.store.CommentMock().Len())
		assert.Equal(t, 1, app.notifier.comments)

		stored, err := app.store.Comments().GetByID(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, stored.Reviewed)
		assert.False(t, stored.FromAdmin)
	})

	t.Run("admin comment is published", func(t *testing.T) {
		app := setupTestRouter(t)
		post := app.post(t, "Hello", true)

		req := formRequest("/post/"+itoa(post.ID), url.Values{"body": {"Thanks"}})
		req.AddCookie(app.adminCookie(t))
		rec := app.do(req)
		require.Equal(t, http.StatusSeeOther, rec.Code)

		msg := flashOf(t, rec)
		require.NotNil(t, msg)
		assert.Equal(t, services.MessagePublished, msg.Text)
		assert.Equal(t, 0, app.notifier.comments)

		stored, err := app.store.Comments().GetByID(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, stored.Reviewed)
		assert.True(t, stored.FromAdmin)
	})

	t.Run("reply notifies the target", func(t *testing.T) {
		app := setupTestRouter(t)
		post := app.post(t, "Hello", true)
		target := app.comment(t, post.ID, true)

		rec := app.do(formRequest("/post/"+itoa(post.ID)+"?reply="+itoa(target.ID), form))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, 1, app.notifier.replies)
		assert.Equal(t, 0, app.notifier.comments)

		stored, err := app.store.Comments().GetByID(context.Background(), target.ID+1)
		require.NoError(t, err)
		assert.Equal(t, target.ID, stored.RepliedID)
	})

	t.Run("malformed reply is not found", func(t *testing.T) {
		app := setupTestRouter(t)
		post := app.post(t, "Hello", true)
		rec := app.do(formRequest("/post/"+itoa(post.ID)+"?reply=abc", form))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, 0, app.store.CommentMock().Len())
	})

	t.Run("invalid form is shown again", func(t *testing.T) {
		app := setupTestRouter(t)
		post := app.post(t, "Hello", true)

		rec := app.do(formRequest("/post/"+itoa(post.ID), url.Values{"author": {"Mima"}, "email": {"not-an-email"}}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid email address.")
		assert.Contains(t, rec.Body.String(), `value="Mima"`)
		assert.Equal(t, 0, app.store.CommentMock().Len())
		assert.Equal(t, 0, app.notifier.comments)
	})

	t.Run("comments disabled", func(t *testing.T) {
		app := setupTestRouter(t)
		post := app.post(t, "Closed", false)

		rec := app.do(formRequest("/post/"+itoa(post.ID), form))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		msg := flashOf(t, rec)
		require.NotNil(t, msg)
		assert.Equal(t, "warning", msg.Category)
		assert.Equal(t, services.MessageDisabled, msg.Text)
		assert.Equal(t, 0, app.store.CommentMock().Len())
	})

	t.Run("missing csrf token", func(t *testing.T) {
		app := setupTestRouter(t)
		post := app.post(t, "Hello", true)

		req := httptest.NewRequest(http.MethodPost, "/post/"+itoa(post.ID), strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := app.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, app.store.CommentMock().Len())
	})

	t.Run("oversized body", func(t *testing.T) {
		app := setupTestRouter(t)
		post := app.post(t, "Hello", true)

		big := url.Values{
			"author": {"Mima"},
			"email":  {"mima@example.com"},
			"body":   {strings.Repeat("a", middleware.MaxBodyBytes)},
		}
		rec := app.do(formRequest("/post/"+itoa(post.ID), big))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, app.store.CommentMock().Len())
	})

	t.Run("unknown post", func(t *testing.T) {
		app := setupTestRouter(t)
		rec := app.do(formRequest("/post/999", form))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReplyComment(t *testing.T) {
	app := setupTestRouter(t)
	post := app.post(t, "Hello", true)
	target := app.comment(t, post.ID, true)
	target.Author = "Mima Kirigoe"
	require.NoError(t, app.store.Comments().Update(context.Background(), target))

	rec := app.do(httptest.NewRequest(http.MethodGet, "/reply/comment/"+itoa(target.ID), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Equal(t, "/post/"+itoa(post.ID)+"?reply="+itoa(target.ID)+"&author=Mima+Kirigoe#comment-form", location)

	rec = app.do(httptest.NewRequest(http.MethodGet, strings.TrimSuffix(location, "#comment-form"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Reply to <strong>Mima Kirigoe</strong>")

	closed := app.post(t, "Closed", false)
	old := app.comment(t, closed.ID, true)
	rec = app.do(httptest.NewRequest(http.MethodGet, "/reply/comment/"+itoa(old.ID), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/post/"+itoa(closed.ID), rec.Header().Get("Location"))
	msg := flashOf(t, rec)
	require.NotNil(t, msg)
	assert.Equal(t, services.MessageDisabled, msg.Text)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/reply/comment/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangeTheme(t *testing.T) {
	app := setupTestRouter(t)

	tests := []struct {
		name     string
		referer  string
		location string
	}{
		{"same host referer", "http://example.com/about", "/about"},
		{"backslash referer", "http://example.com/\\evil.example.org/", "/"},
		{"foreign referer", "http://evil.example.org/", "/"},
		{"no referer", "", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/change-theme/black_swan", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := app.do(req)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))

			var theme *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == services.ThemeCookieName {
					theme = c
				}
			}
			require.NotNil(t, theme)
			assert.Equal(t, "black_swan", theme.Value)
			assert.Equal(t, int(services.ThemeMaxAge.Seconds()), theme.MaxAge)
		})
	}

	rec := app.do(httptest.NewRequest(http.MethodGet, "/change-theme/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req.AddCookie(&http.Cookie{Name: services.ThemeCookieName, Value: "black_swan"})
	rec = app.do(req)
	assert.Contains(t, rec.Body.String(), "/static/css/black_swan.css")
}

func TestLoginLogout(t *testing.T) {
	app := setupTestRouter(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(formRequest("/auth/login", url.Values{"username": {"admin"}, "password": {"wrong"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	msg := flashOf(t, rec)
	require.NotNil(t, msg)
	assert.Equal(t, "Invalid username or password.", msg.Text)

	rec = app.do(formRequest("/auth/login", url.Values{"username": {""}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = app.do(formRequest("/auth/login?next=/about", url.Values{"username": {"admin"}, "password": {"helloflask"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/about", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	identity, err := app.sessions.Parse(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "admin", identity.Username)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(session)
	rec = app.do(req)
	require.Equal(t, http.StatusFound, rec.Code)
	msg = flashOf(t, rec)
	require.NotNil(t, msg)
	assert.Equal(t, "Logout success.", msg.Text)
}

func TestApproveComment(t *testing.T) {
	app := setupTestRouter(t)
	post := app.post(t, "Hello", true)
	pending := app.comment(t, post.ID, false)
	path := "/admin/comment/" + itoa(pending.ID) + "/approve"

	rec := app.do(formRequest(path, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/auth/login?next="))

	stored, err := app.store.Comments().GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.False(t, stored.Reviewed)

	req := formRequest(path, nil)
	req.AddCookie(app.adminCookie(t))
	rec = app.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/post/"+itoa(post.ID)+"#comments", rec.Header().Get("Location"))

	stored, err = app.store.Comments().GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.True(t, stored.Reviewed)
}

func TestMetricsAndStatic(t *testing.T) {
	app := setupTestRouter(t)
	app.do(httptest.NewRequest(http.MethodGet, "/about", nil))

	rec := app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/auth/login?next="))
	assert.NotContains(t, rec.Body.String(), "bluelog_http_requests_total")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.AddCookie(app.adminCookie(t))
	rec = app.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bluelog_http_requests_total")

	rec = app.do(httptest.NewRequest(http.MethodGet, "/static/css/perfect_blue.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
