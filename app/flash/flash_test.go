package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndPop(t *testing.T) {
	rec := httptest.NewRecorder()
	Set(rec, "warning", "Comment is disabled.")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/post/1", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()

	msg := Pop(rec, req)
	require.NotNil(t, msg)
	assert.Equal(t, "warning", msg.Category)
	assert.Equal(t, "Comment is disabled.", msg.Text)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestPopWithoutMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, Pop(httptest.NewRecorder(), req))

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "%%%"})
	assert.Nil(t, Pop(httptest.NewRecorder(), req))
}
