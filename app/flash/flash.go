package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// CookieName is the cookie carrying the pending message.
const CookieName = "flash"

// Message is shown once, on the next rendered page.
type Message struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Set queues a message for the next page.
func Set(w http.ResponseWriter, category, text string) {
	data, err := json.Marshal(Message{Category: category, Text: text})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the queued message, if any, and clears it.
func Pop(w http.ResponseWriter, r *http.Request) *Message {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Path: "/", MaxAge: -1})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Text == "" {
		return nil
	}
	return &msg
}
