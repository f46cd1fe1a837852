package controllers

import (
	"errors"
	"net/http"

	"bluelog/app/auth"
	"bluelog/app/flash"
	"bluelog/app/render"
	"bluelog/app/services"
)

type AuthController struct {
	*Base
	auth     *services.AuthService
	sessions *auth.Sessions
}

func NewAuthController(base *Base, authService *services.AuthService, sessions *auth.Sessions) *AuthController {
	return &AuthController{Base: base, auth: authService, sessions: sessions}
}

func (c *AuthController) LoginForm(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()).IsAdmin() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	c.renderLogin(w, r, http.StatusOK, render.Form{})
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()).IsAdmin() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	username := r.PostFormValue("username")
	identity, err := c.auth.Login(r.Context(), username, r.PostFormValue("password"))
	if verr, ok := services.IsValidation(err); ok {
		c.renderLogin(w, r, http.StatusUnprocessableEntity, render.Form{Username: username, Errors: verr.Fields})
		return
	}
	if errors.Is(err, services.ErrInvalidCredentials) {
		flash.Set(w, "warning", "Invalid username or password.")
		http.Redirect(w, r, r.URL.RequestURI(), http.StatusSeeOther)
		return
	}
	if err != nil {
		c.sendError(w, r, err)
		return
	}

	token, err := c.sessions.Issue(identity)
	if err != nil {
		c.sendError(w, r, err)
		return
	}
	c.sessions.SetCookie(w, token, r.PostFormValue("remember") != "")
	flash.Set(w, "info", "Welcome back.")
	redirectBack(w, r, "/", http.StatusSeeOther)
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	c.sessions.ClearCookie(w)
	if auth.FromContext(r.Context()).IsAdmin() {
		flash.Set(w, "info", "Logout success.")
	}
	redirectBack(w, r, "/", http.StatusFound)
}

func (c *AuthController) renderLogin(w http.ResponseWriter, r *http.Request, status int, form render.Form) {
	form.Action = r.URL.RequestURI()
	view := c.view(w, r)
	view.Form = form
	c.render(w, r, status, "auth/login", view)
}
