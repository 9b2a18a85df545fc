package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inkpost/app/middleware"
	"inkpost/app/services"

	"go.uber.org/zap"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AccountController handles sign-up, login, logout and the profile page.
type AccountController struct {
	base
	accounts *services.AccountService
	cookie   CookieConfig
}

// NewAccountController creates a new AccountController
func NewAccountController(accounts *services.AccountService, cookie CookieConfig, render *Renderer, log *zap.Logger) *AccountController {
	return &AccountController{
		base:     newBase(render, log),
		accounts: accounts,
		cookie:   cookie,
	}
}

type loginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

// Register creates an account and sends the new user to the login page.
func (ac *AccountController) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ac.render.HTML(w, r, http.StatusOK, "accounts/register", Page{Title: "Register"})
		return
	}

	var input services.RegisterInput
	if err := decode(r, &input, func(form url.Values) {
		input.Username = form.Get("username")
		input.Password1 = form.Get("password1")
		input.Password2 = form.Get("password2")
	}); err != nil {
		ac.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := ac.accounts.Register(input)
	if err != nil {
		ve, ok := services.AsValidationError(err)
		if !ok || middleware.WantsJSON(r) {
			ac.fail(w, r, err)
			return
		}
		ac.render.HTML(w, r, http.StatusOK, "accounts/register", Page{
			Title:  "Register",
			Form:   services.RegisterInput{Username: input.Username},
			Errors: ve.Fields,
		})
		return
	}

	if middleware.WantsJSON(r) {
		ac.sendJSON(w, http.StatusCreated, user)
		return
	}
	setFlash(w, "Your account has been created. You can log in now.")
	http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
}

// Login checks credentials, sets the session cookie and redirects to the
// next parameter when it points inside this site.
func (ac *AccountController) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ac.render.HTML(w, r, http.StatusOK, "accounts/login", Page{
			Title: "Log in",
			Next:  safeNext(r.URL.Query().Get("next")),
		})
		return
	}

	var form loginForm
	if err := decode(r, &form, func(values url.Values) {
		form.Username = values.Get("username")
		form.Password = values.Get("password")
		form.Next = values.Get("next")
	}); err != nil {
		ac.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if form.Next == "" {
		form.Next = r.URL.Query().Get("next")
	}
	next := safeNext(form.Next)

	user, err := ac.accounts.Authenticate(form.Username, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		message := "Please enter a correct username and password."
		if middleware.WantsJSON(r) {
			ac.sendError(w, r, message, http.StatusUnauthorized)
			return
		}
		ac.render.HTML(w, r, http.StatusOK, "accounts/login", Page{
			Title:  "Log in",
			Next:   next,
			Form:   loginForm{Username: form.Username},
			Errors: map[string]string{services.NonFieldKey: message},
		})
		return
	}
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	token, expiresAt, err := ac.accounts.IssueSession(user)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ac.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   ac.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	if middleware.WantsJSON(r) {
		ac.sendJSON(w, http.StatusOK, map[string]any{
			"user":       user,
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
		})
		return
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout clears the session cookie. Only POST is accepted so a link or an
// image tag cannot sign the user out.
func (ac *AccountController) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ac.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ac.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ac.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	if middleware.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	setFlash(w, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Profile shows the caller's account and posts.
func (ac *AccountController) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := ac.accounts.Profile(middleware.CallerFrom(r.Context()))
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	if middleware.WantsJSON(r) {
		ac.sendJSON(w, http.StatusOK, profile)
		return
	}
	ac.render.HTML(w, r, http.StatusOK, "accounts/profile", Page{Title: "Profile", Data: profile})
}

// safeNext keeps redirects on this site. Anything with a scheme, a host or
// a protocol-relative prefix falls back to the front page.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
