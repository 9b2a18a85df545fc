package controllers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"inkpost/app/admin"
	"inkpost/app/logger"
	"inkpost/app/middleware"
	"inkpost/app/models"
	"inkpost/app/repositories"
	"inkpost/app/repositories/mock"
	"inkpost/app/services"
	"inkpost/app/views"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	store    *repositories.Store
	posts    *services.PostService
	comments *services.CommentService
	accounts *services.AccountService
	logs     *bytes.Buffer

	postController    *PostController
	commentController *CommentController
	accountController *AccountController
	adminController   *AdminController

	alice services.Caller
	bob   services.Caller
	staff services.Caller
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mock.NewStore()
	logs := &bytes.Buffer{}
	log := logger.NewWriter(logs)

	render, err := NewRenderer(views.FS(), "Inkpost", log)
	require.NoError(t, err)

	env := &testEnv{
		store:    store,
		posts:    services.NewPostService(store.Posts, store.Comments),
		comments: services.NewCommentService(store.Comments, store.Posts),
		accounts: services.NewAccountService(store.Users, store.Posts, services.SessionConfig{Secret: "test-secret", TTL: time.Hour}).
			WithHashCost(bcrypt.MinCost),
		logs: logs,
	}
	env.postController = NewPostController(env.posts, render, 5, log)
	env.commentController = NewCommentController(env.comments, env.posts, render, log)
	env.accountController = NewAccountController(env.accounts, CookieConfig{Name: "sid"}, render, log)
	env.adminController = NewAdminController(admin.NewSite(env.posts, env.comments), render, log)

	env.alice = env.register(t, "alice", false)
	env.bob = env.register(t, "bob", false)
	env.staff = env.register(t, "admin", true)
	return env
}

func (e *testEnv) register(t *testing.T, name string, staff bool) services.Caller {
	t.Helper()
	var (
		user *models.User
		err  error
	)
	if staff {
		user, err = e.accounts.CreateAdmin(name, "password-123")
	} else {
		user, err = e.accounts.Register(services.RegisterInput{Username: name, Password1: "password-123", Password2: "password-123"})
	}
	require.NoError(t, err)
	return services.Caller{UserID: user.ID, Username: user.Username, IsStaff: user.IsStaff}
}

func (e *testEnv) createPost(t *testing.T, caller services.Caller, title string, status models.Status) *models.Post {
	t.Helper()
	post, err := e.posts.CreatePost(caller, services.PostInput{
		Title:  title,
		Body:   fmt.Sprintf("Body of %s", title),
		Status: status,
	})
	require.NoError(t, err)
	return post
}

// request builds a request carrying caller and the mux path variables.
func request(method, target string, body io.Reader, caller services.Caller, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil && method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req = req.WithContext(middleware.WithCaller(req.Context(), caller))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func formBody(values url.Values) io.Reader {
	return strings.NewReader(values.Encode())
}

func asJSON(req *http.Request) *http.Request {
	req.Header.Set("Accept", "application/json")
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rw := httptest.NewRecorder()
	h(rw, req)
	return rw
}
