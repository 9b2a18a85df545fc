package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"inkpost/app/config"
	"inkpost/app/logger"
	"inkpost/app/middleware"
	"inkpost/app/models"
	"inkpost/app/repositories"
	"inkpost/app/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	server   *httptest.Server
	store    *repositories.Store
	accounts *services.AccountService
	logs     *bytes.Buffer
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{Secret: "routes-test", CookieName: "sid", TTLHours: 1},
		Blog:    config.BlogConfig{Title: "Inkpost", PageSize: 5},
	}
}

func setupApp(t *testing.T, driver string) *testApp {
	t.Helper()
	logs := &bytes.Buffer{}
	log := logger.NewWriter(logs)

	store, err := repositories.Open(repositories.Options{Driver: driver, InMemory: true}, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := testConfig()
	accounts := services.NewAccountService(store.Users, store.Posts, cfg.Session.ToServiceConfig()).WithHashCost(bcrypt.MinCost)
	handler, err := Setup(Dependencies{Config: cfg, Store: store, Logger: log, Accounts: accounts})
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &testApp{server: server, store: store, accounts: accounts, logs: logs}
}

// client does not follow redirects so tests can assert on them.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 10 * time.Second,
	}
}

func (a *testApp) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(a.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) post(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(a.server.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) login(t *testing.T, c *http.Client, username string) {
	t.Helper()
	resp, _ := a.post(t, c, "/login/", url.Values{"username": {username}, "password": {"password-123"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestBlogJourney(t *testing.T) {
	for _, driver := range []string{repositories.DriverBadger, repositories.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			app := setupApp(t, driver)
			author := app.client(t)
			reader := app.client(t)

			resp, _ := app.post(t, author, "/register/", url.Values{
				"username": {"alice"}, "password1": {"password-123"}, "password2": {"password-123"},
			})
			require.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/login/", resp.Header.Get("Location"))
			app.login(t, author, "alice")

			resp, _ = app.post(t, author, "/create/", url.Values{
				"title": {"Hello World"}, "body": {"First post"}, "tags": {"intro, go"}, "status": {"1"},
			})
			require.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/hello-world/", resp.Header.Get("Location"))

			resp, body := app.get(t, reader, "/")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, `href="/hello-world/"`)

			resp, body = app.get(t, reader, "/hello-world/")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "First post")
			assert.Contains(t, body, `<span class="tag">intro</span>`)

			resp, _ = app.post(t, reader, "/hello-world/comment/", url.Values{"content": {"Welcome!"}})
			require.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/login/?next=%2Fhello-world%2F", resp.Header.Get("Location"))

			_, err := app.accounts.Register(services.RegisterInput{Username: "bob", Password1: "password-123", Password2: "password-123"})
			require.NoError(t, err)
			app.login(t, reader, "bob")

			resp, _ = app.post(t, reader, "/hello-world/comment/", url.Values{"content": {"Welcome!"}})
			require.Equal(t, http.StatusFound, resp.StatusCode)
			_, body = app.get(t, reader, "/hello-world/")
			assert.Contains(t, body, "Welcome!")
			assert.Contains(t, body, "Your comment has been added successfully!")

			resp, _ = app.post(t, reader, "/hello-world/edit/", url.Values{"title": {"Mine"}, "body": {"x"}})
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			resp, body = app.get(t, author, "/my-posts/")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "Hello World")

			resp, _ = app.post(t, author, "/hello-world/delete/", nil)
			require.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/my-posts/", resp.Header.Get("Location"))

			resp, _ = app.get(t, reader, "/hello-world/")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			comments, err := app.store.Comments.List(repositories.CommentFilter{})
			require.NoError(t, err)
			assert.Empty(t, comments)

			resp, _ = app.post(t, author, "/logout/", nil)
			require.Equal(t, http.StatusFound, resp.StatusCode)
			resp, _ = app.get(t, author, "/my-posts/")
			assert.Equal(t, http.StatusFound, resp.StatusCode)
		})
	}
}

func TestDraftsStayPrivate(t *testing.T) {
	app := setupApp(t, repositories.DriverBadger)
	_, err := app.accounts.Register(services.RegisterInput{Username: "alice", Password1: "password-123", Password2: "password-123"})
	require.NoError(t, err)
	author := app.client(t)
	app.login(t, author, "alice")

	resp, _ := app.post(t, author, "/create/", url.Values{"title": {"Unfinished"}, "body": {"todo"}, "status": {"0"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	anonymous := app.client(t)
	_, body := app.get(t, anonymous, "/")
	assert.NotContains(t, body, "Unfinished")
	resp, _ = app.get(t, anonymous, "/unfinished/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = app.get(t, author, "/unfinished/edit/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="Unfinished"`)
}

func TestRouting(t *testing.T) {
	app := setupApp(t, repositories.DriverBadger)
	c := app.client(t)

	tests := []struct {
		name     string
		method   string
		path     string
		json     bool
		want     int
		location string
	}{
		{"home", http.MethodGet, "/", false, http.StatusOK, ""},
		{"login page", http.MethodGet, "/login/", false, http.StatusOK, ""},
		{"register page", http.MethodGet, "/register/", false, http.StatusOK, ""},
		{"create needs login", http.MethodGet, "/create/", false, http.StatusFound, "/login/?next=%2Fcreate%2F"},
		{"my posts needs login", http.MethodGet, "/my-posts/", false, http.StatusFound, "/login/?next=%2Fmy-posts%2F"},
		{"profile needs login", http.MethodGet, "/profile/", false, http.StatusFound, "/login/?next=%2Fprofile%2F"},
		{"admin needs login", http.MethodGet, "/admin/", false, http.StatusFound, "/login/?next=%2Fadmin%2F"},
		{"logout by get", http.MethodGet, "/logout/", false, http.StatusMethodNotAllowed, ""},
		{"post to home", http.MethodPost, "/", false, http.StatusMethodNotAllowed, ""},
		{"comment by get", http.MethodGet, "/anything/comment/", false, http.StatusMethodNotAllowed, ""},
		{"unknown post", http.MethodGet, "/no-such-post/", false, http.StatusNotFound, ""},
		{"deep unknown path", http.MethodGet, "/a/b/c/", false, http.StatusNotFound, ""},
		{"missing trailing slash", http.MethodGet, "/login", false, http.StatusNotFound, ""},
		{"json not found", http.MethodGet, "/a/b/c/", true, http.StatusNotFound, ""},
		{"stylesheet", http.MethodGet, "/static/style.css", false, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, app.server.URL+tt.path, nil)
			require.NoError(t, err)
			if tt.json {
				req.Header.Set("Accept", "application/json")
			}
			resp, err := c.Do(req)
			require.NoError(t, err)
			body := readBody(t, resp)

			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
			if tt.json {
				assert.JSONEq(t, `{"error":"Not Found"}`, body)
			}
		})
	}
}

func TestAdminAccess(t *testing.T) {
	app := setupApp(t, repositories.DriverBadger)
	_, err := app.accounts.CreateAdmin("root", "password-123")
	require.NoError(t, err)
	_, err = app.accounts.Register(services.RegisterInput{Username: "bob", Password1: "password-123", Password2: "password-123"})
	require.NoError(t, err)

	regular := app.client(t)
	app.login(t, regular, "bob")
	resp, _ := app.get(t, regular, "/admin/")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	staff := app.client(t)
	app.login(t, staff, "root")
	resp, body := app.get(t, staff, "/admin/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Site administration")

	resp, _ = app.get(t, staff, "/admin/comments/?active=maybe")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.get(t, staff, "/admin/widgets/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	post := &models.Post{Title: "Moderate me", Slug: "moderate-me", Body: "b", Status: models.StatusPublished, AuthorID: 1, AuthorName: "root"}
	post.BeforeCreate(time.Now())
	require.NoError(t, app.store.Posts.Create(post))
	comment := &models.Comment{PostID: post.ID, AuthorID: 2, AuthorName: "bob", Content: "spam", Active: true}
	comment.BeforeCreate(time.Now())
	require.NoError(t, app.store.Comments.Create(comment))

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/admin/comments/", strings.NewReader(url.Values{
		"action": {"disapprove"}, "ids": {strconv.Itoa(comment.ID)},
	}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err = staff.Do(req)
	require.NoError(t, err)
	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"updated":1}`, body)

	resp, body = app.get(t, regular, "/moderate-me/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "spam")
}

func TestCrossSiteFormIsRejected(t *testing.T) {
	app := setupApp(t, repositories.DriverBadger)
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/login/", strings.NewReader("username=a&password=b"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Sec-Fetch-Site", "cross-site")

	resp, err := app.client(t).Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, app.logs.String(), "cross-origin request rejected")
}

func TestJSONListing(t *testing.T) {
	app := setupApp(t, repositories.DriverSQLite)
	user, err := app.accounts.Register(services.RegisterInput{Username: "alice", Password1: "password-123", Password2: "password-123"})
	require.NoError(t, err)
	caller := services.Caller{UserID: user.ID, Username: user.Username}
	posts := services.NewPostService(app.store.Posts, app.store.Comments)
	for _, title := range []string{"One", "Two", "Three", "Four", "Five", "Six", "Seven"} {
		_, err := posts.CreatePost(caller, services.PostInput{Title: title, Body: "body", Status: models.StatusPublished})
		require.NoError(t, err)
	}

	fetch := func(query string) (int, services.PostPage) {
		req, err := http.NewRequest(http.MethodGet, app.server.URL+"/"+query, nil)
		require.NoError(t, err)
		req.Header.Set("Accept", "application/json")
		resp, err := app.client(t).Do(req)
		require.NoError(t, err)
		var page services.PostPage
		body := readBody(t, resp)
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.Unmarshal([]byte(body), &page))
		}
		return resp.StatusCode, page
	}

	status, page := fetch("")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, page.Posts, 5)
	assert.Equal(t, "Seven", page.Posts[0].Title)

	status, page = fetch("?page=2")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, page.Posts, 2)

	status, _ = fetch("?page=3")
	assert.Equal(t, http.StatusNotFound, status)
}
