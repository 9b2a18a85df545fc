package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"inkpost/app/models"
	"inkpost/app/repositories"
	"inkpost/app/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostIndex(t *testing.T) {
	env := setupEnv(t)
	for i := 1; i <= 7; i++ {
		env.createPost(t, env.alice, fmt.Sprintf("Post %d", i), models.StatusPublished)
	}
	env.createPost(t, env.alice, "Hidden draft", models.StatusDraft)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantPosts  int
	}{
		{"first page", "/", http.StatusOK, 5},
		{"second page", "/?page=2", http.StatusOK, 2},
		{"last page", "/?page=last", http.StatusOK, 2},
		{"past the end", "/?page=3", http.StatusNotFound, 0},
		{"zero", "/?page=0", http.StatusNotFound, 0},
		{"not a number", "/?page=abc", http.StatusNotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := serve(env.postController.Index, asJSON(request(http.MethodGet, tt.target, nil, services.Anonymous, nil)))
			require.Equal(t, tt.wantStatus, rw.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var page services.PostPage
			require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &page))
			assert.Len(t, page.Posts, tt.wantPosts)
			assert.Equal(t, 2, page.NumPages)
			for _, p := range page.Posts {
				assert.Equal(t, models.StatusPublished, p.Status)
			}
		})
	}

	t.Run("html", func(t *testing.T) {
		rw := serve(env.postController.Index, request(http.MethodGet, "/", nil, services.Anonymous, nil))
		require.Equal(t, http.StatusOK, rw.Code)
		body := rw.Body.String()
		assert.Contains(t, body, "Post 7")
		assert.NotContains(t, body, "Hidden draft")
		assert.Contains(t, body, "Page 1 of 2.")
		assert.Contains(t, body, `href="/login/"`)
	})
}

func TestPostIndexEmpty(t *testing.T) {
	env := setupEnv(t)
	rw := serve(env.postController.Index, request(http.MethodGet, "/", nil, services.Anonymous, nil))
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), "No posts have been published yet.")
}

func TestPostShow(t *testing.T) {
	env := setupEnv(t)
	post := env.createPost(t, env.alice, "Hello World", models.StatusPublished)
	draft := env.createPost(t, env.alice, "Work in progress", models.StatusDraft)

	visible, err := env.comments.AddComment(env.bob, post.Slug, services.CommentInput{Content: "Visible <b>comment</b>"})
	require.NoError(t, err)
	hidden, err := env.comments.AddComment(env.bob, post.Slug, services.CommentInput{Content: "Hidden comment"})
	require.NoError(t, err)
	_, err = env.comments.SetCommentsActive([]int{hidden.ID}, false)
	require.NoError(t, err)

	t.Run("published", func(t *testing.T) {
		rw := serve(env.postController.Show, request(http.MethodGet, "/hello-world/", nil, env.bob, map[string]string{"slug": post.Slug}))
		require.Equal(t, http.StatusOK, rw.Code)
		body := rw.Body.String()
		assert.Contains(t, body, "<h1>Hello World</h1>")
		assert.Contains(t, body, "Visible &lt;b&gt;comment&lt;/b&gt;")
		assert.NotContains(t, body, "Hidden comment")
		assert.Contains(t, body, `action="/hello-world/comment/"`)
		assert.NotContains(t, body, "/hello-world/edit/", "only the author sees edit links")
	})

	t.Run("json", func(t *testing.T) {
		rw := serve(env.postController.Show, asJSON(request(http.MethodGet, "/hello-world/", nil, services.Anonymous, map[string]string{"slug": post.Slug})))
		require.Equal(t, http.StatusOK, rw.Code)
		var got models.Post
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
		require.Len(t, got.Comments, 1)
		assert.Equal(t, visible.ID, got.Comments[0].ID)
	})

	for _, caller := range []services.Caller{services.Anonymous, env.bob, env.alice} {
		t.Run("draft for "+caller.Username, func(t *testing.T) {
			rw := serve(env.postController.Show, request(http.MethodGet, "/", nil, caller, map[string]string{"slug": draft.Slug}))
			assert.Equal(t, http.StatusNotFound, rw.Code)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		rw := serve(env.postController.Show, request(http.MethodGet, "/", nil, services.Anonymous, map[string]string{"slug": "nope"}))
		assert.Equal(t, http.StatusNotFound, rw.Code)
	})
}

func TestPostCreate(t *testing.T) {
	env := setupEnv(t)

	t.Run("form", func(t *testing.T) {
		rw := serve(env.postController.Create, request(http.MethodGet, "/create/", nil, env.alice, nil))
		require.Equal(t, http.StatusOK, rw.Code)
		assert.Contains(t, rw.Body.String(), `name="title"`)
	})

	t.Run("auto slug", func(t *testing.T) {
		body := formBody(url.Values{"title": {"Hello World"}, "body": {"Some text"}, "status": {"1"}})
		rw := serve(env.postController.Create, request(http.MethodPost, "/create/", body, env.alice, nil))
		require.Equal(t, http.StatusFound, rw.Code)
		assert.Equal(t, "/hello-world/", rw.Header().Get("Location"))

		post, err := env.store.Posts.GetBySlug("hello-world")
		require.NoError(t, err)
		assert.Equal(t, env.alice.UserID, post.AuthorID)
		assert.Equal(t, models.StatusPublished, post.Status)
	})

	t.Run("slug collision", func(t *testing.T) {
		body := formBody(url.Values{"title": {"Hello World!!"}, "body": {"Other text"}})
		rw := serve(env.postController.Create, request(http.MethodPost, "/create/", body, env.alice, nil))
		require.Equal(t, http.StatusFound, rw.Code)
		assert.Equal(t, "/hello-world-1/", rw.Header().Get("Location"))
	})

	t.Run("duplicate title re-renders", func(t *testing.T) {
		before, err := env.store.Posts.Count(repositories.PostFilter{})
		require.NoError(t, err)

		body := formBody(url.Values{"title": {"Hello World"}, "body": {"again"}})
		rw := serve(env.postController.Create, request(http.MethodPost, "/create/", body, env.bob, nil))
		require.Equal(t, http.StatusOK, rw.Code)
		assert.Contains(t, rw.Body.String(), "Post with this Title already exists.")

		after, err := env.store.Posts.Count(repositories.PostFilter{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("validation json", func(t *testing.T) {
		req := asJSON(request(http.MethodPost, "/create/", strings.NewReader(`{"title":"","body":"","status":7}`), env.alice, nil))
		req.Header.Set("Content-Type", "application/json")
		rw := serve(env.postController.Create, req)
		require.Equal(t, http.StatusUnprocessableEntity, rw.Code)

		var got struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
		assert.Contains(t, got.Errors, "title")
		assert.Contains(t, got.Errors, "body")
		assert.Contains(t, got.Errors, "status")
	})

	t.Run("invalid status in form", func(t *testing.T) {
		body := formBody(url.Values{"title": {"Weird"}, "body": {"text"}, "status": {"archived"}})
		rw := serve(env.postController.Create, request(http.MethodPost, "/create/", body, env.alice, nil))
		require.Equal(t, http.StatusOK, rw.Code)
		assert.Contains(t, rw.Body.String(), "Select a valid choice.")
	})

	t.Run("reserved slug", func(t *testing.T) {
		body := formBody(url.Values{"title": {"Admin things"}, "slug": {"admin"}, "body": {"text"}})
		rw := serve(env.postController.Create, request(http.MethodPost, "/create/", body, env.alice, nil))
		require.Equal(t, http.StatusOK, rw.Code)
		assert.Contains(t, rw.Body.String(), "is reserved")
	})

	t.Run("anonymous", func(t *testing.T) {
		body := formBody(url.Values{"title": {"Sneaky"}, "body": {"text"}})
		rw := serve(env.postController.Create, request(http.MethodPost, "/create/", body, services.Anonymous, nil))
		require.Equal(t, http.StatusFound, rw.Code)
		assert.True(t, strings.HasPrefix(rw.Header().Get("Location"), "/login/?next="))
	})
}

func TestPostEdit(t *testing.T) {
	env := setupEnv(t)
	post := env.createPost(t, env.alice, "Original", models.StatusDraft)

	t.Run("owner sees filled form", func(t *testing.T) {
		rw := serve(env.postController.Edit, request(http.MethodGet, "/", nil, env.alice, map[string]string{"slug": post.Slug}))
		require.Equal(t, http.StatusOK, rw.Code)
		assert.Contains(t, rw.Body.String(), `value="Original"`)
	})

	t.Run("non owner gets 404", func(t *testing.T) {
		rw := serve(env.postController.Edit, request(http.MethodGet, "/", nil, env.bob, map[string]string{"slug": post.Slug}))
		assert.Equal(t, http.StatusNotFound, rw.Code)

		body := formBody(url.Values{"title": {"Hijacked"}, "body": {"mine now"}, "status": {"1"}})
		rw = serve(env.postController.Edit, request(http.MethodPost, "/", body, env.bob, map[string]string{"slug": post.Slug}))
		assert.Equal(t, http.StatusNotFound, rw.Code)

		unchanged, err := env.store.Posts.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", unchanged.Title)
	})

	t.Run("owner publishes", func(t *testing.T) {
		body := formBody(url.Values{"title": {"Revised"}, "body": {"better"}, "status": {"1"}})
		rw := serve(env.postController.Edit, request(http.MethodPost, "/", body, env.alice, map[string]string{"slug": post.Slug}))
		require.Equal(t, http.StatusFound, rw.Code)
		assert.Equal(t, "/"+post.Slug+"/", rw.Header().Get("Location"), "blank slug keeps the current one")

		updated, err := env.store.Posts.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Revised", updated.Title)
		assert.True(t, updated.IsPublished())
	})
}

func TestPostDelete(t *testing.T) {
	env := setupEnv(t)
	post := env.createPost(t, env.alice, "Doomed", models.StatusPublished)
	_, err := env.comments.AddComment(env.bob, post.Slug, services.CommentInput{Content: "bye"})
	require.NoError(t, err)

	rw := serve(env.postController.Delete, request(http.MethodGet, "/", nil, env.alice, map[string]string{"slug": post.Slug}))
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), "Are you sure you want to delete")

	rw = serve(env.postController.Delete, request(http.MethodPost, "/", nil, env.bob, map[string]string{"slug": post.Slug}))
	assert.Equal(t, http.StatusNotFound, rw.Code)

	rw = serve(env.postController.Delete, request(http.MethodPost, "/", nil, env.alice, map[string]string{"slug": post.Slug}))
	require.Equal(t, http.StatusFound, rw.Code)
	assert.Equal(t, "/my-posts/", rw.Header().Get("Location"))

	_, err = env.store.Posts.GetByID(post.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	comments, err := env.store.Comments.List(repositories.CommentFilter{PostID: post.ID})
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestMyPosts(t *testing.T) {
	env := setupEnv(t)
	env.createPost(t, env.alice, "Alice draft", models.StatusDraft)
	env.createPost(t, env.alice, "Alice public", models.StatusPublished)
	env.createPost(t, env.bob, "Bob public", models.StatusPublished)

	rw := serve(env.postController.MyPosts, request(http.MethodGet, "/my-posts/", nil, env.alice, nil))
	require.Equal(t, http.StatusOK, rw.Code)
	body := rw.Body.String()
	assert.Contains(t, body, "Alice draft")
	assert.Contains(t, body, "Alice public")
	assert.NotContains(t, body, "Bob public")

	rw = serve(env.postController.MyPosts, request(http.MethodGet, "/my-posts/", nil, services.Anonymous, nil))
	assert.Equal(t, http.StatusFound, rw.Code)
}

func TestFlashShownOnce(t *testing.T) {
	env := setupEnv(t)

	body := formBody(url.Values{"title": {"Flashy"}, "body": {"text"}, "status": {"1"}})
	rw := serve(env.postController.Create, request(http.MethodPost, "/create/", body, env.alice, nil))
	require.Equal(t, http.StatusFound, rw.Code)
	cookies := rw.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := request(http.MethodGet, "/flashy/", nil, env.alice, map[string]string{"slug": "flashy"})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rw = serve(env.postController.Show, req)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), "Your post has been created successfully!")
	assert.Contains(t, rw.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestTemplateHelpers(t *testing.T) {
	assert.Equal(t, "one two …", truncateWords("one two three", 2))
	assert.Equal(t, "one two", truncateWords(" one  two ", 5))
	assert.Equal(t, []string{"go", "web"}, splitTags(" go, ,web "))
	assert.Nil(t, splitTags(""))
}
