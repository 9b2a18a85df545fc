package services

import (
	"strings"
	"testing"

	"inkpost/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	post := f.createPost(t, f.alice, "Discuss", models.StatusPublished)
	draft := f.createPost(t, f.alice, "Draft", models.StatusDraft)

	t.Run("active by default", func(t *testing.T) {
		comment, err := f.comments.AddComment(f.bob, post.Slug, CommentInput{Content: "  Nice post  "})
		require.NoError(t, err)
		assert.True(t, comment.Active)
		assert.Equal(t, "Nice post", comment.Content)
		assert.Equal(t, post.ID, comment.PostID)
		assert.Equal(t, f.bob.UserID, comment.AuthorID)
		assert.Equal(t, "bob", comment.AuthorName)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.comments.AddComment(Anonymous, post.Slug, CommentInput{Content: "hi"})
		assert.ErrorIs(t, err, ErrAuthenticationRequired)

		_, err = f.comments.AddComment(Anonymous, "missing", CommentInput{Content: "hi"})
		assert.ErrorIs(t, err, ErrAuthenticationRequired, "authentication is checked first")
	})

	t.Run("draft post", func(t *testing.T) {
		_, err := f.comments.AddComment(f.alice, draft.Slug, CommentInput{Content: "hi"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown post", func(t *testing.T) {
		_, err := f.comments.AddComment(f.bob, "missing", CommentInput{Content: "hi"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blank content", func(t *testing.T) {
		_, err := f.comments.AddComment(f.bob, post.Slug, CommentInput{Content: " \n\t "})
		require.ErrorIs(t, err, ErrValidation)
		ve, _ := AsValidationError(err)
		assert.Equal(t, "This field is required.", ve.Fields["content"])
	})

	t.Run("content too long", func(t *testing.T) {
		_, err := f.comments.AddComment(f.bob, post.Slug, CommentInput{Content: strings.Repeat("x", 1001)})
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestSetCommentsActive(t *testing.T) {
	f := newFixture(t)
	post := f.createPost(t, f.alice, "Moderated", models.StatusPublished)

	var ids []int
	for _, content := range []string{"one", "two", "three"} {
		c, err := f.comments.AddComment(f.bob, post.Slug, CommentInput{Content: content})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	n, err := f.comments.SetCommentsActive(ids[:2], false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err := f.comments.ListActive(post.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "three", active[0].Content)

	n, err = f.comments.SetCommentsActive(ids[:2], false)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "repeating the action is idempotent")

	n, err = f.comments.SetCommentsActive(append(ids, 999), true)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "unknown ids are ignored")

	n, err = f.comments.SetCommentsActive(nil, true)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListComments(t *testing.T) {
	f := newFixture(t)
	post := f.createPost(t, f.alice, "Threads", models.StatusPublished)
	first, err := f.comments.AddComment(f.bob, post.Slug, CommentInput{Content: "spam spam"})
	require.NoError(t, err)
	_, err = f.comments.AddComment(f.bob, post.Slug, CommentInput{Content: "helpful"})
	require.NoError(t, err)
	_, err = f.comments.SetCommentsActive([]int{first.ID}, false)
	require.NoError(t, err)

	all, err := f.comments.ListComments(CommentQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "helpful", all[0].Content, "newest first")

	inactive := false
	hidden, err := f.comments.ListComments(CommentQuery{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, hidden, 1)
	assert.Equal(t, first.ID, hidden[0].ID)

	found, err := f.comments.ListComments(CommentQuery{Search: "HELP"})
	require.NoError(t, err)
	require.Len(t, found, 1)
}
