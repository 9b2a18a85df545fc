package services

import (
	"fmt"
	"testing"
	"time"

	"inkpost/app/models"
	"inkpost/app/repositories"
	"inkpost/app/repositories/mock"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// clock hands out strictly increasing timestamps.
type clock struct {
	t time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

type fixture struct {
	store    *repositories.Store
	posts    *PostService
	comments *CommentService
	accounts *AccountService
	clock    *clock
	alice    Caller
	bob      Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mock.NewStore()
	c := newClock()
	f := &fixture{
		store:    store,
		posts:    NewPostService(store.Posts, store.Comments).WithClock(c.Now),
		comments: NewCommentService(store.Comments, store.Posts).WithClock(c.Now),
		accounts: NewAccountService(store.Users, store.Posts, SessionConfig{Secret: "test-secret", TTL: time.Hour}).
			WithHashCost(bcrypt.MinCost).
			WithClock(c.Now),
		clock: c,
	}
	f.alice = f.register(t, "alice")
	f.bob = f.register(t, "bob")
	return f
}

func (f *fixture) register(t *testing.T, name string) Caller {
	t.Helper()
	user, err := f.accounts.Register(RegisterInput{Username: name, Password1: "s3cret-pass", Password2: "s3cret-pass"})
	require.NoError(t, err)
	return Caller{UserID: user.ID, Username: user.Username}
}

func (f *fixture) createPost(t *testing.T, caller Caller, title string, status models.Status) *models.Post {
	t.Helper()
	post, err := f.posts.CreatePost(caller, PostInput{
		Title:  title,
		Body:   fmt.Sprintf("Body of %s", title),
		Status: status,
	})
	require.NoError(t, err)
	return post
}
