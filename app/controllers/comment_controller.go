package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"inkpost/app/middleware"
	"inkpost/app/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CommentController accepts new comments on published posts.
type CommentController struct {
	base
	commentService *services.CommentService
	postService    *services.PostService
}

// NewCommentController creates a new CommentController
func NewCommentController(commentService *services.CommentService, postService *services.PostService, render *Renderer, log *zap.Logger) *CommentController {
	return &CommentController{
		base:           newBase(render, log),
		commentService: commentService,
		postService:    postService,
	}
}

// Create adds a comment to the post named in the URL. Anonymous visitors
// are sent to log in and come back to the post; invalid input re-renders
// the post page with the error.
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cc.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	slugValue := mux.Vars(r)["slug"]

	var input services.CommentInput
	if err := decode(r, &input, func(form url.Values) {
		input.Content = form.Get("content")
	}); err != nil {
		cc.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := cc.commentService.AddComment(middleware.CallerFrom(r.Context()), slugValue, input)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrAuthenticationRequired) && !middleware.WantsJSON(r):
		http.Redirect(w, r, middleware.LoginURL("/"+slugValue+"/"), http.StatusFound)
		return
	default:
		ve, ok := services.AsValidationError(err)
		if !ok || middleware.WantsJSON(r) {
			cc.fail(w, r, err)
			return
		}
		post, perr := cc.postService.GetPublishedBySlug(slugValue)
		if perr != nil {
			cc.fail(w, r, perr)
			return
		}
		cc.render.HTML(w, r, http.StatusOK, "posts/show", Page{
			Title:  post.Title,
			Data:   detail{Post: post},
			Form:   input,
			Errors: ve.Fields,
		})
		return
	}

	if middleware.WantsJSON(r) {
		cc.sendJSON(w, http.StatusCreated, comment)
		return
	}
	setFlash(w, "Your comment has been added successfully!")
	http.Redirect(w, r, "/"+slugValue+"/", http.StatusFound)
}
