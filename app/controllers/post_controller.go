package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"inkpost/app/middleware"
	"inkpost/app/models"
	"inkpost/app/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PostController handles the public listing and the author's post pages.
type PostController struct {
	base
	postService *services.PostService
	pageSize    int
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService, render *Renderer, pageSize int, log *zap.Logger) *PostController {
	if pageSize < 1 {
		pageSize = services.DefaultPageSize
	}
	return &PostController{
		base:        newBase(render, log),
		postService: postService,
		pageSize:    pageSize,
	}
}

// detail is the data of the post page.
type detail struct {
	Post *models.Post
}

// Index lists published posts, one page at a time. page=last jumps to the
// final page; anything that is not a page number is a 404.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page := 1
	switch raw := r.URL.Query().Get("page"); raw {
	case "":
	case "last":
		page = services.LastPage
	default:
		n, err := strconv.Atoi(raw)
		if err != nil {
			pc.sendError(w, r, "Not Found", http.StatusNotFound)
			return
		}
		page = n
	}

	result, err := pc.postService.ListPublished(page, pc.pageSize)
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	if middleware.WantsJSON(r) {
		pc.sendJSON(w, http.StatusOK, result)
		return
	}
	pc.render.HTML(w, r, http.StatusOK, "posts/index", Page{Data: result})
}

// Show displays a published post with its active comments.
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	post, err := pc.postService.GetPublishedBySlug(mux.Vars(r)["slug"])
	if err != nil {
		pc.fail(w, r, err)
		return
	}

	if middleware.WantsJSON(r) {
		pc.sendJSON(w, http.StatusOK, post)
		return
	}
	pc.render.HTML(w, r, http.StatusOK, "posts/show", Page{
		Title: post.Title,
		Data:  detail{Post: post},
		Form:  services.CommentInput{},
	})
}

// Create shows the new post form and stores submitted posts.
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		pc.render.HTML(w, r, http.StatusOK, "posts/form", Page{
			Title: "New post",
			Form:  services.PostInput{Status: models.StatusDraft},
		})
		return
	}

	input, err := decodePostInput(r)
	if err != nil {
		pc.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	post, err := pc.postService.CreatePost(middleware.CallerFrom(r.Context()), input)
	if err != nil {
		pc.formError(w, r, "New post", input, err)
		return
	}

	if middleware.WantsJSON(r) {
		pc.sendJSON(w, http.StatusCreated, post)
		return
	}
	setFlash(w, "Your post has been created successfully!")
	http.Redirect(w, r, postURL(post), http.StatusFound)
}

// Edit shows the filled-in form for one of the caller's posts and saves
// changes to it.
func (pc *PostController) Edit(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r.Context())
	slugValue := mux.Vars(r)["slug"]

	if r.Method != http.MethodPost {
		post, err := pc.postService.GetOwnBySlug(caller, slugValue)
		if err != nil {
			pc.fail(w, r, err)
			return
		}
		if middleware.WantsJSON(r) {
			pc.sendJSON(w, http.StatusOK, post)
			return
		}
		pc.render.HTML(w, r, http.StatusOK, "posts/form", Page{
			Title: "Edit post",
			Form: services.PostInput{
				Title:  post.Title,
				Slug:   post.Slug,
				Body:   post.Body,
				Tags:   post.Tags,
				Status: post.Status,
			},
		})
		return
	}

	input, err := decodePostInput(r)
	if err != nil {
		pc.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	post, err := pc.postService.EditPost(caller, slugValue, input)
	if err != nil {
		pc.formError(w, r, "Edit post", input, err)
		return
	}

	if middleware.WantsJSON(r) {
		pc.sendJSON(w, http.StatusOK, post)
		return
	}
	setFlash(w, "Your post has been updated successfully!")
	http.Redirect(w, r, postURL(post), http.StatusFound)
}

// Delete asks for confirmation and then removes the post with its comments.
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r.Context())
	slugValue := mux.Vars(r)["slug"]

	if r.Method != http.MethodPost {
		post, err := pc.postService.GetOwnBySlug(caller, slugValue)
		if err != nil {
			pc.fail(w, r, err)
			return
		}
		pc.render.HTML(w, r, http.StatusOK, "posts/confirm_delete", Page{Title: "Delete post", Data: post})
		return
	}

	if err := pc.postService.DeletePost(caller, slugValue); err != nil {
		pc.fail(w, r, err)
		return
	}
	if middleware.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	setFlash(w, "Your post has been deleted successfully!")
	http.Redirect(w, r, "/my-posts/", http.StatusFound)
}

// MyPosts lists every post of the caller, drafts included.
func (pc *PostController) MyPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListOwnPosts(middleware.CallerFrom(r.Context()))
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	if middleware.WantsJSON(r) {
		pc.sendJSON(w, http.StatusOK, posts)
		return
	}
	pc.render.HTML(w, r, http.StatusOK, "posts/mine", Page{Title: "My posts", Data: posts})
}

// formError re-renders the post form with field errors, or hands anything
// else to fail.
func (pc *PostController) formError(w http.ResponseWriter, r *http.Request, title string, input services.PostInput, err error) {
	ve, ok := services.AsValidationError(err)
	if !ok || middleware.WantsJSON(r) {
		pc.fail(w, r, err)
		return
	}
	pc.render.HTML(w, r, http.StatusOK, "posts/form", Page{Title: title, Form: input, Errors: ve.Fields})
}

// decodePostInput reads a post from JSON or form fields. An unknown status
// is kept out of range so validation reports it on the status field.
func decodePostInput(r *http.Request) (services.PostInput, error) {
	var input services.PostInput
	err := decode(r, &input, func(form url.Values) {
		input.Title = form.Get("title")
		input.Slug = form.Get("slug")
		input.Body = form.Get("body")
		input.Tags = form.Get("tags")
		if raw := strings.TrimSpace(form.Get("status")); raw != "" {
			status, err := models.ParseStatus(raw)
			if err != nil {
				status = models.Status(-1)
			}
			input.Status = status
		}
	})
	return input, err
}

func postURL(p *models.Post) string {
	return "/" + p.Slug + "/"
}
