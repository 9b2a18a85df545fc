// Package routes wires services, controllers and middleware into the HTTP
// handler of the blog.
package routes

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"inkpost/app/admin"
	"inkpost/app/config"
	"inkpost/app/controllers"
	"inkpost/app/middleware"
	"inkpost/app/repositories"
	"inkpost/app/services"
	"inkpost/app/views"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// slugPattern matches the post slugs accepted in URLs.
const slugPattern = "{slug:[-a-zA-Z0-9_]+}"

// Dependencies is everything Setup needs. Views and Static default to the
// embedded assets.
type Dependencies struct {
	Config *config.Config
	Store  *repositories.Store
	Logger *zap.Logger
	Views  fs.FS
	Static fs.FS

	// Accounts replaces the account service built from Store. Tests use it
	// to lower the bcrypt cost.
	Accounts *services.AccountService
}

// Setup builds the application handler.
func Setup(deps Dependencies) (http.Handler, error) {
	if deps.Config == nil || deps.Store == nil {
		return nil, errors.New("routes: config and store are required")
	}
	log := deps.Logger
	if log == nil {
		log = zap.L()
	}
	if deps.Views == nil {
		deps.Views = views.FS()
	}
	if deps.Static == nil {
		deps.Static = views.Static()
	}
	cfg := deps.Config

	postService := services.NewPostService(deps.Store.Posts, deps.Store.Comments)
	commentService := services.NewCommentService(deps.Store.Comments, deps.Store.Posts)
	accountService := deps.Accounts
	if accountService == nil {
		accountService = services.NewAccountService(deps.Store.Users, deps.Store.Posts, cfg.Session.ToServiceConfig())
	}
	site := admin.NewSite(postService, commentService)

	render, err := controllers.NewRenderer(deps.Views, cfg.Blog.Title, log)
	if err != nil {
		return nil, err
	}
	postController := controllers.NewPostController(postService, render, cfg.Blog.PageSize, log)
	commentController := controllers.NewCommentController(commentService, postService, render, log)
	accountController := controllers.NewAccountController(accountService, controllers.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
	}, render, log)
	adminController := controllers.NewAdminController(site, render, log)

	router := mux.NewRouter()
	router.NotFoundHandler = errorHandler(http.StatusNotFound, "Not Found")
	router.MethodNotAllowedHandler = errorHandler(http.StatusMethodNotAllowed, "Method Not Allowed")

	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServerFS(deps.Static))).Methods(http.MethodGet, http.MethodHead)

	// Fixed paths come before the slug routes so they are never taken for
	// a post.
	router.HandleFunc("/", postController.Index).Methods(http.MethodGet)
	router.Handle("/create/", middleware.RequireLogin(http.HandlerFunc(postController.Create))).Methods(http.MethodGet, http.MethodPost)
	router.Handle("/my-posts/", middleware.RequireLogin(http.HandlerFunc(postController.MyPosts))).Methods(http.MethodGet)
	router.HandleFunc("/register/", accountController.Register).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/login/", accountController.Login).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/logout/", accountController.Logout)
	router.Handle("/profile/", middleware.RequireLogin(http.HandlerFunc(accountController.Profile))).Methods(http.MethodGet)

	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.RequireStaff)
	adminRouter.HandleFunc("/", adminController.Index).Methods(http.MethodGet)
	adminRouter.HandleFunc("/{model}/", adminController.Changelist).Methods(http.MethodGet, http.MethodPost)

	router.HandleFunc("/"+slugPattern+"/", postController.Show).Methods(http.MethodGet)
	router.Handle("/"+slugPattern+"/edit/", middleware.RequireLogin(http.HandlerFunc(postController.Edit))).Methods(http.MethodGet, http.MethodPost)
	router.Handle("/"+slugPattern+"/delete/", middleware.RequireLogin(http.HandlerFunc(postController.Delete))).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/"+slugPattern+"/comment/", commentController.Create)

	crossOrigin, err := middleware.CrossOrigin(cfg.Server.TrustedOrigins, log)
	if err != nil {
		return nil, err
	}

	// Outermost first.
	return chain(router,
		middleware.RequestID,
		middleware.Recoverer(log),
		middleware.Logger(log),
		crossOrigin,
		middleware.Session(accountService, cfg.Session.CookieName, log),
	), nil
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func errorHandler(status int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.WantsJSON(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": message})
			return
		}
		http.Error(w, message, status)
	})
}
