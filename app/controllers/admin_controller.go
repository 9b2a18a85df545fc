package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"inkpost/app/admin"
	"inkpost/app/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AdminController serves the staff console. Access control is left to
// middleware.RequireStaff.
type AdminController struct {
	base
	site *admin.Site
}

// NewAdminController creates a new AdminController
func NewAdminController(site *admin.Site, render *Renderer, log *zap.Logger) *AdminController {
	return &AdminController{base: newBase(render, log), site: site}
}

type modelSummary struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Index lists the models staff can manage.
func (ac *AdminController) Index(w http.ResponseWriter, r *http.Request) {
	summaries := make([]modelSummary, 0, len(ac.site.Models()))
	for _, m := range ac.site.Models() {
		summaries = append(summaries, modelSummary{Name: m.Name, Label: m.Label})
	}
	if middleware.WantsJSON(r) {
		ac.sendJSON(w, http.StatusOK, summaries)
		return
	}
	ac.render.HTML(w, r, http.StatusOK, "admin/index", Page{Title: "Site administration", Data: summaries})
}

// Changelist lists one model with search and filters on GET, and runs a
// bulk action on the selected ids on POST.
func (ac *AdminController) Changelist(w http.ResponseWriter, r *http.Request) {
	model, err := ac.site.Model(mux.Vars(r)["model"])
	if err != nil {
		ac.sendError(w, r, "Not Found", http.StatusNotFound)
		return
	}

	if r.Method == http.MethodPost {
		ac.runAction(w, r, model)
		return
	}

	values := r.URL.Query()
	query := admin.Query{Search: values.Get("q"), Filters: map[string]string{}}
	for _, f := range model.Filters {
		query.Filters[f.Param] = values.Get(f.Param)
	}

	list, err := model.Changelist(query)
	if errors.Is(err, admin.ErrInvalidFilter) {
		ac.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	if middleware.WantsJSON(r) {
		ac.sendJSON(w, http.StatusOK, list)
		return
	}
	ac.render.HTML(w, r, http.StatusOK, "admin/changelist", Page{Title: model.Label, Data: list})
}

func (ac *AdminController) runAction(w http.ResponseWriter, r *http.Request, model *admin.ModelAdmin) {
	if err := r.ParseForm(); err != nil {
		ac.sendError(w, r, "invalid form body", http.StatusBadRequest)
		return
	}
	action, ok := model.Action(r.PostForm.Get("action"))
	if !ok {
		ac.sendError(w, r, fmt.Sprintf("%v: %q", admin.ErrUnknownAction, r.PostForm.Get("action")), http.StatusBadRequest)
		return
	}

	ids := make([]int, 0, len(r.PostForm["ids"]))
	for _, raw := range r.PostForm["ids"] {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			ac.sendError(w, r, fmt.Sprintf("invalid id %q", raw), http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	n, err := action.Run(ids)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.log.Info("admin action",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("model", model.Name),
		zap.String("action", action.Name),
		zap.Ints("ids", ids),
		zap.Int("updated", n),
		zap.String("by", middleware.CallerFrom(r.Context()).Username),
	)

	if middleware.WantsJSON(r) {
		ac.sendJSON(w, http.StatusOK, map[string]int{"updated": n})
		return
	}
	noun := "entries"
	if n == 1 {
		noun = "entry"
	}
	setFlash(w, fmt.Sprintf("%d %s updated.", n, noun))
	http.Redirect(w, r, r.URL.RequestURI(), http.StatusFound)
}
