// Package admin describes the staff console: which models it lists, the
// columns, filters and search each changelist offers, and the bulk
// actions staff can run. The router receives a Site value explicitly.
package admin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inkpost/app/models"
	"inkpost/app/services"
)

var (
	ErrUnknownModel  = errors.New("unknown admin model")
	ErrUnknownAction = errors.New("unknown admin action")
	ErrInvalidFilter = errors.New("invalid filter value")
)

// Choice is one option of a filter.
type Choice struct {
	Value string
	Label string
}

// Filter narrows a changelist by one query parameter.
type Filter struct {
	Param   string
	Label   string
	Choices []Choice
}

func (f Filter) allows(value string) bool {
	for _, c := range f.Choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// Action is a bulk operation on selected rows. Run returns how many rows
// it touched.
type Action struct {
	Name  string
	Label string
	Run   func(ids []int) (int, error)
}

// Query is the search box plus the selected filter values, keyed by
// Filter.Param.
type Query struct {
	Search  string
	Filters map[string]string
}

// Row is one rendered changelist line.
type Row struct {
	ID    int      `json:"id"`
	Cells []string `json:"cells"`
}

// ModelAdmin configures the changelist of one model.
type ModelAdmin struct {
	Name         string
	Label        string
	Columns      []string
	SearchFields []string
	Filters      []Filter
	Actions      []Action

	list func(q Query) ([]Row, error)
}

// Action looks up a bulk action by name.
func (m *ModelAdmin) Action(name string) (*Action, bool) {
	for i := range m.Actions {
		if m.Actions[i].Name == name {
			return &m.Actions[i], true
		}
	}
	return nil, false
}

// Changelist is a filtered listing ready for display.
type Changelist struct {
	Model *ModelAdmin `json:"-"`
	Query Query       `json:"-"`
	Rows  []Row       `json:"rows"`
	Count int         `json:"count"`
}

// Changelist validates q against the configured filters and lists the
// matching rows.
func (m *ModelAdmin) Changelist(q Query) (*Changelist, error) {
	q.Search = strings.TrimSpace(q.Search)
	clean := make(map[string]string, len(m.Filters))
	for _, f := range m.Filters {
		value := strings.TrimSpace(q.Filters[f.Param])
		if value == "" {
			continue
		}
		if !f.allows(value) {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidFilter, f.Param, value)
		}
		clean[f.Param] = value
	}
	q.Filters = clean

	rows, err := m.list(q)
	if err != nil {
		return nil, err
	}
	return &Changelist{Model: m, Query: q, Rows: rows, Count: len(rows)}, nil
}

// Site is the set of models exposed in the console, in display order.
type Site struct {
	models []*ModelAdmin
}

// Models returns the registered model admins.
func (s *Site) Models() []*ModelAdmin {
	return s.models
}

// Model looks up a model admin by its URL name.
func (s *Site) Model(name string) (*ModelAdmin, error) {
	for _, m := range s.models {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// NewSite builds the console for posts and comments.
func NewSite(posts *services.PostService, comments *services.CommentService) *Site {
	return &Site{models: []*ModelAdmin{
		postAdmin(posts),
		commentAdmin(comments),
	}}
}

func postAdmin(posts *services.PostService) *ModelAdmin {
	statusChoices := make([]Choice, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		statusChoices = append(statusChoices, Choice{Value: strconv.Itoa(int(s)), Label: s.String()})
	}

	return &ModelAdmin{
		Name:         "posts",
		Label:        "Posts",
		Columns:      []string{"Title", "Slug", "Author", "Created", "Status"},
		SearchFields: []string{"title", "body", "tags"},
		Filters:      []Filter{{Param: "status", Label: "statuses", Choices: statusChoices}},
		list: func(q Query) ([]Row, error) {
			query := services.PostQuery{Search: q.Search}
			if raw, ok := q.Filters["status"]; ok {
				status, err := models.ParseStatus(raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
				}
				query.Status = &status
			}
			found, err := posts.SearchPosts(query)
			if err != nil {
				return nil, err
			}
			rows := make([]Row, 0, len(found))
			for _, p := range found {
				rows = append(rows, Row{ID: p.ID, Cells: []string{
					p.Title, p.Slug, p.AuthorName, formatTime(p.CreatedAt), p.Status.String(),
				}})
			}
			return rows, nil
		},
	}
}

func commentAdmin(comments *services.CommentService) *ModelAdmin {
	setActive := func(active bool) func(ids []int) (int, error) {
		return func(ids []int) (int, error) {
			return comments.SetCommentsActive(ids, active)
		}
	}

	return &ModelAdmin{
		Name:         "comments",
		Label:        "Comments",
		Columns:      []string{"Author", "Content", "Post", "Created", "Active"},
		SearchFields: []string{"content", "author"},
		Filters: []Filter{{Param: "active", Label: "states", Choices: []Choice{
			{Value: "1", Label: "Active"},
			{Value: "0", Label: "Hidden"},
		}}},
		Actions: []Action{
			{Name: "approve", Label: "Approve selected comments", Run: setActive(true)},
			{Name: "disapprove", Label: "Hide selected comments", Run: setActive(false)},
		},
		list: func(q Query) ([]Row, error) {
			query := services.CommentQuery{Search: q.Search}
			if raw, ok := q.Filters["active"]; ok {
				active := raw == "1"
				query.Active = &active
			}
			found, err := comments.ListComments(query)
			if err != nil {
				return nil, err
			}
			rows := make([]Row, 0, len(found))
			for _, c := range found {
				rows = append(rows, Row{ID: c.ID, Cells: []string{
					c.AuthorName, excerpt(c.Content, 60), "#" + strconv.Itoa(c.PostID), formatTime(c.CreatedAt), yesNo(c.Active),
				}})
			}
			return rows, nil
		},
	}
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
