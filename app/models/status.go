package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the publication state of a post.
type Status int

const (
	StatusDraft     Status = 0
	StatusPublished Status = 1
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusDraft, StatusPublished}

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusPublished:
		return "Published"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// ParseStatus accepts the numeric form ("0", "1") used by HTML forms as well
// as the names "draft" and "published" in any case.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "draft":
		return StatusDraft, nil
	case "published":
		return StatusPublished, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !Status(n).Valid() {
		return 0, fmt.Errorf("invalid status %q", raw)
	}
	return Status(n), nil
}
