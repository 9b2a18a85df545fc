package models

// PublishedPosts keeps only posts the public may see, preserving order.
func PublishedPosts(posts []*Post) []*Post {
	out := make([]*Post, 0, len(posts))
	for _, p := range posts {
		if p != nil && p.IsPublished() {
			out = append(out, p)
		}
	}
	return out
}

// ActiveComments keeps only approved comments, preserving order.
func ActiveComments(comments []*Comment) []*Comment {
	out := make([]*Comment, 0, len(comments))
	for _, c := range comments {
		if c != nil && c.Active {
			out = append(out, c)
		}
	}
	return out
}
