// Package views holds the HTML templates and static assets, embedded
// into the binary.
package views

import (
	"embed"
	"io/fs"
)

//go:embed layout.html posts accounts admin shared static
var files embed.FS

// FS returns the template tree rooted at the views directory.
func FS() fs.FS {
	return files
}

// Static returns the static asset tree served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
