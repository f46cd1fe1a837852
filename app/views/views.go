// Package views holds the HTML templates and stylesheets compiled into the
// binary.
package views

import "embed"

//go:embed layout.html partials.html blog/*.html auth/*.html errors/*.html
var Templates embed.FS

//go:embed static
var Static embed.FS
