// Package web embeds the songboard page templates and browser assets.
package web

import "embed"

// TemplatesFS holds layouts/, pages/ and partials/.
//
//go:embed all:templates
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the like/live-refresh script.
//
//go:embed all:static
var StaticFS embed.FS
