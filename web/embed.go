// Package web bundles the page templates and browser assets into the binary.
package web

import "embed"

// TemplatesFS holds the layout, dashboard, snapshot and admin templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds app.js and app.css, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
