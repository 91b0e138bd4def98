// Package web holds the page templates and stylesheet compiled into the
// server binary.
package web

import "embed"

// TemplatesFS holds the layout, dashboard and record pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
