package web

import "embed"

// TemplatesFS embeds HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css/js).
//
//go:embed static/*
var StaticFS embed.FS

// FormsFS embeds the declarative form definitions.
//
//go:embed forms/*.yaml
var FormsFS embed.FS
