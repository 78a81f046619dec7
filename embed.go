package spacetraveling

import "embed"

// EmbeddedAssets contains static assets served under /public/:
// app.js (load-more and post fallback) and style.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
