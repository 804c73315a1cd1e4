package pubsite

import "embed"

// EmbeddedAssets contains static assets shipped with the engine and served
// under /static/: the default stylesheet used by views.Default.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
