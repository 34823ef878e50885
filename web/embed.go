// Package web holds the browser chat UI served under /ui.
package web

import "embed"

//go:embed static
var Static embed.FS
