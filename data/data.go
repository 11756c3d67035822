// Package data embeds the report templates and the query catalog.
package data

import "embed"

//go:embed templates queries
var FS embed.FS
