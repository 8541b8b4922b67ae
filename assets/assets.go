// Package assets embeds the files served or rendered by the applications.
package assets

import "embed"

// Templates holds the dashboard HTML templates under "templates/".
// Files starting with "_" are partials shared by every page.
//go:embed templates/*.gohtml
var Templates embed.FS
