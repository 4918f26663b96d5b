package publish

import "embed"

// assets holds the stylesheet copied next to the generated pages.
//
//go:embed assets/style.css
var assets embed.FS

// Stylesheet returns the stylesheet written next to the generated pages.
func Stylesheet() []byte {
	css, _ := assets.ReadFile("assets/style.css")
	return css
}
