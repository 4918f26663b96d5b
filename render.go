package storypub

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/storypub/publish"
)

// handlePreview renders a story page on request, drafts included, with the
// same renderer the publisher uses.
func (a *App) handlePreview(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := a.Store.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	page, err := a.Publisher.Renderer().Render(ctx, publish.TemplateStory, publish.StoryVars(s))
	if err != nil {
		return err
	}
	return RenderStatus(c, http.StatusOK, page)
}

func handlePreviewStylesheet(c echo.Context) error {
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", publish.Stylesheet())
}

// RenderStatus writes a rendered page with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, page string) error {
	return c.HTML(code, page)
}
