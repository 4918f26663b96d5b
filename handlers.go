package storypub

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleListStories(c echo.Context) error {
	return c.JSON(http.StatusOK, a.Store.List(c.Request().Context()))
}

func (a *App) handleGetStory(c echo.Context) error {
	s, err := a.Store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (a *App) handleCreateStory(c echo.Context) error {
	var in StoryInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	s, err := a.Store.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

func (a *App) handleUpdateStory(c echo.Context) error {
	var in StoryInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	s, err := a.Store.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (a *App) handleDeleteStory(c echo.Context) error {
	if err := a.Store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// httpErrorHandler maps store errors to status codes and lets echo write
// the {"message": ...} body.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
	case errors.Is(err, ErrMissingFields):
		he = echo.NewHTTPError(http.StatusBadRequest, ErrMissingFields.Error())
	case errors.Is(err, ErrNotFound):
		he = echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrBlobWrite):
		he = echo.NewHTTPError(http.StatusInternalServerError, ErrBlobWrite.Error())
	default:
		he = echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
	if he.Code >= 500 {
		a.Log.WithError(err).WithField("uri", c.Request().RequestURI).Error("server error")
	}
	a.Echo.DefaultHTTPErrorHandler(he.WithInternal(err), c)
}
