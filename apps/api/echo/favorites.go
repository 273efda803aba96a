package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/favorites"
	"github.com/ocwc/oeweek2022/core/resource"
)

type favoritesApi struct {
	resources *resource.Service
	codec     *favorites.Codec
}

func registerFavorites(e *echo.Echo, resources *resource.Service, codec *favorites.Codec) {
	api := favoritesApi{resources: resources, codec: codec}

	e.GET("/favorites/", api.list)
	e.POST("/favorites/toggle/", api.toggle)
}

type (
	ToggleRequest struct {
		ID    int    `json:"id" form:"id"`
		Token string `json:"f" form:"f"`
	}

	ToggleResponse struct {
		Token  string                 `json:"f"`
		Result favorites.ToggleResult `json:"result"`
		Count  int                    `json:"count"`
	}

	favoritesPage struct {
		Token  string
		Events []resource.Resource
	}
)

// toggle adds the event to the favorites token, or removes it. The new token is returned.
// A full list keeps its token.
func (api *favoritesApi) toggle(ctx echo.Context) error {
	var data ToggleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ToggleRequest")
	}
	ids, err := api.decode(data.Token)
	if err != nil {
		return err
	}

	event, err := api.resources.GetPublished(ctx.Request().Context(), data.ID)
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	if !event.IsEvent() {
		return errHttpNotFound
	}

	ids, result := favorites.Toggle(ids, event.ID, api.codec.Max())
	if result == favorites.Full {
		return ctx.JSON(http.StatusOK, ToggleResponse{Token: data.Token, Result: result, Count: len(ids)})
	}
	token, err := api.codec.Encode(ids)
	if err != nil {
		return errors.Wrap(err, "encoding favorites")
	}
	return ctx.JSON(http.StatusOK, ToggleResponse{Token: token, Result: result, Count: len(ids)})
}

func (api *favoritesApi) list(ctx echo.Context) error {
	token := ctx.QueryParam("f")
	ids, err := api.decode(token)
	if err != nil {
		return err
	}
	events, err := api.resources.Favorites(ctx.Request().Context(), ids)
	if err != nil {
		return errors.Wrap(err, "listing favorites")
	}
	return ctx.Render(http.StatusOK, "favorites", favoritesPage{Token: token, Events: events})
}

func (api *favoritesApi) decode(token string) ([]int, error) {
	ids, err := api.codec.Decode(token)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "f", Error: err.Error()})
	}
	return ids, nil
}
