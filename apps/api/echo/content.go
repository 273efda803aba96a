package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core/category"
	"github.com/ocwc/oeweek2022/core/mailing"
	"github.com/ocwc/oeweek2022/core/page"
)

type contentApi struct {
	pages      *page.Service
	categories *category.Service
	templates  *mailing.Templates
}

func registerContentAPI(g *echo.Group, jwt echo.MiddlewareFunc, pages *page.Service, categories *category.Service, templates *mailing.Templates) {
	api := contentApi{pages: pages, categories: categories, templates: templates}

	g.GET("/pages", api.listPages)
	g.GET("/pages/:id", api.retrievePage)
	g.GET("/categories", api.listCategories)

	// staff
	g.POST("/pages", api.savePage, jwt, staffMiddleware)
	g.PUT("/pages/:id", api.savePage, jwt, staffMiddleware)
	g.DELETE("/pages/:id", api.destroyPage, jwt, staffMiddleware)
	g.POST("/categories", api.saveCategory, jwt, staffMiddleware)
	g.PUT("/categories/:id", api.saveCategory, jwt, staffMiddleware)
	g.GET("/email-templates", api.listTemplates, jwt, staffMiddleware)
	g.GET("/email-templates/:id", api.retrieveTemplate, jwt, staffMiddleware)
}

// Handlers

func (api *contentApi) listPages(ctx echo.Context) error {
	pages, err := api.pages.ListBySlug(ctx.Request().Context(), ctx.QueryParam("slug"))
	if err != nil {
		return errors.Wrap(err, "listing pages")
	}
	return ctx.JSON(http.StatusOK, pages)
}

func (api *contentApi) retrievePage(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	p, err := api.pages.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting page")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *contentApi) savePage(ctx echo.Context) error {
	var data page.Page
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Page")
	}
	code := http.StatusCreated
	if ctx.Param("id") != "" {
		id, err := idParam(ctx, "id")
		if err != nil {
			return err
		}
		data.ID = id
		code = http.StatusOK
	} else {
		data.ID = 0
	}

	p, err := api.pages.Save(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(code, p)
}

func (api *contentApi) destroyPage(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.pages.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting page")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) listCategories(ctx echo.Context) error {
	categories, err := api.categories.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing categories")
	}
	return ctx.JSON(http.StatusOK, categories)
}

func (api *contentApi) saveCategory(ctx echo.Context) error {
	var data category.Category
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Category")
	}
	code := http.StatusCreated
	if ctx.Param("id") != "" {
		id, err := idParam(ctx, "id")
		if err != nil {
			return err
		}
		data.ID = id
		code = http.StatusOK
	} else {
		data.ID = 0
	}

	c, err := api.categories.Save(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(code, c)
}

func (api *contentApi) listTemplates(ctx echo.Context) error {
	templates, err := api.templates.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing email templates")
	}
	return ctx.JSON(http.StatusOK, templates)
}

func (api *contentApi) retrieveTemplate(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	tmpl, err := api.templates.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting email template")
	}
	return ctx.JSON(http.StatusOK, tmpl)
}
