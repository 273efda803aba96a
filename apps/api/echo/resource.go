package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/resource"
	"github.com/ocwc/oeweek2022/core/user"
)

const (
	maxImageSize = 5 << 20
	exportName   = "oerweek-resources"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type resourceApi struct {
	svc   *resource.Service
	users user.ServiceInterface
}

func registerResourceAPI(g, export *echo.Group, jwt echo.MiddlewareFunc, svc *resource.Service, users user.ServiceInterface) {
	api := resourceApi{svc: svc, users: users}

	// public listings
	g.GET("/resource", api.list)
	g.GET("/resource/:id", api.retrieve)
	g.GET("/event", api.events)
	g.GET("/events-summary", api.eventsSummary)
	g.GET("/resource-image", api.listImages)
	g.GET("/resource-image/:id", api.retrieveImage)

	// submissions
	g.POST("/submission", api.submit)
	g.PUT("/submission/:id", api.update) // :id is the submission UUID
	g.POST("/request-access", api.requestAccess)
	g.GET("/submission", api.submissions, jwt)

	// staff
	g.POST("/submission/:id/review", api.review, jwt, staffMiddleware)
	g.POST("/resource-image", api.uploadImage, jwt, staffMiddleware)
	export.GET("/resources", api.export, jwt, staffMiddleware)
}

// Handlers

func (api *resourceApi) list(ctx echo.Context) error {
	var params resource.ListParams
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to ListParams")
	}
	resources, err := api.svc.APIResources(ctx.Request().Context(), params)
	if err != nil {
		return errors.Wrap(err, "listing resources")
	}
	return ctx.JSON(http.StatusOK, api.responses(resources))
}

func (api *resourceApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	r, err := api.svc.GetPublished(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting resource")
	}
	return ctx.JSON(http.StatusOK, api.response(r))
}

func (api *resourceApi) events(ctx echo.Context) error {
	var params resource.ListParams
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to ListParams")
	}
	events, err := api.svc.APIEvents(ctx.Request().Context(), params)
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	return ctx.JSON(http.StatusOK, api.responses(events))
}

func (api *resourceApi) eventsSummary(ctx echo.Context) error {
	summary, err := api.svc.EventSummary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summarizing events")
	}
	return ctx.JSON(http.StatusOK, EventSummaryResponse{LocalEvents: summary})
}

func (api *resourceApi) submit(ctx echo.Context) error {
	var data resource.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	r, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == resource.ErrContributionClosed {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, api.response(r))
}

func (api *resourceApi) update(ctx echo.Context) error {
	var data resource.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	r, err := api.svc.UpdateByUUID(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.response(r))
}

// submissions lists the submissions of the authenticated user, or all of them for staff.
func (api *resourceApi) submissions(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	resources, err := api.svc.SubmissionsFor(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	return ctx.JSON(http.StatusOK, api.responses(resources))
}

func (api *resourceApi) review(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data ReviewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	reviewer, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	r, err := api.svc.Review(ctx.Request().Context(), id, reviewer, resource.Status(core.CleanString(data.Status, true /* lower */)))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.response(r))
}

func (api *resourceApi) requestAccess(ctx echo.Context) error {
	var data RequestAccessRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RequestAccessRequest")
	}
	err := api.svc.RequestAccess(ctx.Request().Context(), data.Email)
	switch {
	case err == nil:
		return ctx.JSON(http.StatusOK, StatusResponse{Status: "ok"})
	case errors.Cause(err) == resource.ErrInvalidEmail:
		return ctx.JSON(http.StatusOK, StatusResponse{Status: "invalid_email"})
	default:
		return errors.Wrap(err, "requesting access")
	}
}

func (api *resourceApi) listImages(ctx echo.Context) error {
	images, err := api.svc.ListImages(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing images")
	}
	resp := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		resp = append(resp, api.imageResponse(img))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *resourceApi) retrieveImage(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	img, err := api.svc.GetImage(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting image")
	}
	return ctx.JSON(http.StatusOK, api.imageResponse(img))
}

func (api *resourceApi) uploadImage(ctx echo.Context) error {
	fh, err := ctx.FormFile("image")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "image", Error: "this field is required"})
	}
	if fh.Size > maxImageSize {
		return core.NewValidationError(nil, core.FieldError{Field: "image", Error: "the image is too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err = io.Copy(&buf, io.LimitReader(f, maxImageSize)); err != nil {
		return errors.Wrap(err, "reading upload")
	}
	if !strings.HasPrefix(http.DetectContentType(buf.Bytes()), "image/") {
		return core.NewValidationError(nil, core.FieldError{Field: "image", Error: "upload a valid image"})
	}

	img, err := api.svc.UploadImage(ctx.Request().Context(), fh.Filename, buf.Bytes())
	if err != nil {
		return errors.Wrap(err, "uploading image")
	}
	return ctx.JSON(http.StatusCreated, api.imageResponse(img))
}

// export serves the xlsx workbook, or CSV with ?format=csv.
func (api *resourceApi) export(ctx echo.Context) error {
	var (
		buf         bytes.Buffer
		err         error
		ext         = "xlsx"
		contentType = xlsxMIME
	)
	switch ctx.QueryParam("format") {
	case "", "xlsx":
		err = api.svc.Export(ctx.Request().Context(), &buf)
	case "csv":
		ext, contentType = "csv", "text/csv; charset=utf-8"
		err = api.svc.ExportCSV(ctx.Request().Context(), &buf)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown export format")
	}
	if err != nil {
		return errors.Wrap(err, "exporting resources")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exportName+"."+ext))
	return ctx.Blob(http.StatusOK, contentType, buf.Bytes())
}

func (api *resourceApi) response(r resource.Resource) ResourceResponse {
	return ResourceResponse{
		Resource: r,
		URL:      r.FullURL(api.svc.PublicSiteURL()),
		ImageSrc: r.ImageURLForDetail(api.svc.MediaURL()),
	}
}

func (api *resourceApi) responses(resources []resource.Resource) []ResourceResponse {
	resp := make([]ResourceResponse, 0, len(resources))
	for _, r := range resources {
		resp = append(resp, api.response(r))
	}
	return resp
}

func (api *resourceApi) imageResponse(img resource.ResourceImage) ImageResponse {
	return ImageResponse{ResourceImage: img, URL: img.URL(api.svc.MediaURL())}
}

type (
	ResourceResponse struct {
		resource.Resource
		URL      string `json:"url"`
		ImageSrc string `json:"image_src"`
	}

	ImageResponse struct {
		resource.ResourceImage
		URL string `json:"url"`
	}

	EventSummaryResponse struct {
		LocalEvents []resource.CountryEvents `json:"local_events"`
	}

	ReviewRequest struct {
		Status string `json:"status"`
	}

	RequestAccessRequest struct {
		Email string `json:"email" form:"email"`
	}

	StatusResponse struct {
		Status string `json:"status"`
	}
)
