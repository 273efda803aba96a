package echoapi

import (
	"net/http"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/page"
	"github.com/ocwc/oeweek2022/core/resource"
)

const (
	verbContribute = "Contribute"
	verbEdit       = "Edit"

	activityPath = "/contribute-activity/"
	assetPath    = "/contribute-asset/"
)

var (
	timeNow = time.Now // mockable

	legacyRedirects = map[string]string{
		"/submit/":          "/contribute/",
		"/submit-activity/": activityPath,
		"/submit-asset/":    assetPath,
		"/schedule/":        "/events/",
		"/about/":           "/pages/",
		"/about/faq/":       "/pages/faq/",
	}

	// offered in the timezone selector; any IANA name is accepted
	timezoneChoices = []string{
		"UTC",
		"Africa/Cairo", "Africa/Johannesburg", "Africa/Kinshasa", "Africa/Lagos", "Africa/Nairobi",
		"America/Anchorage", "America/Bogota", "America/Chicago", "America/Denver", "America/Halifax",
		"America/Los_Angeles", "America/Mexico_City", "America/New_York", "America/Sao_Paulo",
		"America/Argentina/Buenos_Aires", "America/Toronto", "America/Vancouver",
		"Asia/Bangkok", "Asia/Dhaka", "Asia/Dubai", "Asia/Hong_Kong", "Asia/Jakarta", "Asia/Karachi",
		"Asia/Kolkata", "Asia/Manila", "Asia/Seoul", "Asia/Shanghai", "Asia/Singapore", "Asia/Taipei",
		"Asia/Tehran", "Asia/Tokyo",
		"Atlantic/Reykjavik",
		"Australia/Adelaide", "Australia/Brisbane", "Australia/Perth", "Australia/Sydney",
		"Europe/Amsterdam", "Europe/Athens", "Europe/Berlin", "Europe/Bratislava", "Europe/Istanbul",
		"Europe/Lisbon", "Europe/London", "Europe/Madrid", "Europe/Moscow", "Europe/Paris",
		"Europe/Rome", "Europe/Warsaw",
		"Pacific/Auckland", "Pacific/Honolulu",
	}
)

type webPages struct {
	resources  *resource.Service
	pages      *page.Service
	places     resource.Places
	translator ut.Translator
}

func registerWebPages(e *echo.Echo, resources *resource.Service, pages *page.Service, places resource.Places, translator ut.Translator) {
	w := webPages{resources: resources, pages: pages, places: places, translator: translator}

	e.GET("/", w.home)
	e.GET("/contribute/", w.contribute)
	e.GET(activityPath, w.contributeForm(resource.PostTypeEvent))
	e.GET(activityPath+":uuid/", w.contributeForm(resource.PostTypeEvent))
	e.POST(activityPath, w.submit(resource.PostTypeEvent))
	e.GET(assetPath, w.contributeForm(resource.PostTypeResource))
	e.GET(assetPath+":uuid/", w.contributeForm(resource.PostTypeResource))
	e.POST(assetPath, w.submit(resource.PostTypeResource))
	e.GET("/edit/:uuid/", w.edit)
	e.POST("/edit/:uuid/", w.edit)
	e.GET("/thanks/", w.thanks)

	e.GET("/events/", w.events)
	e.GET("/events/:year/:slug/", w.detail("event_detail", resource.PostTypeEvent))
	e.GET("/resources/", w.resourceList)
	e.GET("/resources/:year/:slug/", w.detail("resource_detail", resource.PostTypeResource, resource.PostTypeProject))

	e.GET("/pages/", w.pageIndex)
	e.GET("/pages/faq/", w.faq)
	e.GET("/pages/:slug/", w.page)

	e.POST("/set-timezone/", w.setTimezone)
	e.POST("/set-timezone-reload/", w.setTimezoneAndReload)

	for from, to := range legacyRedirects {
		e.GET(from, redirectTo(to))
	}
}

func redirectTo(url string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.Redirect(http.StatusFound, url)
	}
}

type (
	homePage struct {
		Pages  []page.Page
		Events []resource.Resource
	}

	formPage struct {
		Form       resource.Submission
		Errors     map[string]string
		Verb       string
		Action     string
		Similar    string // "contribute similar" link
		EventTypes []string
		Licenses   []string
		OpenTags   []string
		Countries  []string
		Languages  []string
	}

	thanksPage struct {
		UUID    string
		Title   string
		Similar string
	}

	listPage struct {
		Items     []resource.ListItem
		Days      []core.WeekDay
		Filter    resource.ListFilter
		Years     []int
		Languages []string
		OpenTags  []string // offered on the resources page only
	}

	detailPage struct {
		Object   *resource.Resource
		ImageSrc string
		URL      string
	}

	contentPage struct {
		Title string
		Pages []page.Page
	}

	timezoneFragment struct {
		Result string
	}
)

// Handlers

func (w *webPages) home(ctx echo.Context) error {
	pages, err := w.pages.List(ctx.Request().Context(), page.KindHome)
	if err != nil {
		return errors.Wrap(err, "listing home pages")
	}
	events, err := w.resources.CurrentEvents(ctx.Request().Context(), timeNow())
	if err != nil {
		return errors.Wrap(err, "listing current events")
	}
	return ctx.Render(http.StatusOK, "home", homePage{Pages: pages, Events: events})
}

func (w *webPages) contribute(ctx echo.Context) error {
	if !w.resources.ContributionOpen() {
		return ctx.Redirect(http.StatusFound, "/")
	}
	return ctx.Render(http.StatusOK, "contribute", nil)
}

// contributeForm renders an empty form, or a copy of the submission :uuid.
func (w *webPages) contributeForm(postType resource.PostType) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !w.resources.ContributionOpen() {
			return ctx.Redirect(http.StatusFound, "/")
		}
		form := resource.Submission{PostType: postType}
		if uuid := ctx.Param("uuid"); uuid != "" {
			copied, err := w.resources.CopyOf(ctx.Request().Context(), uuid)
			if err != nil {
				return errors.Wrap(err, "copying submission")
			}
			form = copied
		}
		return ctx.Render(http.StatusOK, formTemplate(postType), w.formPage(form, verbContribute, contributePath(postType), ""))
	}
}

func (w *webPages) submit(postType resource.PostType) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !w.resources.ContributionOpen() {
			return ctx.Redirect(http.StatusFound, "/")
		}
		form, err := bindSubmission(ctx, postType)
		if err != nil {
			return err
		}
		rememberTimezone(ctx, form.EventSourceTimezone)

		r, err := w.resources.Submit(ctx.Request().Context(), form)
		if err != nil {
			return w.formErrors(ctx, err, formTemplate(postType), w.formPage(form, verbContribute, contributePath(postType), ""))
		}
		return ctx.Render(http.StatusOK, "thanks", thanksPage{
			UUID:    r.UUID,
			Title:   r.Title,
			Similar: contributePath(r.PostType) + r.UUID + "/",
		})
	}
}

// edit lets the submitter change their submission. The UUID in the URL is the only credential.
func (w *webPages) edit(ctx echo.Context) error {
	uuid := ctx.Param("uuid")
	r, err := w.resources.GetByUUID(ctx.Request().Context(), uuid)
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	action := "/edit/" + r.UUID + "/"
	similar := contributePath(r.PostType) + r.UUID + "/"

	if ctx.Request().Method != http.MethodPost {
		return ctx.Render(http.StatusOK, formTemplate(r.PostType), w.formPage(resource.SubmissionFrom(r), verbEdit, action, similar))
	}

	form, err := bindSubmission(ctx, r.PostType)
	if err != nil {
		return err
	}
	rememberTimezone(ctx, form.EventSourceTimezone)

	if _, err = w.resources.UpdateByUUID(ctx.Request().Context(), uuid, form); err != nil {
		return w.formErrors(ctx, err, formTemplate(r.PostType), w.formPage(form, verbEdit, action, similar))
	}
	return ctx.Render(http.StatusOK, "updated", thanksPage{UUID: r.UUID, Title: form.Title, Similar: similar})
}

func (w *webPages) thanks(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "thanks", thanksPage{})
}

func (w *webPages) events(ctx echo.Context) error {
	lp, err := w.listPage(ctx)
	if err != nil {
		return err
	}
	lp.Items, err = w.resources.ListEvents(ctx.Request().Context(), contextLocation(ctx), lp.Filter)
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	lp.Days = w.resources.Week().Days()
	return ctx.Render(http.StatusOK, "events", lp)
}

func (w *webPages) resourceList(ctx echo.Context) error {
	lp, err := w.listPage(ctx)
	if err != nil {
		return err
	}
	lp.Items, err = w.resources.ListResources(ctx.Request().Context(), lp.Filter)
	if err != nil {
		return errors.Wrap(err, "listing resources")
	}
	lp.OpenTags = resource.OpenTags
	return ctx.Render(http.StatusOK, "resources", lp)
}

func (w *webPages) detail(name string, postTypes ...resource.PostType) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		year, err := strconv.Atoi(ctx.Param("year"))
		if err != nil {
			return errHttpNotFound
		}
		r, err := w.resources.GetByYearSlug(ctx.Request().Context(), year, ctx.Param("slug"), postTypes...)
		if err != nil {
			return errors.Wrap(err, "getting resource")
		}
		return ctx.Render(http.StatusOK, name, detailPage{
			Object:   &r,
			ImageSrc: r.ImageURLForDetail(w.resources.MediaURL()),
			URL:      r.FullURL(w.resources.PublicSiteURL()),
		})
	}
}

func (w *webPages) pageIndex(ctx echo.Context) error {
	pages, err := w.pages.List(ctx.Request().Context(), page.KindPage)
	if err != nil {
		return errors.Wrap(err, "listing pages")
	}
	return ctx.Render(http.StatusOK, "pages", contentPage{Title: "About", Pages: pages})
}

func (w *webPages) faq(ctx echo.Context) error {
	entries, err := w.pages.FAQ(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing faq")
	}
	return ctx.Render(http.StatusOK, "faq", contentPage{Title: "FAQ", Pages: entries})
}

func (w *webPages) page(ctx echo.Context) error {
	slug := ctx.Param("slug")
	p, err := w.pages.Get(ctx.Request().Context(), page.KindPage, slug)
	if errors.Cause(err) == page.ErrNotFound {
		p, err = w.pages.Get(ctx.Request().Context(), page.KindGeneric, slug)
	}
	if err != nil {
		return errors.Wrap(err, "getting page")
	}
	return ctx.Render(http.StatusOK, "page", contentPage{Title: p.Title, Pages: []page.Page{p}})
}

func (w *webPages) setTimezone(ctx echo.Context) error {
	name := core.CleanString(ctx.FormValue("timezone"))
	result := "NOK"
	if core.IsValidTimezone(name) {
		setTimezone(ctx, name)
		result = "timezone changed: " + name
	}
	return ctx.Render(http.StatusOK, "timezone", timezoneFragment{Result: result})
}

func (w *webPages) setTimezoneAndReload(ctx echo.Context) error {
	ctx.Response().Header().Set("HX-Refresh", "true")
	return w.setTimezone(ctx)
}

// Helpers

func (w *webPages) formPage(form resource.Submission, verb, action, similar string) formPage {
	return formPage{
		Form:       form,
		Errors:     map[string]string{},
		Verb:       verb,
		Action:     action,
		Similar:    similar,
		EventTypes: resource.EventTypes,
		Licenses:   resource.Licenses,
		OpenTags:   resource.OpenTags,
		Countries:  w.places.CountryChoices(),
		Languages:  w.places.LanguageChoices(),
	}
}

// listPage binds the listing filters and the choices offered for them.
func (w *webPages) listPage(ctx echo.Context) (listPage, error) {
	var lp listPage
	if err := ctx.Bind(&lp.Filter); err != nil {
		return lp, errors.Wrap(err, "binding to ListFilter")
	}
	years, err := w.resources.Years(ctx.Request().Context())
	if err != nil {
		return lp, err
	}
	lp.Years = years
	lp.Languages = w.places.LanguageChoices()
	return lp, nil
}

// formErrors re-renders the form with the validation errors. Other errors are returned.
func (w *webPages) formErrors(ctx echo.Context, err error, name string, fp formPage) error {
	switch vErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range vErr {
			fp.Errors[fe.Field()] = fe.Translate(w.translator)
		}
	case *core.ValidationError:
		fp.Errors = vErr.FieldMap()
		if len(fp.Errors) == 0 {
			fp.Errors["form"] = vErr.Error()
		}
	default:
		if errors.Cause(err) == resource.ErrContributionClosed {
			return ctx.Redirect(http.StatusFound, "/")
		}
		return err
	}
	return ctx.Render(http.StatusOK, name, fp)
}

func bindSubmission(ctx echo.Context, postType resource.PostType) (resource.Submission, error) {
	var form resource.Submission
	if err := ctx.Bind(&form); err != nil {
		return resource.Submission{}, errors.Wrap(err, "binding to Submission")
	}
	form.InstitutionIsOEGMember = formBool(ctx, "institution_is_oeg_member")
	// assets may be resources or projects, the activity form only submits events
	if postType == resource.PostTypeEvent || form.PostType != resource.PostTypeProject {
		form.PostType = postType
	}
	return form, nil
}

// rememberTimezone makes the timezone of a submitted event the visitor's timezone.
func rememberTimezone(ctx echo.Context, name string) {
	if core.IsValidTimezone(name) {
		setTimezone(ctx, name)
	}
}

func formTemplate(postType resource.PostType) string {
	if postType == resource.PostTypeEvent {
		return "contribute_activity"
	}
	return "contribute_asset"
}

func contributePath(postType resource.PostType) string {
	if postType == resource.PostTypeEvent {
		return activityPath
	}
	return assetPath
}
