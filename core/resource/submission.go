package resource

import (
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/volatiletech/null/v8"

	"github.com/ocwc/oeweek2022/core"
)

const copyPrefix = "Copy of: "

var (
	postTypeTag  = "posttype"
	postTypeText = "select a valid post type"

	eventTypeTag  = "eventtype"
	eventTypeText = "select a valid event type"

	licenseTag  = "license"
	licenseText = "select a valid license"

	openTagTag  = "opentag"
	openTagText = "select valid open tags"

	countryTag  = "country"
	countryText = "select a valid country"

	languageTag  = "language"
	languageText = "select a valid language"

	eventTimeLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

	allowedTags = []string{"a", "abbr", "acronym", "b", "blockquote", "code", "em", "i", "li", "ol", "strong", "ul", "p", "br"}
	sanitizer   = newSanitizer()
)

func newSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("title").OnElements("abbr", "acronym")
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	return p
}

// Sanitize strips every tag but the few allowed in submission descriptions.
func Sanitize(content string) string {
	return strings.TrimSpace(sanitizer.Sanitize(content))
}

// Places knows the countries and languages a submission may name.
type Places interface {
	IsCountry(name string) bool
	IsLanguage(name string) bool
	CountryChoices() []string
	LanguageChoices() []string
}

// RegisterValidators registers the submission validators and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator, places Places) {
	core.RegisterChoiceValidation(validate, translator, postTypeTag, postTypeText, PostTypes...)
	core.RegisterChoiceValidation(validate, translator, eventTypeTag, eventTypeText, EventTypes...)
	core.RegisterChoiceValidation(validate, translator, licenseTag, licenseText, Licenses...)
	core.RegisterChoiceValidation(validate, translator, openTagTag, openTagText, OpenTags...)

	_ = validate.RegisterValidation(countryTag, func(fl validator.FieldLevel) bool {
		return places.IsCountry(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, countryTag, countryText)
	_ = validate.RegisterValidation(languageTag, func(fl validator.FieldLevel) bool {
		return places.IsLanguage(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, languageTag, languageText)
}

// Submission is what contributors fill in, through the HTML forms or the API.
type Submission struct {
	PostType               PostType `json:"post_type" form:"post_type" validate:"required,posttype"`
	Firstname              string   `json:"firstname" form:"firstname" validate:"required,max=255"`
	Lastname               string   `json:"lastname" form:"lastname" validate:"required,max=255"`
	Email                  string   `json:"email" form:"email" validate:"required,email"`
	TwitterPersonal        string   `json:"twitter_personal" form:"twitter_personal" validate:"max=255"`
	TwitterInstitution     string   `json:"twitter_institution" form:"twitter_institution" validate:"max=255"`
	Twitter                string   `json:"twitter" form:"twitter" validate:"max=255"`
	Institution            string   `json:"institution" form:"institution" validate:"required,max=255"`
	InstitutionURL         string   `json:"institution_url" form:"institution_url" validate:"required,weburl"`
	InstitutionIsOEGMember *bool    `json:"institution_is_oeg_member" form:"-"` // bound by hand from forms
	Country                string   `json:"country" form:"country" validate:"omitempty,max=255,country"`
	City                   string   `json:"city" form:"city" validate:"required,max=255"`
	Title                  string   `json:"title" form:"title" validate:"required,max=255"`
	Content                string   `json:"content" form:"content" validate:"required"`
	Link                   string   `json:"link" form:"link" validate:"required,weburl"`
	LinkWebroom            string   `json:"linkwebroom" form:"linkwebroom" validate:"omitempty,weburl"`
	FormLanguage           string   `json:"form_language" form:"form_language" validate:"omitempty,max=64,language"`
	License                string   `json:"license" form:"license" validate:"omitempty,license"`
	ImageURL               string   `json:"image_url" form:"image_url" validate:"omitempty,weburl"`
	EventType              string   `json:"event_type" form:"event_type" validate:"omitempty,eventtype"`
	EventOnline            bool     `json:"event_online" form:"event_online"`
	EventTime              string   `json:"event_time" form:"event_time"` // local wall clock time
	EventSourceTimezone    string   `json:"event_source_timezone" form:"event_source_timezone" validate:"omitempty,timezone"`
	EventDirections        string   `json:"event_directions" form:"event_directions" validate:"max=255"`
	EventOtherText         string   `json:"event_other_text" form:"event_other_text" validate:"max=255"`
	EventFacilitator       string   `json:"event_facilitator" form:"event_facilitator" validate:"max=255"`
	ArchivePlanned         bool     `json:"archive_planned" form:"archive_planned"`
	ArchiveLink            string   `json:"archive_link" form:"archive_link" validate:"omitempty,weburl"`
	Tags                   []string `json:"tags" form:"tags"`
	OpenTags               []string `json:"opentags" form:"opentags" validate:"omitempty,dive,opentag"`
	Categories             []int    `json:"categories" form:"categories"`
	Newsletter             bool     `json:"newsletter" form:"newsletter"`

	eventTime null.Time
}

func (s *Submission) clean() {
	s.PostType = PostType(core.CleanString(string(s.PostType), true /* lower */))
	s.Firstname = core.CleanString(s.Firstname)
	s.Lastname = core.CleanString(s.Lastname)
	s.Email = core.CleanString(s.Email, true /* lower */)
	s.TwitterPersonal = core.CleanString(s.TwitterPersonal)
	s.TwitterInstitution = core.CleanString(s.TwitterInstitution)
	s.Twitter = core.CleanString(s.Twitter)
	s.Institution = core.CleanString(s.Institution)
	s.InstitutionURL = core.CleanString(s.InstitutionURL)
	s.Country = core.CleanString(s.Country)
	s.FormLanguage = core.CleanString(s.FormLanguage)
	s.City = core.CleanString(s.City)
	s.Title = core.CleanString(s.Title)
	s.Link = core.CleanString(s.Link)
	s.LinkWebroom = core.CleanString(s.LinkWebroom)
	s.ImageURL = core.CleanString(s.ImageURL)
	s.ArchiveLink = core.CleanString(s.ArchiveLink)
	s.EventTime = core.CleanString(s.EventTime)
	s.EventSourceTimezone = core.CleanString(s.EventSourceTimezone)
	if s.PostType == "" {
		s.PostType = PostTypeEvent
	}
}

// Validate cleans the submission up, checks it and converts the local event time to UTC.
// The content is sanitized.
func (s *Submission) Validate(validate *validator.Validate) error {
	s.clean()
	if err := validate.Struct(s); err != nil {
		return err
	}
	s.Content = Sanitize(s.Content)
	if core.IsBlank(s.Content) {
		return core.NewValidationError(nil, core.FieldError{Field: "content", Error: "this field is required"})
	}

	s.eventTime = null.Time{}
	if s.EventTime != "" {
		t, err := ParseLocalTime(s.EventTime, s.EventSourceTimezone)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "event_time", Error: "enter a valid date/time"})
		}
		s.eventTime = null.TimeFrom(t)
	}
	return nil
}

// ParseLocalTime reads a wall clock time in the IANA timezone `tz` (UTC when empty) and returns it in UTC.
func ParseLocalTime(value, tz string) (time.Time, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, err
		}
		loc = l
	}
	var err error
	for _, layout := range eventTimeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// apply copies the submitted fields onto r. The review state is left alone.
func (s *Submission) apply(r *Resource) {
	r.PostType = s.PostType
	r.Firstname = s.Firstname
	r.Lastname = s.Lastname
	r.Email = s.Email
	r.TwitterPersonal = s.TwitterPersonal
	r.TwitterInstitution = s.TwitterInstitution
	r.Twitter = s.Twitter
	r.Institution = s.Institution
	r.InstitutionURL = s.InstitutionURL
	r.InstitutionIsOEGMember = null.BoolFromPtr(s.InstitutionIsOEGMember)
	r.Country = s.Country
	r.City = s.City
	r.Title = s.Title
	r.Content = s.Content
	r.Link = s.Link
	r.LinkWebroom = s.LinkWebroom
	r.FormLanguage = s.FormLanguage
	r.License = s.License
	r.ImageURL = s.ImageURL
	r.EventType = s.EventType
	r.EventOnline = s.EventOnline
	r.EventTime = s.eventTime
	r.EventSourceDatetime = s.EventTime
	r.EventSourceTimezone = s.EventSourceTimezone
	r.EventDirections = s.EventDirections
	r.EventOtherText = s.EventOtherText
	r.EventFacilitator = s.EventFacilitator
	r.ArchivePlanned = s.ArchivePlanned
	r.ArchiveLink = s.ArchiveLink
	r.Tags = s.Tags
	r.OpenTags = s.OpenTags
	r.Categories = s.Categories
	r.Newsletter = s.Newsletter
	r.SetContact()
}

// SubmissionFrom prefills a form with the fields of an existing resource.
func SubmissionFrom(r Resource) Submission {
	s := Submission{
		PostType:               r.PostType,
		Firstname:              r.Firstname,
		Lastname:               r.Lastname,
		Email:                  r.Email,
		TwitterPersonal:        r.TwitterPersonal,
		TwitterInstitution:     r.TwitterInstitution,
		Twitter:                r.Twitter,
		Institution:            r.Institution,
		InstitutionURL:         r.InstitutionURL,
		InstitutionIsOEGMember: r.InstitutionIsOEGMember.Ptr(),
		Country:                r.Country,
		City:                   r.City,
		Title:                  r.Title,
		Content:                r.Content,
		Link:                   r.Link,
		LinkWebroom:            r.LinkWebroom,
		FormLanguage:           r.FormLanguage,
		License:                r.License,
		ImageURL:               r.ImageURL,
		EventType:              r.EventType,
		EventOnline:            r.EventOnline,
		EventTime:              r.EventSourceDatetime,
		EventSourceTimezone:    r.EventSourceTimezone,
		EventDirections:        r.EventDirections,
		EventOtherText:         r.EventOtherText,
		EventFacilitator:       r.EventFacilitator,
		ArchivePlanned:         r.ArchivePlanned,
		ArchiveLink:            r.ArchiveLink,
		Tags:                   r.Tags,
		OpenTags:               r.OpenTags,
		Categories:             r.Categories,
		Newsletter:             r.Newsletter,
	}
	return s
}

// copyOf prefills the "contribute similar" form. Event time and image are not carried over.
func copyOf(r Resource) Submission {
	s := SubmissionFrom(r)
	s.Title = copyPrefix + s.Title
	s.Content = copyPrefix + s.Content
	s.EventTime = ""
	s.ImageURL = ""
	return s
}
