package resource

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/ocwc/oeweek2022/core"
)

type (
	PostType         string
	PostStatus       string
	Status           string
	ScreenshotStatus string
)

const (
	PostTypeResource PostType = "resource"
	PostTypeProject  PostType = "project"
	PostTypeEvent    PostType = "event"

	PostStatusPublish PostStatus = "publish"
	PostStatusDraft   PostStatus = "draft"
	PostStatusTrash   PostStatus = "trash"

	StatusNew      Status = "new"
	StatusFeedback Status = "feedback"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"

	ScreenshotNone    ScreenshotStatus = ""
	ScreenshotPending ScreenshotStatus = "PENDING"
	ScreenshotDone    ScreenshotStatus = "DONE"
)

var (
	PostTypes = []string{string(PostTypeResource), string(PostTypeProject), string(PostTypeEvent)}
	Statuses  = []string{string(StatusNew), string(StatusFeedback), string(StatusApproved), string(StatusRejected)}

	// EventTypes are kept as submitted over the years, several are legacy duplicates.
	EventTypes = []string{
		"conference/forum/discussion",
		"conference/seminar",
		"workshop",
		"forum/panel/discussion",
		"other_local",
		"local",
		"webinar",
		"discussion",
		"other_online",
		"online",
		"anytime",
	}
	OnlineEventTypes = []string{"webinar", "online", "other_online"}

	Licenses = []string{"Public domain", "CC-0", "CC-BY", "CC-BY-SA", "CC-BY-NC", "CC-NC-SA", "Other"}

	OpenTags = []string{
		"Open Educational Resources",
		"Open Pedagogy",
		"Open Science",
		"Open Policy",
		"Open Access",
		"Open Data",
		"Open Source",
		"Open Education Practices",
	}
)

// Resource is a submission: an event, a resource (asset) or a project.
type Resource struct {
	ID         int         `db:"id" json:"id"`
	UUID       string      `db:"uuid" json:"uuid"`
	PostType   PostType    `db:"post_type" json:"post_type"`
	PostStatus PostStatus  `db:"post_status" json:"post_status"`
	Status     Status      `db:"status" json:"status"`
	ReviewerID null.String `db:"reviewer_id" json:"reviewer_id"`
	PostID     int         `db:"post_id" json:"post_id"`
	FormID     null.Int    `db:"form_id" json:"form_id"`

	Title   string `db:"title" json:"title"`
	Slug    string `db:"slug" json:"slug"`
	Content string `db:"content" json:"content"`

	Contact                string    `db:"contact" json:"contact"`
	Firstname              string    `db:"firstname" json:"firstname"`
	Lastname               string    `db:"lastname" json:"lastname"`
	Email                  string    `db:"email" json:"email"`
	Institution            string    `db:"institution" json:"institution"`
	InstitutionURL         string    `db:"institution_url" json:"institution_url"`
	InstitutionIsOEGMember null.Bool `db:"institution_is_oeg_member" json:"institution_is_oeg_member"`
	FormLanguage           string    `db:"form_language" json:"form_language"`
	License                string    `db:"license" json:"license"`

	Link        string `db:"link" json:"link"`
	LinkWebroom string `db:"linkwebroom" json:"linkwebroom"`
	ImageURL    string `db:"image_url" json:"image_url"`

	City    string       `db:"city" json:"city"`
	Country string       `db:"country" json:"country"`
	Lat     null.Float64 `db:"lat" json:"lat"`
	Lng     null.Float64 `db:"lng" json:"lng"`
	Address string       `db:"address" json:"address"`

	EventTime           null.Time `db:"event_time" json:"event_time"` // UTC
	EventType           string    `db:"event_type" json:"event_type"`
	EventOnline         bool      `db:"event_online" json:"event_online"`
	EventSourceDatetime string    `db:"event_source_datetime" json:"event_source_datetime"`
	EventSourceTimezone string    `db:"event_source_timezone" json:"event_source_timezone"`
	EventDirections     string    `db:"event_directions" json:"event_directions"`
	EventOtherText      string    `db:"event_other_text" json:"event_other_text"`
	EventFacilitator    string    `db:"event_facilitator" json:"event_facilitator"`

	ArchivePlanned bool   `db:"archive_planned" json:"archive_planned"`
	ArchiveLink    string `db:"archive_link" json:"archive_link"`

	Categories []int           `db:"-" json:"categories"`
	Tags       core.StringList `db:"tags" json:"tags"`
	OpenTags   core.StringList `db:"opentags" json:"opentags"`

	Notified           bool             `db:"notified" json:"notified"`
	RawPost            string           `db:"raw_post" json:"-"`
	ScreenshotStatus   ScreenshotStatus `db:"screenshot_status" json:"screenshot_status"`
	Year               int              `db:"year" json:"year"`
	OEAward            bool             `db:"oeaward" json:"oeaward"`
	ImageID            null.Int         `db:"image_id" json:"image_id"`
	ImagePath          null.String      `db:"image_path" json:"-"` // joined from resource_image
	UserImage          string           `db:"user_image" json:"user_image"`
	Twitter            string           `db:"twitter" json:"twitter"`
	TwitterPersonal    string           `db:"twitter_personal" json:"twitter_personal"`
	TwitterInstitution string           `db:"twitter_institution" json:"twitter_institution"`
	Newsletter         bool             `db:"newsletter" json:"newsletter"`

	Created  time.Time `db:"created" json:"created"`   // UTC
	Modified time.Time `db:"modified" json:"modified"` // UTC
}

func (r *Resource) IsEvent() bool     { return r.PostType == PostTypeEvent }
func (r *Resource) IsPublished() bool { return r.PostStatus == PostStatusPublish }

// SetContact derives the contact name from the first and last names.
func (r *Resource) SetContact() {
	if r.Firstname != "" || r.Lastname != "" {
		r.Contact = r.Firstname + " " + r.Lastname
	}
}

// Name is how the submitter is greeted in emails.
func (r *Resource) Name() string {
	if name := strings.TrimSpace(r.Contact); name != "" {
		return name
	}
	return strings.TrimSpace(r.Firstname + " " + r.Lastname)
}

// NeedsScreenshot reports whether a screenshot should (still) be fetched.
func (r *Resource) NeedsScreenshot() bool {
	return r.Link != "" && (r.ScreenshotStatus == ScreenshotNone || r.ScreenshotStatus == ScreenshotPending)
}

// NeedsLocation reports whether there is something to geocode.
func (r *Resource) NeedsLocation() bool {
	return !(core.IsBlank(r.City) && core.IsBlank(r.Country))
}

// IsOnline reports whether the event takes place online.
func (r *Resource) IsOnline() bool {
	if r.EventOnline {
		return true
	}
	for _, t := range OnlineEventTypes {
		if r.EventType == t {
			return true
		}
	}
	return false
}

// ResourceImage is a stored picture (a fetched screenshot or an upload by staff).
type ResourceImage struct {
	ID      int       `db:"id" json:"id"`
	Path    string    `db:"path" json:"path"` // relative to the media root
	Created time.Time `db:"created" json:"created"`
}

type GetFilter struct {
	ID        int
	UUID      string
	Year      int
	Slug      string
	PostTypes []PostType
	Published bool // only PostStatusPublish
}

// QueryFilter applies AND operation on the set fields.
type QueryFilter struct {
	PostTypes         []PostType
	PostStatuses      []PostStatus
	Statuses          []Status
	Year              int
	OpenTags          []string // all of them
	Slug              string
	FormLanguage      string
	EventTypes        []string
	ExcludeEventTypes []string
	HasCountry        bool
	Email             string // case-insensitive
	CreatedFrom       time.Time
	EventFrom         time.Time // event_time >= EventFrom
	EventTo           time.Time // event_time < EventTo
	OutsideFrom       time.Time // event_time set but outside [OutsideFrom, OutsideTo]
	OutsideTo         time.Time
	HasEventTime      bool // event_time and event_source_timezone set
	NeedsScreenshot   bool // link set, screenshot_status '' or PENDING
	Notified          *bool
	IDs               []int
	Limit             int
}

// CountryEvents is a line of the events summary.
type CountryEvents struct {
	Country string     `json:"country"`
	Count   int        `json:"count"`
	Events  []Resource `json:"events"`
}
