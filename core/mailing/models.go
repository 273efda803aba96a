package mailing

import (
	"strings"
	"time"
)

type Status string

const (
	StatusUnsent Status = "UNSENT"
	StatusSent   Status = "SENT"
)

// Queue priorities
const (
	PriorityNormal = 0
	PriorityHigh   = 10
)

// Template names
const (
	TemplateSubmissionReceived = "submission_received"
	TemplateFeedbackRequested  = "feedback_requested"
	TemplateAccepted           = "accepted"
	TemplateAccountCreated     = "account_created"
)

// Item is a queued email.
type Item struct {
	ID         int       `db:"id" json:"id"`
	Subject    string    `db:"subject" json:"subject"`
	Body       string    `db:"body" json:"body"`
	FromEmail  string    `db:"from_email" json:"from_email"`
	Recipients string    `db:"recipients" json:"recipients"` // RFC 5322 address list
	Cc         string    `db:"cc" json:"cc"`
	Status     Status    `db:"status" json:"status"`
	Priority   int       `db:"priority" json:"priority"` // higher goes first
	Created    time.Time `db:"created" json:"created"`   // UTC
	Modified   time.Time `db:"modified" json:"modified"` // UTC
}

type ItemFilter struct {
	Status Status
	Limit  int
}

type DeleteFilter struct {
	Status         Status
	ModifiedBefore time.Time
}

// Template is an email template editable by staff.
// Subject and body may use the {{title}}, {{name}} and {{link}} placeholders.
type Template struct {
	ID      int    `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Subject string `db:"subject" json:"subject"`
	Body    string `db:"body" json:"body"`
}

type Vars struct {
	Title string
	Name  string
	Link  string
}

// Render substitutes the placeholders in the subject and the body.
func (t Template) Render(v Vars) (subject, body string) {
	r := strings.NewReplacer("{{title}}", v.Title, "{{name}}", v.Name, "{{link}}", v.Link)
	return r.Replace(t.Subject), r.Replace(t.Body)
}

type TemplateFilter struct {
	ID   int
	Name string
}

// defaultTemplates are used when a template was not customized in the database.
var defaultTemplates = map[string]Template{
	TemplateSubmissionReceived: {
		Name:    TemplateSubmissionReceived,
		Subject: "We received your submission: {{title}}",
		Body: "Dear {{name}},\n\n" +
			"Thank you for contributing \"{{title}}\" to Open Education Week. " +
			"Our team will review it shortly.\n\n" +
			"You can edit your submission here: {{link}}\n\n" +
			"The Open Education Week team",
	},
	TemplateFeedbackRequested: {
		Name:    TemplateFeedbackRequested,
		Subject: "Feedback requested on your submission: {{title}}",
		Body: "Dear {{name}},\n\n" +
			"We reviewed \"{{title}}\" and need a few changes before we can publish it.\n\n" +
			"Please update your submission here: {{link}}\n\n" +
			"The Open Education Week team",
	},
	TemplateAccepted: {
		Name:    TemplateAccepted,
		Subject: "Your submission was accepted: {{title}}",
		Body: "Dear {{name}},\n\n" +
			"Great news! \"{{title}}\" is now part of Open Education Week: {{link}}\n\n" +
			"Thank you for your contribution.\n\n" +
			"The Open Education Week team",
	},
	TemplateAccountCreated: {
		Name:    TemplateAccountCreated,
		Subject: "Your Open Education Week account",
		Body: "Dear {{name}},\n\n" +
			"An account was created for you so you can follow your submissions.\n\n" +
			"Log in with this link: {{link}}\n\n" +
			"The Open Education Week team",
	},
}

func DefaultTemplate(name string) (Template, bool) {
	t, ok := defaultTemplates[name]
	return t, ok
}
