// Package testutil provides the database and fixtures shared by the tests.
package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/geo"
	"github.com/ocwc/oeweek2022/core/page"
	"github.com/ocwc/oeweek2022/core/resource"
	"github.com/ocwc/oeweek2022/core/user"
	"github.com/ocwc/oeweek2022/storage/database"
)

// PrepareDB returns a migrated in-memory SQLite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenDSN(database.EngineSQLite, "file:"+uuid.New().String()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)
	resource.RegisterValidators(validate, translator, geo.Default())
	page.RegisterValidators(validate, translator)
	return validate, translator
}

// NewConfig returns the configuration used by the tests. The contribution period is open in March 2023.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                "TEST",
		TestMode:           true,
		AppName:            "OE Week",
		SecretKey:          "secret",
		FavoritesKey:       []byte("0123456789abcdef0123456789abcdef"),
		DefaultFromEmail:   mail.Address{Name: "OE Week", Address: "info@openeducationweek.org"},
		SubmissionsCCEmail: mail.Address{Address: "cc@oeglobal.org"},
		SiteURL:            "http://localhost:8000",
		PublicSiteURL:      "http://www.openeducationweek.org",
		MediaURL:           "/media/",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			PasswordResetTimeoutDelta: 24 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: database.EngineSQLite},
		Week: core.Week{
			Year:         2023,
			Start:        time.Date(2023, 3, 6, 0, 0, 0, 0, time.UTC),
			End:          time.Date(2023, 3, 10, 23, 59, 59, 0, time.UTC),
			CFPOpen:      time.Date(2023, 1, 16, 0, 0, 0, 0, time.UTC),
			FutureStart:  time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			MaxFavorites: 32,
		},
		Screenshots: core.ScreenshotConfig{MaxWidth: 1168, MaxHeight: 1752, LoadTimeout: time.Second, Workers: 1},
		Mailing:     core.MailingConfig{BatchSize: 10, FlushInterval: time.Minute, CleanAge: 7 * 24 * time.Hour},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateResource stores r, filling the required bookkeeping fields in.
func CreateResource(t *testing.T, repo resource.Repository, r resource.Resource) resource.Resource {
	t.Helper()
	if r.UUID == "" {
		r.UUID = uuid.New().String()
	}
	if r.Slug == "" {
		r.Slug = core.Slugify(r.Title) + "-" + r.UUID[:8]
	}
	if r.PostType == "" {
		r.PostType = resource.PostTypeEvent
	}
	if r.PostStatus == "" {
		r.PostStatus = resource.PostStatusDraft
	}
	if r.Status == "" {
		r.Status = resource.StatusNew
	}
	if r.Year == 0 {
		r.Year = 2023
	}
	now := time.Now().UTC()
	if r.Created.IsZero() {
		r.Created = now
	}
	if r.Modified.IsZero() {
		r.Modified = now
	}
	r, err := repo.CreateResource(context.Background(), r)
	if err != nil {
		t.Fatalf("CreateResource() failed: %v", err)
	}
	return r
}

// Published marks r as approved and published.
func Published(r resource.Resource) resource.Resource {
	r.Status = resource.StatusApproved
	r.PostStatus = resource.PostStatusPublish
	return r
}
