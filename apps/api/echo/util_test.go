package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	echoapi "github.com/ocwc/oeweek2022/apps/api/echo"
	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/category"
	"github.com/ocwc/oeweek2022/core/favorites"
	"github.com/ocwc/oeweek2022/core/geo"
	"github.com/ocwc/oeweek2022/core/mailing"
	"github.com/ocwc/oeweek2022/core/page"
	"github.com/ocwc/oeweek2022/core/resource"
	"github.com/ocwc/oeweek2022/core/user"
	emailsvc "github.com/ocwc/oeweek2022/services/email"
	logsvc "github.com/ocwc/oeweek2022/services/logger"
	sqlxrepos "github.com/ocwc/oeweek2022/storage/database/sqlx"
	testutil "github.com/ocwc/oeweek2022/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testEnv struct {
	server  *echoapi.Server
	conf    *core.Config
	auth    *echoapi.Auth
	resRepo resource.Repository
	usrRepo user.Repository
	users   *user.Service
	pages   *page.Service
	queue   *mailing.Queue
	codec   *favorites.Codec
}

// openWeek moves the edition so that contributions are accepted now. The week starts on a Monday.
func openWeek(conf *core.Config) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 10)
	for start.Weekday() != time.Monday {
		start = start.AddDate(0, 0, 1)
	}
	conf.Week.Year = start.Year()
	conf.Week.CFPOpen = now.AddDate(0, 0, -30)
	conf.Week.Start = start
	conf.Week.End = start.AddDate(0, 0, 5).Add(-time.Second)
	conf.Week.FutureStart = start.AddDate(1, 0, 0)
}

// closedWeek moves the edition to last year.
func closedWeek(conf *core.Config) {
	openWeek(conf)
	conf.Week.CFPOpen = conf.Week.CFPOpen.AddDate(-1, 0, 0)
	conf.Week.Start = conf.Week.Start.AddDate(-1, 0, 0)
	conf.Week.End = conf.Week.End.AddDate(-1, 0, 0)
	conf.Week.FutureStart = conf.Week.FutureStart.AddDate(-1, 0, 0)
}

func setup(t *testing.T, configure ...func(*core.Config)) *testEnv {
	t.Helper()
	db := testutil.PrepareDB(t)
	conf := testutil.NewConfig()
	openWeek(conf)
	for _, fn := range configure {
		fn(conf)
	}
	validate, translator := testutil.NewValidator()
	logger := logsvc.NewNopLogger()

	// set up repos & services
	mailRepo := sqlxrepos.NewMailingRepository(db)
	queue := mailing.NewQueue(mailRepo, emailsvc.NewConsoleServiceMock(conf), logger, conf)
	templates := mailing.NewTemplates(mailRepo)
	usrRepo := sqlxrepos.NewUserRepository(db)
	users := user.NewService(usrRepo, queue, logger, conf)
	resRepo := sqlxrepos.NewResourceRepository(db)
	resources := resource.NewService(resource.ServiceDeps{
		Repo:      resRepo,
		Mailer:    queue,
		Templates: templates,
		Accounts:  users,
		Validate:  validate,
		Logger:    logger,
		Conf:      conf,
	})
	pages := page.NewService(sqlxrepos.NewPageRepository(db), validate)
	codec, err := favorites.NewCodec(conf.FavoritesKey, conf.Week.MaxFavorites)
	require.NoError(t, err)

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Resources:      resources,
		Users:          users,
		Pages:          pages,
		Categories:     category.NewService(sqlxrepos.NewCategoryRepository(db)),
		Templates:      templates,
		Favorites:      codec,
		Places:         geo.Default(),
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = server.Close() })

	return &testEnv{
		server:  server,
		conf:    conf,
		auth:    echoapi.NewAuth(conf),
		resRepo: resRepo,
		usrRepo: usrRepo,
		users:   users,
		pages:   pages,
		queue:   queue,
		codec:   codec,
	}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) unsent(t *testing.T) []mailing.Item {
	t.Helper()
	items, err := env.queue.List(context.Background(), mailing.StatusUnsent)
	require.NoError(t, err)
	return items
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func newFormRequest(method, path string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := env.auth.GenerateToken(env.auth.UserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (env *testEnv) createUser(t *testing.T, uname string, roles ...string) user.User {
	t.Helper()
	return testutil.CreateUser(t, env.usrRepo, "User "+uname, uname, uname+"@example.org", "Pwd.1234", roles, true)
}

func (env *testEnv) createResource(t *testing.T, r resource.Resource) resource.Resource {
	t.Helper()
	if r.Year == 0 {
		r.Year = env.conf.Week.Year
	}
	return testutil.CreateResource(t, env.resRepo, r)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	var got, want interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode the response %q: %v", rec.Body.String(), err)
	}
	if err := json.Unmarshal(tt.wantData, &want); err != nil {
		t.Fatalf("failed to decode wantData: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, env.do(newAuthRequest(method, tt.path, tt.token, tt.body)))
		})
	}
}

func publishedEvent(title string, eventTime time.Time) resource.Resource {
	return testutil.Published(resource.Resource{
		PostType:            resource.PostTypeEvent,
		Title:               title,
		Firstname:           "Jane",
		Lastname:            "Doe",
		Email:               "jane@example.org",
		Institution:         "Open University",
		Content:             "<p>Join us</p>",
		Link:                "https://open.example.org",
		City:                "Bratislava",
		Country:             "Slovakia",
		EventType:           "local",
		EventTime:           null.TimeFrom(eventTime),
		EventSourceTimezone: "Europe/Bratislava",
	})
}
