package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/ocwc/oeweek2022/apps/api/echo"
	"github.com/ocwc/oeweek2022/core/user"
	testutil "github.com/ocwc/oeweek2022/tests"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	env.createUser(t, "staff", user.RoleStaff)
	testutil.CreateUser(t, env.usrRepo, "Naughty", "naughty", "naughty@example.org", "Pwd.1234", nil, false)

	authFailed := marshalObj(t, httpErr{Error: "authentication failed"})
	runHTTPTests(t, env, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/api/users/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/users/login",
			body: []byte(`{"username": "staff", "password": "lol"}`), wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/api/users/login",
			body: []byte(`{"username": "john", "password": "Pwd.1234"}`), wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/api/users/login",
			body: []byte(`{"username": "naughty", "password": "Pwd.1234"}`), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	for _, uname := range []string{"staff", "STAFF", "staff@example.org"} {
		rec := env.do(newRequest(http.MethodPost, "/api/users/login", marshalObj(t, echoapi.LoginRequest{Username: uname, Password: "Pwd.1234"})))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	}
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)
	staff := env.createUser(t, "staff", user.RoleStaff)

	rec := env.do(newRequest(http.MethodGet, "/api/users/me"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)}, rec)

	rec = env.do(newAuthRequest(http.MethodGet, "/api/users/me", env.getToken(t, staff)))
	require.Equal(t, http.StatusOK, rec.Code)
	var got user.User
	decode(t, rec, &got)
	assert.Equal(t, staff.ID, got.ID)
	assert.Equal(t, "staff", got.Username)

	rec = env.do(newAuthRequest(http.MethodPost, "/api/users/token-refresh", env.getToken(t, staff)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}

func Test_userApi_tokenLogin(t *testing.T) {
	env := setup(t)
	jane := env.createUser(t, "jane")

	link := env.users.LoginURL(jane)
	require.True(t, strings.HasPrefix(link, env.conf.SiteURL))
	path := strings.TrimPrefix(link, env.conf.SiteURL)

	rec := env.do(newRequest(http.MethodGet, path))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	// the link is single use
	rec = env.do(newRequest(http.MethodGet, path))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(newRequest(http.MethodGet, "/api/users/token-login?uid=lol&token=lol"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_userApi_updateMe(t *testing.T) {
	env := setup(t)
	jane := env.createUser(t, "jane")
	token := env.getToken(t, jane)

	rec := env.do(newRequest(http.MethodPut, "/api/users/me", []byte(`{"name": "Jane Doe"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(newAuthRequest(http.MethodPut, "/api/users/me", token, []byte(`{"password": "short"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	body := []byte(`{"name": "Jane Doe", "password": "New.Pwd.5678", "password_confirm": "New.Pwd.5678", "roles": ["admin:"]}`)
	rec = env.do(newAuthRequest(http.MethodPut, "/api/users/me", token, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got user.User
	decode(t, rec, &got)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, jane.Username, got.Username)
	assert.Empty(t, got.Roles, "roles cannot be set on oneself")

	rec = env.do(newRequest(http.MethodPost, "/api/users/login", marshalObj(t, echoapi.LoginRequest{Username: "jane", Password: "New.Pwd.5678"})))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_userApi_reviewers(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "admin", user.RoleAdmin)
	staff := env.createUser(t, "staff", user.RoleStaff)
	jane := env.createUser(t, "jane")
	adminToken := env.getToken(t, admin)

	runHTTPTests(t, env, []httpTest{
		{
			name: "staff cannot list reviewers", path: "/api/users/reviewers", token: env.getToken(t, staff),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "submitters cannot promote themselves", method: http.MethodPut, path: "/api/users/reviewers/" + jane.ID,
			token: env.getToken(t, jane), body: []byte(`{"reviewer": true}`), wantCode: http.StatusForbidden,
		},
		{
			name: "missing flag", method: http.MethodPut, path: "/api/users/reviewers/" + jane.ID, token: adminToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"reviewer": "this field is required"}`),
		},
		{
			name: "unknown user", method: http.MethodPut, path: "/api/users/reviewers/lol", token: adminToken,
			body: []byte(`{"reviewer": true}`), wantCode: http.StatusNotFound,
		},
		{
			name: "admins stay reviewers", method: http.MethodPut, path: "/api/users/reviewers/" + admin.ID, token: adminToken,
			body: []byte(`{"reviewer": false}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"reviewer": "admins always review submissions"}`),
		},
	})

	reviewers := func() []string {
		rec := env.do(newAuthRequest(http.MethodGet, "/api/users/reviewers?ordering=username", adminToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var users []user.User
		decode(t, rec, &users)
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.Username)
		}
		return names
	}
	assert.Equal(t, []string{"admin", "staff"}, reviewers())

	rec := env.do(newAuthRequest(http.MethodPut, "/api/users/reviewers/"+jane.ID, adminToken, []byte(`{"reviewer": true}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got user.User
	decode(t, rec, &got)
	assert.Equal(t, jane.Name, got.Name)
	assert.Equal(t, jane.Email, got.Email)
	assert.True(t, got.IsStaff())
	assert.Equal(t, []string{"admin", "jane", "staff"}, reviewers())

	rec = env.do(newAuthRequest(http.MethodPut, "/api/users/reviewers/"+staff.ID, adminToken, []byte(`{"reviewer": false}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var demoted user.User
	decode(t, rec, &demoted)
	assert.True(t, demoted.IsContributor())
	assert.Equal(t, []string{"admin", "jane"}, reviewers())
}
