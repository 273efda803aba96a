package user_test

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/mailing"
	"github.com/ocwc/oeweek2022/core/user"
	logsvc "github.com/ocwc/oeweek2022/services/logger"
	sqlxrepos "github.com/ocwc/oeweek2022/storage/database/sqlx"
	testutil "github.com/ocwc/oeweek2022/tests"
)

var resetLinkRegex = regexp.MustCompile(`/password-reset/([^/\s]+)/([^/\s]+)`)

type mailerMock struct {
	msgs       []*core.EmailMessage
	priorities []int
}

func (m *mailerMock) Enqueue(_ context.Context, msg *core.EmailMessage, priority ...int) (mailing.Item, error) {
	m.msgs = append(m.msgs, msg)
	prio := mailing.PriorityNormal
	if len(priority) > 0 {
		prio = priority[0]
	}
	m.priorities = append(m.priorities, prio)
	return mailing.Item{ID: len(m.msgs)}, nil
}

func newService(t *testing.T) (*user.Service, user.Repository, *mailerMock) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	mailer := &mailerMock{}
	return user.NewService(repo, mailer, logsvc.NewNopLogger(), testutil.NewConfig()), repo, mailer
}

func TestService_Create(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{Name: "Jane", Email: "jane@example.org", Password: "Pass1234!"})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "jane@example.org", usr.Username)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsContributor())
	assert.NoError(t, usr.CheckPassword("Pass1234!"))

	staff, err := svc.Create(ctx, user.NewUser{Name: "Staff", Username: "staffer", Password: "Pass1234!", Roles: []string{user.RoleStaff}})
	require.NoError(t, err)
	assert.True(t, staff.IsStaff())
	assert.False(t, staff.IsAdmin())

	t.Run("uniqueness", func(t *testing.T) {
		err := svc.CheckUniqueness(ctx, "staffer", "other@example.org")
		var vErr *core.ValidationError
		if assert.True(t, errors.As(err, &vErr)) {
			assert.Contains(t, vErr.FieldMap(), "username")
		}

		err = svc.CheckUniqueness(ctx, "someone", "jane@example.org")
		if assert.True(t, errors.As(err, &vErr)) {
			assert.Contains(t, vErr.FieldMap(), "email")
		}

		assert.NoError(t, svc.CheckUniqueness(ctx, "staffer", "", staff))
		assert.NoError(t, svc.CheckUniqueness(ctx, "someone", "other@example.org"))
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := svc.GetByUsernameOrEmail(ctx, " JANE@example.org ")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)

		got, err = svc.GetByUsername(ctx, "Staffer")
		require.NoError(t, err)
		assert.Equal(t, staff.ID, got.ID)

		_, err = svc.GetByID(ctx, "nope")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		users, err := svc.Query(ctx, &user.QueryFilter{Roles: []string{user.RoleStaff}}, nil)
		require.NoError(t, err)
		if assert.Len(t, users, 1) {
			assert.Equal(t, staff.ID, users[0].ID)
		}

		users, err = svc.Query(ctx, &user.QueryFilter{Search: "JAN"}, nil)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("update", func(t *testing.T) {
		inactive := false
		got, err := svc.Update(ctx, usr.ID, user.UpdateUser{Name: "Jane Doe", Username: usr.Username, Email: usr.Email, IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.Name)
		assert.False(t, got.IsActive)
	})
}

func TestService_PasswordReset(t *testing.T) {
	svc, repo, mailer := newService(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Jane", "janedoe", "jane@example.org", "Pass1234!", nil, true)
	testutil.CreateUser(t, repo, "Ghost", "ghost1", "ghost@example.org", "Pass1234!", nil, false)

	assert.Equal(t, user.ErrNotFound, errors.Cause(svc.RequestPasswordReset(ctx, "nobody@example.org")))
	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "ghost@example.org"))

	require.NoError(t, svc.RequestPasswordReset(ctx, "Jane@example.org"))
	require.Len(t, mailer.msgs, 1)
	assert.Equal(t, mailing.PriorityHigh, mailer.priorities[0])
	assert.Equal(t, "jane@example.org", mailer.msgs[0].To[0].Address)

	m := resetLinkRegex.FindStringSubmatch(mailer.msgs[0].TextContent)
	require.Len(t, m, 3)
	uid, token := m[1], m[2]

	_, err := svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "bad-token", Password: "NewPass1234!"})
	assert.Equal(t, user.ErrInvalidToken, err)

	got, err := svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "NewPass1234!"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("NewPass1234!"))

	// the password changed: the token is spent
	_, err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "Other1234!"})
	assert.Equal(t, user.ErrInvalidToken, err)
}

func TestService_Contributor(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	usr, pwd, err := svc.EnsureContributor(ctx, " Jane@Example.org", " Jane Doe ")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.org", usr.Email)
	assert.Equal(t, "jane@example.org", usr.Username)
	assert.Equal(t, "Jane Doe", usr.Name)
	assert.NotEmpty(t, pwd)
	assert.NoError(t, usr.CheckPassword(pwd))

	again, pwd2, err := svc.EnsureContributor(ctx, "jane@example.org", "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, again.ID)
	assert.Equal(t, "Jane Doe", again.Name)
	assert.NotEqual(t, pwd, pwd2)

	link, err := url.Parse(svc.LoginURL(again))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.String(), "http://localhost:8000/api/users/token-login?"))
	uid, token := link.Query().Get("uid"), link.Query().Get("token")

	loggedIn, err := svc.LoginWithToken(ctx, uid, token)
	require.NoError(t, err)
	assert.True(t, loggedIn.LastLogin.Valid)

	// single use
	_, err = svc.LoginWithToken(ctx, uid, token)
	assert.Equal(t, user.ErrInvalidToken, err)

	_, err = svc.LoginWithToken(ctx, "!!", token)
	assert.Equal(t, user.ErrInvalidToken, err)
}
