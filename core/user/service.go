package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/mailing"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUserExists     = errors.New("a user with this username or email already exists")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrInvalidToken   = errors.New("invalid or expired token")

	randRead = rand.Read // mockable
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	// Mailer queues outgoing emails.
	Mailer interface {
		Enqueue(ctx context.Context, msg *core.EmailMessage, priority ...int) (mailing.Item, error)
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) (User, error)
		EnsureContributor(ctx context.Context, email, name string) (User, string, error)
		LoginURL(usr User) string
		LoginWithToken(ctx context.Context, uid, token string) (User, error)
	}

	Service struct {
		repo    Repository
		mailer  Mailer
		logger  core.Logger
		tokens  tokenGenerator
		appName string
		siteURL string
		from    mail.Address
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository, mailer Mailer, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		mailer: mailer,
		logger: logger,
		tokens: tokenGenerator{
			secret:  []byte(conf.SecretKey),
			timeout: conf.Server.PasswordResetTimeoutDelta,
		},
		appName: conf.AppName,
		siteURL: conf.SiteURL,
		from:    conf.DefaultFromEmail,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if nu.Username == "" {
		nu.Username = nu.Email
	}
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset queues a password reset email for the active user with this email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	link := fmt.Sprintf("%s/password-reset/%s/%s", svc.siteURL, EncodeUID(usr), svc.tokens.makeToken(usr))
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: fmt.Sprintf("Password reset on %s", svc.appName),
		TextContent: fmt.Sprintf(
			"You're receiving this email because you requested a password reset for your user account at %s.\n\n"+
				"Please go to the following page and choose a new password:\n\n%s\n\n"+
				"Your username, in case you've forgotten: %s\n\nThanks for using our site!\n\nThe %s team",
			svc.appName, link, usr.Username, svc.appName),
	}
	_, err = svc.mailer.Enqueue(ctx, msg, mailing.PriorityHigh)
	return errors.Wrap(err, "queueing password reset email")
}

func (svc *Service) userFromToken(ctx context.Context, uid, token string) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, ErrInvalidToken
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidToken
		}
		return User{}, err
	}
	if err = svc.tokens.verifyToken(usr, token); err != nil {
		return User{}, ErrInvalidToken
	}
	return usr, nil
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	usr, err := svc.userFromToken(ctx, data.UID, data.Token)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// EnsureContributor finds the user with this email or creates a contributor account.
// Either way, a fresh random password is set and returned.
func (svc *Service) EnsureContributor(ctx context.Context, email, name string) (User, string, error) {
	email = core.CleanString(email, true /* lower */)
	pwd, err := randomPassword()
	if err != nil {
		return User{}, "", errors.Wrap(err, "generating password")
	}

	usr, err := svc.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err = usr.SetPassword(pwd); err != nil {
			return User{}, "", errors.Wrap(err, "setting password")
		}
		usr.UpdatedAt = time.Now().UTC()
		usr, err = svc.repo.UpdateUser(ctx, usr)
		return usr, pwd, err
	case errors.Cause(err) == ErrNotFound:
		now := time.Now().UTC()
		usr = User{
			Name:      core.CleanString(name),
			Username:  email,
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return User{}, "", errors.Wrap(err, "setting password")
		}
		usr, err = svc.repo.CreateUser(ctx, usr)
		return usr, pwd, err
	default:
		return User{}, "", err
	}
}

// LoginURL returns a one-time login link for `usr`.
func (svc *Service) LoginURL(usr User) string {
	q := make(url.Values)
	q.Set("uid", EncodeUID(usr))
	q.Set("token", svc.tokens.makeToken(usr))
	return svc.siteURL + "/api/users/token-login?" + q.Encode()
}

// LoginWithToken checks a login link token and records the login, which invalidates the token.
func (svc *Service) LoginWithToken(ctx context.Context, uid, token string) (User, error) {
	usr, err := svc.userFromToken(ctx, uid, token)
	if err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrInvalidToken
	}
	return svc.SetLastLogin(ctx, usr)
}

func randomPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := randRead(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
