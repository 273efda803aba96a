package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/user"
)

const errAdminReviews = "admins always review submissions"

type userApi struct {
	svc      user.ServiceInterface
	auth     *Auth
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *Auth, svc user.ServiceInterface, validate *validator.Validate) {
	api := userApi{
		svc:      svc,
		auth:     auth,
		validate: validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.GET("/token-login", api.tokenLogin)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints, for submitters and reviewers alike
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.PUT("/me", api.updateMe)

	// reviewer management
	rg := ag.Group("/reviewers", adminMiddleware())
	rg.GET("", api.reviewers)
	rg.PUT("/:id", api.setReviewer)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// tokenLogin exchanges the one-time link emailed to contributors for a JWT.
func (api *userApi) tokenLogin(ctx echo.Context) error {
	usr, err := api.svc.LoginWithToken(ctx.Request().Context(), ctx.QueryParam("uid"), ctx.QueryParam("token"))
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidToken {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "logging in with token")
	}
	token, err := api.auth.GenerateToken(api.auth.UserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		if errors.Cause(err) == user.ErrInvalidToken {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// updateMe lets any account holder change their name or password.
func (api *userApi) updateMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data UpdateMeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMeRequest")
	}
	uu := user.UpdateUser{Name: data.Name, Password: data.Password, PasswordConfirm: data.PasswordConfirm}
	if err = uu.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, uu)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// reviewers lists the accounts allowed to review submissions.
func (api *userApi) reviewers(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Roles = []string{user.RoleStaff, user.RoleAdmin}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), &filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying reviewers")
	}
	return ctx.JSON(http.StatusOK, users)
}

// setReviewer grants or revokes the staff role of a submitter account.
func (api *userApi) setReviewer(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}

	var data SetReviewerRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetReviewerRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if usr.IsAdmin() {
		return core.NewValidationError(nil, core.FieldError{Field: "reviewer", Error: errAdminReviews})
	}

	roles := []string{}
	if *data.Reviewer {
		roles = append(roles, user.StaffRoles...)
	}
	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, user.UpdateUser{
		Name:     usr.Name,
		Username: usr.Username,
		Email:    usr.Email,
		Roles:    roles,
	})
	if err != nil {
		return errors.Wrap(err, "updating roles")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	UpdateMeRequest struct {
		Name            string `json:"name"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}

	SetReviewerRequest struct {
		Reviewer *bool `json:"reviewer" validate:"required"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
