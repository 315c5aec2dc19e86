// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	deliverycontext "acmauth/internal/delivery/context"
	"acmauth/internal/delivery/http/response"
	"acmauth/internal/domain/entity"
	domainerrors "acmauth/internal/domain/errors"
	"acmauth/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// sessionScheme prefixes session tokens handed out by login.
const sessionScheme = "JWT "

type registerRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	FirstName      string `json:"firstName" validate:"max=100"`
	LastName       string `json:"lastName" validate:"max=100"`
	Classification string `json:"classification" validate:"max=50"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// resetRequest is not validated here: a mismatch must be reported before anything else.
type resetRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type verifyRequest struct {
	Password string `json:"password" validate:"required"`
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"omitempty,email"`
	Message string `json:"message" validate:"required,max=5000"`
}

type userResponse struct {
	User *entity.PublicAccount `json:"user"`
}

type registerResponse struct {
	User             *entity.PublicAccount `json:"user"`
	NotificationSent bool                  `json:"notificationSent"`
}

type loginResponse struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
	User      *entity.PublicAccount `json:"user"`
}

type notificationResponse struct {
	NotificationSent bool `json:"notificationSent"`
}

type tokenResponse struct {
	Valid bool `json:"valid"`
}

// AccountHandler holds dependencies for account-related handlers.
type AccountHandler struct {
	uc     usecase.AccountUsecase
	logger *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		uc:     uc,
		logger: logger,
	}
}

// Register handles the account registration request.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Profile: entity.Profile{
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Classification: req.Classification,
		},
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, registerResponse{
		User:             output.Account.Sanitized(),
		NotificationSent: output.NotifyErr == nil,
	}, "Account registered, please check your email to verify it")
}

// ConfirmToken handles the email confirmation link.
func (h *AccountHandler) ConfirmToken(c echo.Context) error {
	account, err := h.uc.ConfirmToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, userResponse{User: account.Sanitized()}, "Account verified, please login")
}

// Login handles the login request.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, loginResponse{
		Token:     sessionScheme + output.Token,
		ExpiresAt: output.ExpiresAt,
		User:      output.User,
	}, "Login successful")
}

// ForgotLogin issues a reset link for the given email.
func (h *AccountHandler) ForgotLogin(c echo.Context) error {
	var req forgotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.ForgotLogin(c.Request().Context(), req.Email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, notificationResponse{
		NotificationSent: output.NotifyErr == nil,
	}, "An email has been sent with a reset link")
}

// ResetToken checks whether a reset link is still usable.
func (h *AccountHandler) ResetToken(c echo.Context) error {
	if _, err := h.uc.ResetToken(c.Request().Context(), c.Param("token")); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, tokenResponse{Valid: true}, "Reset token is valid")
}

// Reset redeems a reset link for a new password.
func (h *AccountHandler) Reset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrInvalidInput.WithDetails("malformed request body")
	}

	output, err := h.uc.Reset(c.Request().Context(), &usecase.ResetInput{
		Token:           c.Param("token"),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, notificationResponse{
		NotificationSent: output.NotifyErr == nil,
	}, "Your password has been changed")
}

// VerifyUser sets a new password through a reset token.
func (h *AccountHandler) VerifyUser(c echo.Context) error {
	var req verifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.uc.VerifyUser(c.Request().Context(), &usecase.VerifyUserInput{
		Token:    c.Param("token"),
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, userResponse{User: account.Sanitized()}, "Account updated")
}

// GetProfile returns the account of the authenticated session.
func (h *AccountHandler) GetProfile(c echo.Context) error {
	session, ok := deliverycontext.GetSession(c)
	if !ok {
		return domainerrors.ErrInvalidToken.WrapMessage("no authenticated session")
	}

	profile, err := h.uc.GetProfile(c.Request().Context(), session.Email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, userResponse{User: profile}, "")
}

// ContactUs forwards a contact-form message to the chapter's inbox.
func (h *AccountHandler) ContactUs(c echo.Context) error {
	var req contactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.uc.ContactUs(c.Request().Context(), &usecase.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Thanks, your message has been sent")
}

// bindAndValidate decodes the body into req and runs the echo validator on it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domainerrors.ErrInvalidInput.WithDetails("malformed request body")
	}

	return c.Validate(req)
}
