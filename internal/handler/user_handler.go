package handler

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"rsedu/internal/dto"
	"rsedu/internal/errors"
	"rsedu/internal/service"
	"rsedu/internal/validation"
)

// UserHandler bundles the user CRUD endpoints.
type UserHandler struct {
	svc service.UserService
	log *slog.Logger
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, log *slog.Logger) *UserHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{svc: svc, log: log}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} dto.UsersListResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return h.storageError(c, "list users", err, errors.CodeInternal)
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		if httpErr := errors.MapErrorToHTTP(err); httpErr.Code == errors.CodeUserNotFound {
			return notFound(c, httpErr)
		}
		return h.storageError(c, "get user", err, errors.CodeInternal)
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param user body dto.CreateUserRequest true "User payload"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req dto.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		httpErr := errors.MapErrorToHTTP(errors.ErrInvalidBody)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	if err := c.Validate(&req); err != nil {
		var verr *validation.Error
		if stderrors.As(err, &verr) {
			h.log.InfoContext(c.Request().Context(), "user payload rejected", slog.String("reason", verr.Error()))
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: verr.Error(),
				Code:  errors.CodeValidation,
			})
		}
		return h.storageError(c, "validate user payload", err, errors.CodeInternal)
	}

	user, err := h.svc.CreateUser(c.Request().Context(), req)
	if err != nil {
		return h.storageError(c, "create user", err, errors.CodeUserCreateFailed)
	}
	return c.JSON(http.StatusCreated, user)
}

// DeleteUser godoc
// @Summary Delete user
// @Tags users
// @Param id path int true "User ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	deleted, err := h.svc.DeleteUser(c.Request().Context(), id)
	if err != nil {
		return h.storageError(c, "delete user", err, errors.CodeInternal)
	}
	if !deleted {
		return notFound(c, errors.MapErrorToHTTP(errors.ErrUserNotFound))
	}
	return c.NoContent(http.StatusNoContent)
}

// storageError logs the full cause and answers with a generic 500 body.
func (h *UserHandler) storageError(c echo.Context, op string, err error, code string) error {
	h.log.ErrorContext(c.Request().Context(), op+" failed",
		slog.String("error", err.Error()),
		slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
	)

	msg := "internal server error"
	if code == errors.CodeUserCreateFailed {
		msg = "failed to create user"
	}
	return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{Error: msg, Code: code})
}

// notFound answers with the mapped status and an empty body; an absent user
// is a normal outcome, not an error payload.
func notFound(c echo.Context, httpErr *errors.HTTPError) error {
	return c.NoContent(httpErr.StatusCode)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(errors.ErrInvalidID)
		return 0, echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return uint(id), nil
}
