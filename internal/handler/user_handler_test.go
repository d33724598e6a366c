package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rsedu/internal/dto"
	apperrors "rsedu/internal/errors"
	"rsedu/internal/service"
	"rsedu/internal/validation"
)

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context) (*dto.UsersListResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UsersListResponse), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id uint) (*dto.UserResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// fakeUserService keeps users in memory so multi-request flows can be exercised.
type fakeUserService struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]dto.UserResponse
}

func newFakeUserService() *fakeUserService {
	return &fakeUserService{nextID: 1, users: map[uint]dto.UserResponse{}}
}

func (f *fakeUserService) ListUsers(context.Context) (*dto.UsersListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := dto.UsersListResponse{Users: []dto.UserResponse{}}
	for id := uint(1); id < f.nextID; id++ {
		if u, ok := f.users[id]; ok {
			out.Users = append(out.Users, u)
		}
	}
	out.Total = len(out.Users)
	return &out, nil
}

func (f *fakeUserService) GetUser(_ context.Context, id uint) (*dto.UserResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeUserService) CreateUser(_ context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := dto.UserResponse{
		ID: f.nextID, Email: req.Email, FullName: req.FullName, Role: req.Role,
		IsActive: true, CreatedAt: "2025-12-16 18:28:46",
	}
	f.users[u.ID] = u
	f.nextID++
	return &u, nil
}

func (f *fakeUserService) DeleteUser(_ context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return false, nil
	}
	delete(f.users, id)
	return true, nil
}

func newTestServer(svc service.UserService) *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()

	h := NewUserHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	api := e.Group("/api/v1")
	api.GET("/users", h.ListUsers)
	api.GET("/users/:id", h.GetUser)
	api.POST("/users", h.CreateUser)
	api.DELETE("/users/:id", h.DeleteUser)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func ann() *dto.UserResponse {
	return &dto.UserResponse{
		ID: 1, Email: "a@b.com", FullName: "Ann Lee", Role: "student",
		IsActive: true, CreatedAt: "2025-12-16 18:28:46",
	}
}

func TestUserHandler_ListUsers(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("ListUsers", mock.Anything).Return(&dto.UsersListResponse{Users: []dto.UserResponse{*ann()}, Total: 1}, nil)

		rec := do(newTestServer(svc), http.MethodGet, "/api/v1/users", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"users":[{"id":1,"email":"a@b.com","full_name":"Ann Lee","role":"student","is_active":true,"created_at":"2025-12-16 18:28:46"}],"total":1}`, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("storage error is generic", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("ListUsers", mock.Anything).Return(nil, errors.New("dial tcp 10.0.0.3:3306: i/o timeout"))

		rec := do(newTestServer(svc), http.MethodGet, "/api/v1/users", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, apperrors.ErrorResponse{Error: "internal server error", Code: apperrors.CodeInternal}, decodeError(t, rec))
		assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	})
}

func TestUserHandler_GetUser(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setupMock  func(*MockUserService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "found",
			path: "/api/v1/users/1",
			setupMock: func(m *MockUserService) {
				m.On("GetUser", mock.Anything, uint(1)).Return(ann(), nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":1,"email":"a@b.com","full_name":"Ann Lee","role":"student","is_active":true,"created_at":"2025-12-16 18:28:46"}`,
		},
		{
			name: "not found",
			path: "/api/v1/users/99999",
			setupMock: func(m *MockUserService) {
				m.On("GetUser", mock.Anything, uint(99999)).Return(nil, apperrors.ErrUserNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "wrapped not found keeps an empty body",
			path: "/api/v1/users/3",
			setupMock: func(m *MockUserService) {
				m.On("GetUser", mock.Anything, uint(3)).Return(nil, fmt.Errorf("lookup user 3: %w", apperrors.ErrUserNotFound))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "storage error",
			path: "/api/v1/users/2",
			setupMock: func(m *MockUserService) {
				m.On("GetUser", mock.Anything, uint(2)).Return(nil, errors.New("find user 2: bad connection"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error","code":"INTERNAL_ERROR"}`,
		},
		{
			name:       "malformed id never reaches the service",
			path:       "/api/v1/users/abc",
			setupMock:  func(*MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid id","code":"INVALID_ID"}`,
		},
		{
			name:       "negative id",
			path:       "/api/v1/users/-4",
			setupMock:  func(*MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid id","code":"INVALID_ID"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			tt.setupMock(svc)

			rec := do(newTestServer(svc), http.MethodGet, tt.path, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Empty(t, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestUserHandler_CreateUser(t *testing.T) {
	valid := dto.CreateUserRequest{Email: "a@b.com", Password: "password123", FullName: "Ann Lee", Role: "student"}

	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockUserService)
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name: "created",
			body: `{"email":"a@b.com","password":"password123","full_name":"Ann Lee","role":"student"}`,
			setupMock: func(m *MockUserService) {
				m.On("CreateUser", mock.Anything, valid).Return(ann(), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid email",
			body:       `{"email":"not-an-email","password":"password123","full_name":"Ann Lee","role":"student"}`,
			setupMock:  func(*MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeValidation,
			wantError:  "Validation error: email: Invalid email address",
		},
		{
			name:       "short password",
			body:       `{"email":"a@b.com","password":"short","full_name":"Ann Lee","role":"student"}`,
			setupMock:  func(*MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeValidation,
			wantError:  "Validation error: password: Password must be at least 8 characters",
		},
		{
			name:       "short name and missing role",
			body:       `{"email":"a@b.com","password":"password123","full_name":"A"}`,
			setupMock:  func(*MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeValidation,
			wantError:  "Validation error: full_name: Full name must be at least 2 characters; role: Role is required",
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			setupMock:  func(*MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidBody,
			wantError:  "invalid request body",
		},
		{
			name: "storage failure",
			body: `{"email":"a@b.com","password":"password123","full_name":"Ann Lee","role":"student"}`,
			setupMock: func(m *MockUserService) {
				m.On("CreateUser", mock.Anything, valid).Return(nil, errors.New("create user: Error 1062: Duplicate entry"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.CodeUserCreateFailed,
			wantError:  "failed to create user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			tt.setupMock(svc)

			rec := do(newTestServer(svc), http.MethodPost, "/api/v1/users", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "password123")
			if tt.wantCode != "" {
				assert.Equal(t, apperrors.ErrorResponse{Error: tt.wantError, Code: tt.wantCode}, decodeError(t, rec))
			}
			if tt.wantStatus == http.StatusBadRequest {
				svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestUserHandler_DeleteUser(t *testing.T) {
	tests := []struct {
		name       string
		deleted    bool
		err        error
		wantStatus int
	}{
		{name: "removed", deleted: true, wantStatus: http.StatusNoContent},
		{name: "absent", deleted: false, wantStatus: http.StatusNotFound},
		{name: "storage error", err: errors.New("lock wait timeout"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			svc.On("DeleteUser", mock.Anything, uint(7)).Return(tt.deleted, tt.err)

			rec := do(newTestServer(svc), http.MethodDelete, "/api/v1/users/7", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestUserHandler_RoundTrip(t *testing.T) {
	e := newTestServer(newFakeUserService())

	rec := do(e, http.MethodGet, "/api/v1/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[],"total":0}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/v1/users", `{"email":"a@b.com","password":"longenough1","full_name":"Ann Lee","role":"student"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created dto.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(e, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched dto.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, "a@b.com", fetched.Email)
	assert.Equal(t, "Ann Lee", fetched.FullName)
	assert.Equal(t, "student", fetched.Role)
	assert.True(t, fetched.IsActive)

	for i := 0; i < 2; i++ {
		rec = do(e, http.MethodPost, "/api/v1/users", fmt.Sprintf(`{"email":"u%d@b.com","password":"longenough1","full_name":"User %d","role":"teacher"}`, i, i))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/v1/users", "")
	var list dto.UsersListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)
	assert.Len(t, list.Users, 3)

	rec = do(e, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", created.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// deleting an absent id stays a 404 on every attempt
	for i := 0; i < 2; i++ {
		rec = do(e, http.MethodDelete, "/api/v1/users/99999", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec = do(e, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
