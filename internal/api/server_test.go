package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/api"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/authz"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/config"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/db/dbtest"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/handlers"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/tasks/rate"
)

type testServer struct {
	t   *testing.T
	srv *api.Server
	db  *gorm.DB
}

func newTestServer(t *testing.T, limiter handlers.LoginLimiter) *testServer {
	t.Helper()
	gdb := dbtest.NewSeeded(t)
	return &testServer{t: t, srv: api.NewServer(config.LoadTestConfig(), gdb, limiter), db: gdb}
}

func (ts *testServer) do(method, target, token string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	payload := ""
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		payload = string(raw)
	}
	return ts.doRaw(method, target, token, payload)
}

func (ts *testServer) doRaw(method, target, token, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(email, password string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/login", "", map[string]string{"email": email, "password": password})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.LoginResponse
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(ts.t, resp.Token)
	assert.Equal(ts.t, "Bearer", resp.TokenType)
	return resp.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestViewerAndAdminScenario(t *testing.T) {
	ts := newTestServer(t, nil)
	viewerID := dbtest.UserID(t, ts.db, "viewer@gmail.com")

	viewer := ts.login("viewer@gmail.com", "20042004")

	rec := ts.do(http.MethodGet, "/users", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 3)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(http.MethodPost, "/users", viewer, map[string]string{"name": "X", "email": "x@example.com", "password": "secret123"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "This action is unauthorized.", decodeError(t, rec).Message)

	admin := ts.login("admin@gmail.com", "password123")

	rec = ts.do(http.MethodPost, "/users/"+viewerID+"/assign-role", admin, map[string][]string{"roles": {models.RoleEditor}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Roles assigned successfully"}`, rec.Body.String())

	ok, err := authz.NewEngine(ts.db).HasRole(context.Background(), viewerID, models.RoleEditor)
	require.NoError(t, err)
	assert.True(t, ok)

	rec = ts.do(http.MethodDelete, "/users/"+viewerID+"/remove-role/"+models.RoleAdmin, admin, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user does not have this role", decodeError(t, rec).Message)

	editorID := dbtest.UserID(t, ts.db, "editor@gmail.com")
	rec = ts.do(http.MethodPost, "/users/"+editorID+"/assign-role", admin, map[string][]string{"roles": {models.RoleAdmin}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ok, err = authz.NewEngine(ts.db).HasRole(context.Background(), editorID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeniedBeforeValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	viewer := ts.login("viewer@gmail.com", "20042004")

	rec := ts.do(http.MethodPost, "/users", viewer, map[string]string{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/users/whatever/assign-role", viewer, map[string]string{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAssignRoleValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	viewerID := dbtest.UserID(t, ts.db, "viewer@gmail.com")
	admin := ts.login("admin@gmail.com", "password123")

	rec := ts.do(http.MethodPost, "/users/"+viewerID+"/assign-role", admin, map[string][]string{"roles": {models.RoleEditor, "ghost"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors["roles"], "ghost")

	rec = ts.do(http.MethodPost, "/users/"+viewerID+"/assign-role", admin, map[string]string{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The roles field is required.", decodeError(t, rec).Errors["roles"])

	rec = ts.do(http.MethodPost, "/users/00000000-0000-0000-0000-000000000000/assign-role", admin, map[string][]string{"roles": {models.RoleEditor}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	roles, err := authz.NewEngine(ts.db).RoleNames(context.Background(), viewerID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleViewer}, roles)
}

func TestUserCRUD(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.login("admin@gmail.com", "password123")

	rec := ts.do(http.MethodPost, "/users", admin, map[string]string{"name": "Nodir", "email": "nodir@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Roles, 1)
	assert.Equal(t, models.RoleViewer, created.Roles[0].Name)

	rec = ts.do(http.MethodPost, "/users", admin, map[string]string{"name": "Dup", "email": "nodir@example.com", "password": "secret123"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The email has already been taken.", decodeError(t, rec).Errors["email"])

	rec = ts.do(http.MethodPost, "/users", admin, map[string]string{"name": "Bad", "email": "not-an-email", "password": "123"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := decodeError(t, rec).Errors
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")

	rec = ts.do(http.MethodPut, "/users/"+created.ID, admin, map[string]string{"name": "Nodir B."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Nodir B.", updated.Name)
	assert.Equal(t, "nodir@example.com", updated.Email)

	rec = ts.do(http.MethodPut, "/users/"+created.ID, admin, map[string]string{"name": ""})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors, "name")

	rec = ts.do(http.MethodPut, "/users/"+created.ID, admin, map[string]string{"email": ""})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors, "email")

	rec = ts.do(http.MethodGet, "/users/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nodir B.")

	rec = ts.do(http.MethodDelete, "/users/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User deleted"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/users/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditorMayEditButNotDelete(t *testing.T) {
	ts := newTestServer(t, nil)
	viewerID := dbtest.UserID(t, ts.db, "viewer@gmail.com")
	editor := ts.login("editor@gmail.com", "20042004")

	rec := ts.do(http.MethodPut, "/users/"+viewerID, editor, map[string]string{"name": "Edited"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodDelete, "/users/"+viewerID, editor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRevokeRoleDerivedPermission(t *testing.T) {
	ts := newTestServer(t, nil)
	editorID := dbtest.UserID(t, ts.db, "editor@gmail.com")
	admin := ts.login("admin@gmail.com", "password123")
	target := "/users/" + editorID + "/revoke-permission-to/" + url.PathEscape(models.PermissionEditUser)

	rec := ts.do(http.MethodDelete, target, admin, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user does not have this permission", decodeError(t, rec).Message)

	rec = ts.do(http.MethodPost, "/users/"+editorID+"/give-permission", admin, map[string][]string{"permissions": {models.PermissionEditUser}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodDelete, target, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated.", decodeError(t, rec).Message)

	rec = ts.do(http.MethodGet, "/users", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/login", "", map[string]string{"email": "admin@gmail.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeError(t, rec).Message)

	rec = ts.do(http.MethodPost, "/login", "", map[string]string{"email": "nobody@gmail.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeError(t, rec).Message)

	rec = ts.do(http.MethodPost, "/login", "", map[string]string{"email": "admin"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors, "password")
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login("viewer@gmail.com", "20042004")
	other := ts.login("viewer@gmail.com", "20042004")

	rec := ts.do(http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/users", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/users", other, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "other sessions stay valid")
}

func TestCurrentUser(t *testing.T) {
	ts := newTestServer(t, nil)
	editor := ts.login("editor@gmail.com", "20042004")

	rec := ts.do(http.MethodGet, "/user", editor, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Email                string        `json:"email"`
		Roles                []models.Role `json:"roles"`
		EffectivePermissions []string      `json:"effective_permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "editor@gmail.com", resp.Email)
	require.Len(t, resp.Roles, 1)
	assert.Equal(t, models.RoleEditor, resp.Roles[0].Name)
	assert.Equal(t, []string{models.PermissionEditUser}, resp.EffectivePermissions)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.login("admin@gmail.com", "password123")
	viewer := ts.login("viewer@gmail.com", "20042004")

	rec := ts.do(http.MethodGet, "/roles", viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/permissions", admin, map[string]string{"name": "export users"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/roles", admin, map[string]interface{}{"name": "auditor", "permissions": []string{"export users"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/roles", admin, map[string]interface{}{"name": "auditor"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(http.MethodPost, "/roles/auditor/give-permission", admin, map[string][]string{"permissions": {models.PermissionViewUser}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/roles", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roles []models.Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	require.Len(t, roles, 4)
	assert.Equal(t, "auditor", roles[1].Name)
	assert.Len(t, roles[1].Permissions, 2)

	rec = ts.do(http.MethodDelete, "/roles/auditor/revoke-permission-to/"+url.PathEscape("export users"), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodDelete, "/permissions/"+url.PathEscape("export users"), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/permissions", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var permissions []models.Permission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &permissions))
	assert.Len(t, permissions, 4)

	rec = ts.do(http.MethodDelete, "/roles/auditor", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodDelete, "/roles/auditor", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedBodyIsValidationError(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.doRaw(http.MethodPost, "/login", "", `{"email":`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "The given data was invalid.", decodeError(t, rec).Message)

	admin := ts.login("admin@gmail.com", "password123")
	rec = ts.doRaw(http.MethodPost, "/users", admin, `{"email":`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "EOF")

	viewerID := dbtest.UserID(t, ts.db, "viewer@gmail.com")
	rec = ts.doRaw(http.MethodPost, "/users/"+viewerID+"/assign-role", admin, `{"roles":"admin"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	resp := decodeError(t, rec)
	assert.Equal(t, "The given data was invalid.", resp.Message)
	assert.Equal(t, "The roles field has an invalid type.", resp.Errors["roles"])
}

func TestCatalogNamesNeedingEscapes(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.login("admin@gmail.com", "password123")

	for _, name := range []string{"a%20b", "import/export"} {
		rec := ts.do(http.MethodPost, "/permissions", admin, map[string]string{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = ts.do(http.MethodDelete, "/permissions/"+url.PathEscape(name), admin, nil)
		require.Equal(t, http.StatusOK, rec.Code, name+": "+rec.Body.String())
	}
}

func TestLoginThrottling(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := rate.NewLoginLimiter(client, rate.RateLimit{Window: time.Minute, MaxAttempts: 2})

	ts := newTestServer(t, limiter)
	bad := map[string]string{"email": "admin@gmail.com", "password": "wrong"}

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/login", "", bad).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/login", "", bad).Code)

	rec := ts.do(http.MethodPost, "/login", "", map[string]string{"email": "admin@gmail.com", "password": "password123"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	ts.login("viewer@gmail.com", "20042004")
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	ts.login("viewer@gmail.com", "20042004")

	rec = ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_logins_total")
}
