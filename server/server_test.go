package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"users-service/confs"
	"users-service/db"
	"users-service/entities"
	"users-service/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*Server, db.Database) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, "server_"+t.Name())
	cfg := &confs.Config{Profile: confs.ProfileTesting, Testing: true, Port: "0", LogLevel: "warn"}

	srv, err := NewServer(cfg, Dependencies{Database: d})
	require.NoError(t, err)
	return srv, d
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var data map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	}
	return w, data
}

func doForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestPing(t *testing.T) {
	srv, _ := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodGet, "/users/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong!", data["message"])
	assert.Equal(t, "success", data["status"])
}

func TestPing_WithoutDatabase(t *testing.T) {
	srv, d := setupTestServer(t)
	require.NoError(t, d.Close())

	w, data := doJSON(t, srv, http.MethodGet, "/users/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", data["status"])
}

func TestAddUser(t *testing.T) {
	srv, _ := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodPost, "/users", map[string]string{
		"username": "jorge",
		"email":    "pazmissael@gmail.com",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pazmissael@gmail.com was added!", data["message"])
	assert.Equal(t, "success", data["status"])

	w, data = doJSON(t, srv, http.MethodGet, "/users/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	user := data["data"].(map[string]interface{})
	assert.Equal(t, "jorge", user["username"])
	assert.Equal(t, "pazmissael@gmail.com", user["email"])
}

func TestAddUser_InvalidJSON(t *testing.T) {
	srv, _ := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodPost, "/users", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid payload.", data["message"])
	assert.Equal(t, "fallo", data["status"])
}

func TestAddUser_InvalidJSONKeys(t *testing.T) {
	srv, _ := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodPost, "/users", map[string]string{"email": "pazmissael@gmail.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid payload.", data["message"])
	assert.Equal(t, "fallo", data["status"])

	w, data = doJSON(t, srv, http.MethodPost, "/users", map[string]string{"username": "jorge"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid payload.", data["message"])
}

func TestAddUser_MissingBody(t *testing.T) {
	srv, _ := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodPost, "/users", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid payload.", data["message"])

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddUser_DuplicateEmail(t *testing.T) {
	srv, _ := setupTestServer(t)
	payload := map[string]string{"username": "jorge", "email": "pazmissael@gmail.com"}

	w, _ := doJSON(t, srv, http.MethodPost, "/users", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w, data := doJSON(t, srv, http.MethodPost, "/users", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Sorry. That email already exists!", data["message"])
	assert.Equal(t, "fallo", data["status"])
}

func TestSingleUser(t *testing.T) {
	srv, d := setupTestServer(t)
	user := testutil.AddUser(t, d, "abel", "abel.huanca@upeu.edu.pe")

	w, data := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/users/%d", user.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "satisfactorio", data["estado"])
	got := data["data"].(map[string]interface{})
	assert.Equal(t, "abel", got["username"])
	assert.Equal(t, "abel.huanca@upeu.edu.pe", got["email"])
}

func TestSingleUser_NoID(t *testing.T) {
	srv, _ := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodGet, "/users/blah", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "El usuario no existe", data["mensaje"])
	assert.Equal(t, "fallo", data["estado"])
}

func TestSingleUser_IncorrectID(t *testing.T) {
	srv, _ := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodGet, "/users/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "El usuario no existe", data["mensaje"])
	assert.Equal(t, "fallo", data["estado"])
}

func TestSingleUser_AfterTableRecreated(t *testing.T) {
	srv, d := setupTestServer(t)
	abel := testutil.AddUser(t, d, "abel", "abel.huanca@upeu.edu.pe")

	w, _ := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/users/%d", abel.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// recreate_db runs in another process and cannot flush this server's memory
	require.NoError(t, d.Recreate())

	w, data := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/users/%d", abel.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "El usuario no existe", data["mensaje"])

	fredy := testutil.AddUser(t, d, "fredy", "abelthf@gmail.com")
	w, data = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/users/%d", fredy.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	got := data["data"].(map[string]interface{})
	assert.Equal(t, "fredy", got["username"])
	assert.Equal(t, "abelthf@gmail.com", got["email"])
}

func TestAllUsers(t *testing.T) {
	srv, d := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, data["data"].(map[string]interface{})["users"])

	testutil.AddUser(t, d, "abel", "abel.huanca@upeu.edu.pe")
	testutil.AddUser(t, d, "fredy", "abelthf@gmail.com")

	w, data = doJSON(t, srv, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "satisfactorio", data["estado"])

	users := data["data"].(map[string]interface{})["users"].([]interface{})
	require.Len(t, users, 2)
	first := users[0].(map[string]interface{})
	second := users[1].(map[string]interface{})
	assert.Equal(t, "abel", first["username"])
	assert.Equal(t, "abel.huanca@upeu.edu.pe", first["email"])
	assert.Equal(t, "fredy", second["username"])
	assert.Equal(t, "abelthf@gmail.com", second["email"])
}

func TestMain_NoUsers(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := get(srv, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Todos los usuarios")
	assert.Contains(t, w.Body.String(), "<p>No hay usuarios!</p>")
}

func TestMain_WithUsers(t *testing.T) {
	srv, d := setupTestServer(t)
	testutil.AddUser(t, d, "abel", "abel.huanca@upeu.edu.pe")
	testutil.AddUser(t, d, "fredy", "abelthf@gmail.com")

	w := get(srv, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Todos los usuarios")
	assert.NotContains(t, body, "<p>No hay usuarios!</p>")
	assert.Contains(t, body, "abel")
	assert.Contains(t, body, "fredy")
}

func TestMain_AddUser(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := doForm(srv, "/", url.Values{"username": {"abel"}, "email": {"abel.huanca@upeu.edu.pe"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = get(srv, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Todos los usuarios")
	assert.NotContains(t, body, "<p>No hay usuarios!</p>")
	assert.Contains(t, body, "abel")
}

func TestMain_AddUserRejected(t *testing.T) {
	srv, d := setupTestServer(t)
	testutil.AddUser(t, d, "abel", "abel.huanca@upeu.edu.pe")

	w := doForm(srv, "/", url.Values{"username": {"otro"}, "email": {"abel.huanca@upeu.edu.pe"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Sorry. That email already exists!")

	w = doForm(srv, "/", url.Values{"email": {"nuevo@upeu.edu.pe"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid payload.")
	assert.NotContains(t, w.Body.String(), "nuevo@upeu.edu.pe")
}

func TestHealth(t *testing.T) {
	srv, d := setupTestServer(t)

	w, data := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", data["status"])

	require.NoError(t, d.Close())
	w, data = doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", data["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	doJSON(t, srv, http.MethodPost, "/users", map[string]string{"username": "jorge", "email": "pazmissael@gmail.com"})

	w := get(srv, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "users_created_total 1")
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestUserFeed_ReceivesCreatedUsers(t *testing.T) {
	srv, _ := setupTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/users", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return srv.feed.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	w, _ := doJSON(t, srv, http.MethodPost, "/users", map[string]string{"username": "fredy", "email": "abelthf@gmail.com"})
	require.Equal(t, http.StatusCreated, w.Code)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event entities.UserEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, entities.EventUserCreated, event.Type)
	assert.Equal(t, "fredy", event.User.Username)
	assert.Equal(t, "abelthf@gmail.com", event.User.Email)
}

func TestNewServer_RequiresDatabase(t *testing.T) {
	_, err := NewServer(&confs.Config{Profile: confs.ProfileTesting}, Dependencies{})
	assert.Error(t, err)
}
