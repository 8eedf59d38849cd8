package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notas/internal/accounts"
	"github.com/starford/notas/internal/notes"
	"github.com/starford/notas/internal/storage"
	"github.com/starford/notas/internal/testutil"
)

// testEnv builds the API router over a fresh SQLite store. A non-empty
// authToken turns on bearer auth.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	router, _ := testEnvWithStore(t, authToken)
	return router
}

func testEnvWithStore(t *testing.T, authToken string) (http.Handler, storage.Store) {
	t.Helper()
	store := testutil.TestStore(t)
	logger := testutil.Logger()
	h := NewHandler(
		accounts.New(store, accounts.WithLogger(logger)),
		notes.New(store, notes.WithLogger(logger)),
		logger,
	)
	return NewRouter(h, authToken != "", authToken, nil), store
}

func do(t *testing.T, router http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e.Error
}

// signIn registers and logs in alice.
func signIn(t *testing.T, router http.Handler) {
	t.Helper()
	creds := CredentialsRequest{Username: "alice", Password: "Passw0rd"}
	if w := do(t, router, http.MethodPost, "/accounts", creds); w.Code != http.StatusCreated {
		t.Fatalf("register = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodPost, "/session", creds); w.Code != http.StatusOK {
		t.Fatalf("login = %d, body = %s", w.Code, w.Body.String())
	}
}

func createNote(t *testing.T, router http.Handler, title, content string) Note {
	t.Helper()
	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: title, Content: content})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	var n Note
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	return n
}

func TestEndToEnd(t *testing.T) {
	router := testEnv(t, "")
	signIn(t, router)

	n := createNote(t, router, "Groceries", "Milk, eggs")
	if n.ID == "" || n.Completed {
		t.Fatalf("created = %+v", n)
	}

	w := do(t, router, http.MethodPost, "/notes/"+n.ID+"/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var list NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	want := Note{ID: n.ID, Title: "Groceries", Content: "Milk, eggs", Completed: true}
	if len(list.Notes) != 1 || list.Notes[0] != want {
		t.Errorf("notes = %+v, want [%+v]", list.Notes, want)
	}
	if list.Stats != (Stats{Total: 1, Completed: 1, Pending: 0}) {
		t.Errorf("stats = %+v", list.Stats)
	}
}

func TestRegisterErrors(t *testing.T) {
	router := testEnv(t, "")

	cases := []struct {
		name string
		req  CredentialsRequest
		code int
	}{
		{"missing username", CredentialsRequest{Password: "Passw0rd"}, http.StatusBadRequest},
		{"weak password", CredentialsRequest{Username: "bob", Password: "password"}, http.StatusBadRequest},
		{"ok", CredentialsRequest{Username: "bob", Password: "Passw0rd"}, http.StatusCreated},
		{"taken", CredentialsRequest{Username: "bob", Password: "Other123"}, http.StatusConflict},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/accounts", c.req)
			if w.Code != c.code {
				t.Errorf("status = %d, want %d (body %s)", w.Code, c.code, w.Body.String())
			}
		})
	}
}

func TestLoginErrors(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/session", CredentialsRequest{Username: "alice", Password: "Passw0rd"})
	if w.Code != http.StatusNotFound {
		t.Errorf("login with no accounts = %d, want 404", w.Code)
	}

	_ = do(t, router, http.MethodPost, "/accounts", CredentialsRequest{Username: "alice", Password: "Passw0rd"})

	w = do(t, router, http.MethodPost, "/session", CredentialsRequest{Username: "carol", Password: "Passw0rd"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodPost, "/session", CredentialsRequest{Username: "alice", Password: "Wrong123"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", w.Code)
	}
	if got := errorOf(t, w); got == "" || got == "internal error" {
		t.Errorf("error body = %q", got)
	}
}

func TestInvalidJSON(t *testing.T) {
	router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/session", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("session before login = %d, want 401", w.Code)
	}
	signIn(t, router)

	w := do(t, router, http.MethodGet, "/session", nil)
	var s Session
	_ = json.Unmarshal(w.Body.Bytes(), &s)
	if w.Code != http.StatusOK || s.Username != "alice" {
		t.Errorf("session = %d %+v", w.Code, s)
	}

	if w := do(t, router, http.MethodDelete, "/session", nil); w.Code != http.StatusNoContent {
		t.Errorf("logout = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/session", nil); w.Code != http.StatusNoContent {
		t.Errorf("second logout = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("notes after logout = %d, want 401", w.Code)
	}
}

func TestSessionStartedAtOnLoginOnly(t *testing.T) {
	router := testEnv(t, "")
	creds := CredentialsRequest{Username: "alice", Password: "Passw0rd"}
	do(t, router, http.MethodPost, "/accounts", creds)

	w := do(t, router, http.MethodPost, "/session", creds)
	if !bytes.Contains(w.Body.Bytes(), []byte(`"started_at"`)) {
		t.Errorf("login body = %s, want started_at", w.Body.String())
	}
	// Only the username is persisted, so a resolved session has no start time.
	w = do(t, router, http.MethodGet, "/session", nil)
	if w.Code != http.StatusOK || bytes.Contains(w.Body.Bytes(), []byte(`"started_at"`)) {
		t.Errorf("session = %d %s", w.Code, w.Body.String())
	}
}

func TestStaleSessionRejected(t *testing.T) {
	router, store := testEnvWithStore(t, "")
	if err := store.Set(context.Background(), accounts.SessionKey, "ghost"); err != nil {
		t.Fatal(err)
	}

	if w := do(t, router, http.MethodGet, "/session", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("GET /session = %d, want 401", w.Code)
	}
	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "t", Content: "c"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST /notes = %d, want 401, body %s", w.Code, w.Body.String())
	}
	if _, ok, _ := store.Get(context.Background(), "notes_ghost"); ok {
		t.Error("notes were written for an unregistered account")
	}
}

func TestNotesRequireSession(t *testing.T) {
	router := testEnv(t, "")
	paths := []struct{ method, path string }{
		{http.MethodGet, "/notes"},
		{http.MethodPost, "/notes"},
		{http.MethodGet, "/notes/stats"},
		{http.MethodGet, "/notes/x"},
		{http.MethodPut, "/notes/x"},
		{http.MethodPost, "/notes/x/toggle"},
		{http.MethodDelete, "/notes/x"},
	}
	for _, p := range paths {
		w := do(t, router, p.method, p.path, NoteRequest{Title: "t", Content: "c"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", p.method, p.path, w.Code)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	router := testEnv(t, "")
	signIn(t, router)

	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: " ", Content: "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty title = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "t", Content: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty content = %d, want 400", w.Code)
	}
}

func TestGetNote(t *testing.T) {
	router := testEnv(t, "")
	signIn(t, router)
	n := createNote(t, router, "t", "c")

	w := do(t, router, http.MethodGet, "/notes/"+n.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
	if w := do(t, router, http.MethodGet, "/notes/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("get missing = %d, want 404", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	router := testEnv(t, "")
	signIn(t, router)
	n := createNote(t, router, "v1", "c")

	w := do(t, router, http.MethodGet, "/notes/"+n.ID, nil)
	tag := w.Header().Get("ETag")

	w = do(t, router, http.MethodPut, "/notes/"+n.ID, NoteRequest{Title: "v2", Content: "c"}, "If-Match", tag)
	if w.Code != http.StatusOK {
		t.Fatalf("update with fresh tag = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("ETag") == tag {
		t.Error("ETag did not change after update")
	}

	w = do(t, router, http.MethodPut, "/notes/"+n.ID, NoteRequest{Title: "v3", Content: "c"}, "If-Match", tag)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale tag = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	router := testEnv(t, "")
	signIn(t, router)
	n := createNote(t, router, "v1", "c")

	w := do(t, router, http.MethodPut, "/notes/"+n.ID, NoteRequest{Title: "v2", Content: "c2"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d", w.Code)
	}
	var got Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.ID != n.ID || got.Title != "v2" || got.Content != "c2" {
		t.Errorf("updated = %+v", got)
	}
	if w := do(t, router, http.MethodPut, "/notes/missing", NoteRequest{Title: "t", Content: "c"}); w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	router := testEnv(t, "")
	signIn(t, router)
	n := createNote(t, router, "t", "c")

	if w := do(t, router, http.MethodDelete, "/notes/"+n.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/notes/"+n.ID+"/toggle", nil); w.Code != http.StatusNotFound {
		t.Errorf("toggle after delete = %d, want 404", w.Code)
	}
}

func TestSearchKeepsFullStats(t *testing.T) {
	router := testEnv(t, "")
	signIn(t, router)
	createNote(t, router, "My Note", "a")
	other := createNote(t, router, "Groceries", "b")
	_ = do(t, router, http.MethodPost, "/notes/"+other.ID+"/toggle", nil)

	w := do(t, router, http.MethodGet, "/notes?q=NOTE", nil)
	var list NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Notes) != 1 || list.Notes[0].Title != "My Note" {
		t.Errorf("search notes = %+v", list.Notes)
	}
	if list.Stats != (Stats{Total: 2, Completed: 1, Pending: 1}) {
		t.Errorf("stats = %+v", list.Stats)
	}

	w = do(t, router, http.MethodGet, "/notes/stats", nil)
	var st Stats
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if w.Code != http.StatusOK || st.Total != 2 {
		t.Errorf("stats route = %d %+v", w.Code, st)
	}
}

func TestAuthToken(t *testing.T) {
	router := testEnv(t, "secret")

	if w := do(t, router, http.MethodGet, "/session", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/session", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	w := do(t, router, http.MethodPost, "/accounts",
		CredentialsRequest{Username: "alice", Password: "Passw0rd"},
		"Authorization", "Bearer secret")
	if w.Code != http.StatusCreated {
		t.Errorf("valid token = %d, want 201", w.Code)
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthRoutes(t *testing.T) {
	var down error
	r := chi.NewRouter()
	HealthRoutes(r, pingFunc(func(context.Context) error { return down }))

	if w := do(t, r, http.MethodGet, "/health/live", nil); w.Code != http.StatusOK {
		t.Errorf("live = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/health/ready", nil); w.Code != http.StatusOK {
		t.Errorf("ready = %d", w.Code)
	}
	down = errors.New("connection refused")
	if w := do(t, r, http.MethodGet, "/health/ready", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready while down = %d, want 503", w.Code)
	}
}
