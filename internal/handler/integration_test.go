package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hitoshi/weddingrsvp/internal/auth"
	"github.com/hitoshi/weddingrsvp/internal/database/dbtest"
	"github.com/hitoshi/weddingrsvp/internal/middleware"
	"github.com/hitoshi/weddingrsvp/internal/model"
	"github.com/hitoshi/weddingrsvp/internal/rsvp"
	"github.com/hitoshi/weddingrsvp/internal/security"
)

const integrationHost = "https://mazlinandaaron.com"

// integrationState はSQLiteストアに実物の依存を配線した統合テスト環境。
type integrationState struct {
	router   http.Handler
	verifier *auth.Verifier
	dbURL    string
}

func newIntegrationState(t *testing.T, seed ...string) *integrationState {
	t.Helper()

	gw, dbURL := dbtest.NewGateway(t, append(dbtest.Fixture, seed...)...)
	verifier := auth.NewVerifier(auth.NewStoreFinder(gw), nil, integrationHost)
	svc := rsvp.NewService(gw, nil)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		Verifier:      verifier,
		AdminEmails:   []string{"aaron@example.com"},
		RateLimiter:   rl,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		HealthChecker: gw,
		RSVPService:   svc,
		AdminService:  svc,
		Sanitizer:     security.NewListingSanitizer(),
	})

	return &integrationState{router: router, verifier: verifier, dbURL: dbURL}
}

// login は外部ログインフローと同じようにsession行を書き込み、送るべきクッキーを返す。
func (s *integrationState) login(t *testing.T, name, email string) []*http.Cookie {
	t.Helper()
	token := s.verifier.Token(name, email)
	dbtest.Exec(t, s.dbURL, fmt.Sprintf(
		`INSERT INTO session (key, login_email, login_name) VALUES ('%s', '%s', '%s')`,
		token, email, name,
	))
	return []*http.Cookie{
		{Name: auth.CookieLoginName, Value: url.PathEscape(name)},
		{Name: auth.CookieLoginEmail, Value: url.PathEscape(email)},
		{Name: auth.CookieLoginID, Value: token},
	}
}

func (s *integrationState) do(method, path string, cookies []*http.Cookie, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestIntegration_SelfAndGroupFlow(t *testing.T) {
	s := newIntegrationState(t)
	cookies := s.login(t, "bob lee", "lee@example.com")

	// 1. 本人特定。世帯内で名前を絞り込んでbob(id 2)に紐付く
	w := s.do(http.MethodGet, "/api/self", cookies, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/self status = %d, body = %s", w.Code, w.Body.String())
	}
	var self struct {
		Person    model.Invitee    `json:"person"`
		Household *model.Household `json:"household"`
	}
	if err := json.NewDecoder(w.Body).Decode(&self); err != nil {
		t.Fatalf("failed to decode self: %v", err)
	}
	if self.Person.ID != 2 {
		t.Fatalf("person id = %d, want 2", self.Person.ID)
	}
	if self.Household == nil || self.Household.ID != 1 {
		t.Errorf("household = %+v, want id 1", self.Household)
	}

	// 2. 本人の出欠更新
	w = s.do(http.MethodPost, "/api/self", cookies, `{"id": 2, "inPerson": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/self status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := dbtest.QueryInt(t, s.dbURL, `SELECT in_person FROM people WHERE id = 2`); got != 1 {
		t.Errorf("in_person = %d, want 1", got)
	}

	// 3. 世帯の他の招待客はanneだけ
	w = s.do(http.MethodGet, "/api/group", cookies, "")
	var group struct {
		Group []model.Invitee `json:"group"`
	}
	if err := json.NewDecoder(w.Body).Decode(&group); err != nil {
		t.Fatalf("failed to decode group: %v", err)
	}
	if len(group.Group) != 1 || group.Group[0].ID != 1 {
		t.Errorf("group = %+v, want [anne(1)]", group.Group)
	}

	// 4. 世帯の一括更新
	w = s.do(http.MethodPost, "/api/group", cookies, `[{"id": 1, "in_person": true}, {"id": 2, "in_person": false}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/group status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := dbtest.QueryInt(t, s.dbURL, `SELECT in_person FROM people WHERE id = 1`); got != 1 {
		t.Errorf("anne in_person = %d, want 1", got)
	}
	if got := dbtest.QueryInt(t, s.dbURL, `SELECT rsvp_received FROM people WHERE id = 1`); got != 1 {
		t.Errorf("anne rsvp_received = %d, want 1", got)
	}
}

func TestIntegration_UpdateSelf_OtherPerson_Forbidden(t *testing.T) {
	s := newIntegrationState(t)
	cookies := s.login(t, "bob lee", "lee@example.com")

	// 先に本人を紐付ける
	if w := s.do(http.MethodGet, "/api/self", cookies, ""); w.Code != http.StatusOK {
		t.Fatalf("GET /api/self status = %d", w.Code)
	}

	w := s.do(http.MethodPost, "/api/self", cookies, `{"id": 1, "inPerson": true}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if got := dbtest.QueryInt(t, s.dbURL, `SELECT in_person FROM people WHERE id = 1`); got != 0 {
		t.Errorf("anne in_person = %d, want unchanged 0", got)
	}
}

func TestIntegration_UpdateGroup_ForeignID_ModifiesNothing(t *testing.T) {
	s := newIntegrationState(t)
	cookies := s.login(t, "bob lee", "lee@example.com")

	w := s.do(http.MethodPost, "/api/group", cookies, `[{"id": 1, "in_person": true}, {"id": 3, "in_person": true}]`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	changed := dbtest.QueryInt(t, s.dbURL, `SELECT COUNT(*) FROM people WHERE in_person = 1 OR rsvp_received = 1`)
	if changed != 0 {
		t.Errorf("modified rows = %d, want 0", changed)
	}
}

func TestIntegration_ForgedCookie_Returns401(t *testing.T) {
	s := newIntegrationState(t)
	cookies := s.login(t, "bob lee", "lee@example.com")
	cookies[1] = &http.Cookie{Name: auth.CookieLoginEmail, Value: "park@example.com"}

	w := s.do(http.MethodGet, "/api/self", cookies, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestIntegration_UnknownGuest_Returns404(t *testing.T) {
	s := newIntegrationState(t)
	cookies := s.login(t, "zed zulu", "zed@example.com")

	w := s.do(http.MethodGet, "/api/self", cookies, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestIntegration_AdminListings(t *testing.T) {
	s := newIntegrationState(t)
	guest := s.login(t, "zed zulu", "zed@example.com")
	admin := s.login(t, "aaron", "aaron@example.com")

	if w := s.do(http.MethodGet, "/api/admin/people", guest, ""); w.Code != http.StatusForbidden {
		t.Errorf("guest status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w := s.do(http.MethodGet, "/api/admin/people", admin, "")
	if w.Code != http.StatusOK {
		t.Fatalf("admin people status = %d, body = %s", w.Code, w.Body.String())
	}
	var people struct {
		People []model.InviteeWithHousehold `json:"people"`
	}
	if err := json.NewDecoder(w.Body).Decode(&people); err != nil {
		t.Fatalf("failed to decode people: %v", err)
	}
	if len(people.People) != 4 {
		t.Errorf("len(people) = %d, want 4", len(people.People))
	}

	w = s.do(http.MethodGet, "/api/admin/new-people", admin, "")
	var newPeople struct {
		People []model.SessionEntry `json:"people"`
	}
	if err := json.NewDecoder(w.Body).Decode(&newPeople); err != nil {
		t.Fatalf("failed to decode new-people: %v", err)
	}
	// どちらのログインもまだ招待客に紐付いていない
	if len(newPeople.People) != 2 {
		t.Errorf("len(new-people) = %d, want 2", len(newPeople.People))
	}
}

func TestIntegration_Health(t *testing.T) {
	s := newIntegrationState(t)

	w := s.do(http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
