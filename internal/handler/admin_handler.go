package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/weddingrsvp/internal/metrics"
	"github.com/hitoshi/weddingrsvp/internal/model"
	"github.com/hitoshi/weddingrsvp/internal/security"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListPeople(ctx context.Context) ([]model.InviteeWithHousehold, error)
	ListSessions(ctx context.Context) ([]model.SessionEntry, error)
	ListNewPeople(ctx context.Context) ([]model.SessionEntry, error)
}

// AdminHandler は管理者向け一覧のHTTPハンドラー。
// 一覧の文字列はログインフローや招待客リストから来るため、返す前に無害化する。
type AdminHandler struct {
	service   AdminServiceInterface
	sanitizer security.ListingSanitizerService
	metrics   metrics.MetricsCollector
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface, sanitizer security.ListingSanitizerService, mc metrics.MetricsCollector) *AdminHandler {
	if sanitizer == nil {
		sanitizer = security.NewListingSanitizer()
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &AdminHandler{
		service:   service,
		sanitizer: sanitizer,
		metrics:   mc,
	}
}

type peopleResponse struct {
	Status string                       `json:"status"`
	People []model.InviteeWithHousehold `json:"people"`
}

type sessionsResponse struct {
	Status   string               `json:"status"`
	Sessions []model.SessionEntry `json:"sessions"`
}

type newPeopleResponse struct {
	Status string               `json:"status"`
	People []model.SessionEntry `json:"people"`
}

// ListPeople は招待客の全件一覧を返す。
// GET /api/admin/people
func (h *AdminHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.service.ListPeople(r.Context())
	if err != nil {
		handleServiceError(w, r, h.metrics, err)
		return
	}

	writeJSON(w, http.StatusOK, peopleResponse{
		Status: statusOK,
		People: h.sanitizer.SanitizePeople(people),
	})
}

// ListSessions はログイン記録の全件一覧を返す。
// GET /api/admin/sessions
func (h *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		handleServiceError(w, r, h.metrics, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionsResponse{
		Status:   statusOK,
		Sessions: h.sanitizer.SanitizeSessions(sessions),
	})
}

// ListNewPeople は招待客に紐付いていないログインの一覧を返す。
// GET /api/admin/new-people
func (h *AdminHandler) ListNewPeople(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListNewPeople(r.Context())
	if err != nil {
		handleServiceError(w, r, h.metrics, err)
		return
	}

	writeJSON(w, http.StatusOK, newPeopleResponse{
		Status: statusOK,
		People: h.sanitizer.SanitizeSessions(sessions),
	})
}
