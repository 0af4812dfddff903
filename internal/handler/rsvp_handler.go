package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/weddingrsvp/internal/auth"
	"github.com/hitoshi/weddingrsvp/internal/metrics"
	"github.com/hitoshi/weddingrsvp/internal/middleware"
	"github.com/hitoshi/weddingrsvp/internal/model"
	"github.com/hitoshi/weddingrsvp/internal/rsvp"
)

// RSVPServiceInterface は出欠ハンドラーが必要とするサービスインターフェース。
type RSVPServiceInterface interface {
	// GetSelf はログイン中の利用者本人と世帯を返す。
	GetSelf(ctx context.Context, id auth.Identity) (*rsvp.SelfResult, error)
	// UpdateSelf は本人の出欠を更新する。
	UpdateSelf(ctx context.Context, id auth.Identity, personID int64, inPerson bool) error
	// GetGroup は同じ世帯の他の招待客を返す。
	GetGroup(ctx context.Context, id auth.Identity) ([]model.Invitee, error)
	// UpdateGroup は世帯の出欠を一括更新し、更新件数を返す。
	UpdateGroup(ctx context.Context, id auth.Identity, updates []model.GroupUpdate) (int, error)
}

// RSVPHandler は招待客本人と世帯の出欠を扱うHTTPハンドラー。
type RSVPHandler struct {
	service RSVPServiceInterface
	metrics metrics.MetricsCollector
}

// NewRSVPHandler はRSVPHandlerを生成する。
func NewRSVPHandler(service RSVPServiceInterface, mc metrics.MetricsCollector) *RSVPHandler {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &RSVPHandler{
		service: service,
		metrics: mc,
	}
}

// updateSelfRequest は本人の出欠更新リクエストのボディ。
// フィールド名は既存フロントエンドに合わせてcamelCase。
type updateSelfRequest struct {
	ID       int64 `json:"id"`
	InPerson *bool `json:"inPerson"`
}

// groupUpdateRequest は世帯一括更新リクエストの1要素。
type groupUpdateRequest struct {
	ID       int64 `json:"id"`
	InPerson *bool `json:"in_person"`
}

// selfResponse は本人情報のAPIレスポンス。
type selfResponse struct {
	Status    string           `json:"status"`
	Person    *model.Invitee   `json:"person"`
	Household *model.Household `json:"household"`
}

// groupResponse は世帯の招待客一覧のAPIレスポンス。
type groupResponse struct {
	Status string          `json:"status"`
	Group  []model.Invitee `json:"group"`
}

// updateGroupResponse は世帯一括更新のAPIレスポンス。
type updateGroupResponse struct {
	Status  string `json:"status"`
	Updated int    `json:"updated"`
}

// statusResponse はstatusのみのAPIレスポンス。
type statusResponse struct {
	Status string `json:"status"`
}

// GetSelf はログイン中の利用者本人を返す。
// GET /api/self
func (h *RSVPHandler) GetSelf(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	res, err := h.service.GetSelf(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.metrics, err)
		return
	}

	writeJSON(w, http.StatusOK, selfResponse{
		Status:    statusOK,
		Person:    res.Person,
		Household: res.Household,
	})
}

// UpdateSelf は本人の出欠を更新する。
// POST /api/self
func (h *RSVPHandler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req updateSelfRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("idが指定されていません"))
		return
	}
	if req.InPerson == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("inPersonが指定されていません"))
		return
	}

	if err := h.service.UpdateSelf(r.Context(), id, req.ID, *req.InPerson); err != nil {
		handleServiceError(w, r, h.metrics, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: statusOK})
}

// GetGroup は同じ世帯の他の招待客を返す。
// GET /api/group
func (h *RSVPHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	group, err := h.service.GetGroup(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.metrics, err)
		return
	}
	if group == nil {
		group = []model.Invitee{}
	}

	writeJSON(w, http.StatusOK, groupResponse{Status: statusOK, Group: group})
}

// UpdateGroup は世帯の出欠を一括更新する。
// POST /api/group
func (h *RSVPHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req []groupUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updates := make([]model.GroupUpdate, 0, len(req))
	for i, u := range req {
		if u.ID <= 0 || u.InPerson == nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidRequestError(fmt.Sprintf("%d件目にidまたはin_personがありません", i+1)))
			return
		}
		updates = append(updates, model.GroupUpdate{ID: u.ID, InPerson: *u.InPerson})
	}

	n, err := h.service.UpdateGroup(r.Context(), id, updates)
	if err != nil {
		handleServiceError(w, r, h.metrics, err)
		return
	}

	writeJSON(w, http.StatusOK, updateGroupResponse{Status: statusOK, Updated: n})
}

// requireIdentity はコンテキストから利用者を取り出す。
// 見つからない場合はボディなしの401を書き込む。
func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return auth.Identity{}, false
	}
	return id, true
}
