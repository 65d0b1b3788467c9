package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/seotrack/internal/middleware"
	"github.com/hitoshi/seotrack/internal/model"
	"github.com/hitoshi/seotrack/internal/tracking"
)

// TrackingServiceInterface はトラッキングハンドラーが必要とするサービスインターフェース。
type TrackingServiceInterface interface {
	// ListTrackedSites はユーザーの追跡サイト一覧を返す。
	ListTrackedSites(ctx context.Context, userID string, includeMetrics bool) ([]tracking.TrackedSite, error)
	// TrackSite はサイトの追跡を登録する。
	TrackSite(ctx context.Context, userID, rawURL string, title *string) (*tracking.TrackedSite, error)
	// UpdateSiteTitle は追跡サイトのタイトルを更新する。
	UpdateSiteTitle(ctx context.Context, userID, siteID, title string) error
	// UntrackSite はサイトの追跡を解除する。
	UntrackSite(ctx context.Context, userID, siteID string) error
}

// TrackingHandler はユーザーのサイト追跡のHTTPハンドラー。
type TrackingHandler struct {
	service TrackingServiceInterface
}

// NewTrackingHandler はTrackingHandlerを生成する。
func NewTrackingHandler(service TrackingServiceInterface) *TrackingHandler {
	return &TrackingHandler{service: service}
}

// trackedSiteResponse は追跡サイトのAPIレスポンス。
// id/url/created_at/updated_atはサイトの属性、titleはユーザーごとの属性。
type trackedSiteResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Metrics はinclude指定時のみ出力される。指定時は0件でも空配列を出力する。
	Metrics *[]metricResponse `json:"metrics,omitempty"`
}

// ListTrackedSites はユーザーの追跡サイト一覧を返す。
// GET /users/current/sites
// ?include=metrics または ?include[]=metrics でメトリクス履歴をネストして返す。
func (h *TrackingHandler) ListTrackedSites(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	includeMetrics, apiErr := parseInclude(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	sites, err := h.service.ListTrackedSites(r.Context(), userID, includeMetrics)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 0件でも空配列を返す
	results := make([]trackedSiteResponse, 0, len(sites))
	for _, s := range sites {
		results = append(results, toTrackedSiteResponse(s, includeMetrics))
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// TrackSite はサイトの追跡を登録する。
// POST /users/current/sites
// ボディは {"site": {"url": ..., "title": ...}} 形式。titleは省略可能。
// URLの妥当性検証は行わず、文字列以外のスカラーもテキスト表現で受理する。
func (h *TrackingHandler) TrackSite(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	envelope, apiErr := parseSiteEnvelope(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	rawURL, ok := coerceScalar(envelope["url"])
	if !ok {
		apiErr := model.NewInvalidSitePayloadError("urlが指定されていません")
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var title *string
	if t, ok := coerceScalar(envelope["title"]); ok {
		title = &t
	}

	trackedSite, err := h.service.TrackSite(r.Context(), userID, rawURL, title)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toTrackedSiteResponse(*trackedSite, false))
}

// UpdateTitle は追跡サイトのタイトルを更新する。
// PATCH /users/current/sites/:site_id
// ボディは {"site": {"title": ...}} 形式のみを受け付け、
// title以外のフィールド指定は拒否する。
func (h *TrackingHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	siteID := chi.URLParam(r, "site_id")

	envelope, apiErr := parseSiteEnvelope(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// 更新フィールドの許可リスト: title のみ
	for key := range envelope {
		if key != "title" {
			apiErr := model.NewInvalidUpdateFieldError(key)
			writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
			return
		}
	}

	title, ok := coerceScalar(envelope["title"])
	if !ok {
		apiErr := model.NewInvalidSitePayloadError("titleが指定されていません")
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	if err := h.service.UpdateSiteTitle(r.Context(), userID, siteID, title); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UntrackSite はサイトの追跡を解除する。
// DELETE /users/current/sites/:site_id
// 追跡関係のみを削除し、サイト本体は残す。
func (h *TrackingHandler) UntrackSite(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	siteID := chi.URLParam(r, "site_id")

	if err := h.service.UntrackSite(r.Context(), userID, siteID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toTrackedSiteResponse はtracking.TrackedSiteからAPIレスポンスに変換する。
func toTrackedSiteResponse(s tracking.TrackedSite, includeMetrics bool) trackedSiteResponse {
	resp := trackedSiteResponse{
		ID:        s.SiteID,
		URL:       s.URL,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}

	if includeMetrics {
		metrics := make([]metricResponse, 0, len(s.Metrics))
		for _, m := range s.Metrics {
			metrics = append(metrics, toMetricResponse(m))
		}
		resp.Metrics = &metrics
	}

	return resp
}
