// Package handler はAPIエンドポイントのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/seotrack/internal/model"
)

// SiteServiceInterface はサイトハンドラーが必要とするサービスインターフェース。
type SiteServiceInterface interface {
	// GetSite はサイト情報を取得する。
	GetSite(ctx context.Context, siteID string) (*model.Site, error)
	// UpdateSiteURL はサイトのURLを更新する。
	UpdateSiteURL(ctx context.Context, siteID, rawURL string) (*model.Site, error)
	// DeleteSite はサイトを削除する。
	DeleteSite(ctx context.Context, siteID string) error
}

// SiteHandler はサイト台帳のHTTPハンドラー。
// サイトはURLで共有される台帳リソースであり、ユーザーごとの追跡表示は
// TrackingHandlerが担う。
type SiteHandler struct {
	service SiteServiceInterface
}

// NewSiteHandler はSiteHandlerを生成する。
func NewSiteHandler(service SiteServiceInterface) *SiteHandler {
	return &SiteHandler{service: service}
}

// siteResponse はサイト情報のAPIレスポンス。
type siteResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// GetSite はサイト詳細を取得する。
// GET /sites/:id
func (h *SiteHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "id")

	site, err := h.service.GetSite(r.Context(), siteID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toSiteResponse(site))
}

// UpdateSite はサイトのURLを更新する。
// PATCH /sites/:id
// ボディは {"site": {"url": ...}} 形式のみを受け付け、
// url以外のフィールド指定は拒否する。
func (h *SiteHandler) UpdateSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "id")

	envelope, apiErr := parseSiteEnvelope(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// 更新フィールドの許可リスト: url のみ
	for key := range envelope {
		if key != "url" {
			apiErr := model.NewInvalidUpdateFieldError(key)
			writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
			return
		}
	}

	rawURL, ok := coerceScalar(envelope["url"])
	if !ok {
		apiErr := model.NewInvalidSitePayloadError("urlが指定されていません")
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	site, err := h.service.UpdateSiteURL(r.Context(), siteID, rawURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toSiteResponse(site))
}

// DeleteSite はサイトを台帳から削除する。
// DELETE /sites/:id
// 関連する追跡関係とメトリクスもまとめて削除される管理用操作。
func (h *SiteHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "id")

	if err := h.service.DeleteSite(r.Context(), siteID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toSiteResponse はmodel.SiteからAPIレスポンスに変換する。
func toSiteResponse(site *model.Site) siteResponse {
	return siteResponse{
		ID:        site.ID,
		URL:       site.URL,
		CreatedAt: site.CreatedAt,
		UpdatedAt: site.UpdatedAt,
	}
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeDuplicateUserSite, model.ErrCodeDuplicateSiteURL:
		return http.StatusConflict
	case model.ErrCodeSiteNotFound, model.ErrCodeUserSiteNotFound, model.ErrCodeMetricNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidInclude, model.ErrCodeInvalidSitePayload,
		model.ErrCodeInvalidMetricPayload, model.ErrCodeInvalidUpdateField:
		return http.StatusUnprocessableEntity
	case model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
