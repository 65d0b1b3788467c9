package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/seotrack/internal/metric"
	"github.com/hitoshi/seotrack/internal/model"
)

// MetricServiceInterface はメトリクスハンドラーが必要とするサービスインターフェース。
type MetricServiceInterface interface {
	// ListMetrics は全メトリクスを返す。
	ListMetrics(ctx context.Context) ([]*model.Metric, error)
	// GetMetric はメトリクスを取得する。
	GetMetric(ctx context.Context, id string) (*model.Metric, error)
	// CreateMetric はメトリクスを記録する。
	CreateMetric(ctx context.Context, input metric.CreateInput) (*model.Metric, error)
	// UpdateMetric はメトリクスを部分更新する。
	UpdateMetric(ctx context.Context, id string, input metric.UpdateInput) (*model.Metric, error)
	// DeleteMetric はメトリクスを削除する。
	DeleteMetric(ctx context.Context, id string) error
}

// MetricHandler はSEO指標レコードのHTTPハンドラー。
type MetricHandler struct {
	service MetricServiceInterface
}

// NewMetricHandler はMetricHandlerを生成する。
func NewMetricHandler(service MetricServiceInterface) *MetricHandler {
	return &MetricHandler{service: service}
}

// metricResponse はメトリクスのAPIレスポンス。
type metricResponse struct {
	ID              string    `json:"id"`
	SiteID          string    `json:"site_id"`
	DomainAuthority float64   `json:"domain_authority"`
	MozRank         float64   `json:"moz_rank"`
	PageAuthority   float64   `json:"page_authority"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// metricEnvelope は作成・更新リクエストの metric オブジェクト。
// ポインタで欠落フィールドと明示指定を区別する。
type metricEnvelope struct {
	SiteID          *string  `json:"site_id"`
	DomainAuthority *float64 `json:"domain_authority"`
	MozRank         *float64 `json:"moz_rank"`
	PageAuthority   *float64 `json:"page_authority"`
}

// metricAllowedFields はmetricオブジェクトで許可されるフィールド。
var metricAllowedFields = map[string]struct{}{
	"site_id":          {},
	"domain_authority": {},
	"moz_rank":         {},
	"page_authority":   {},
}

// ListMetrics は全メトリクスの一覧を返す。
// GET /metrics
func (h *MetricHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.ListMetrics(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 0件でも空配列を返す
	results := make([]metricResponse, 0, len(metrics))
	for _, m := range metrics {
		results = append(results, toMetricResponse(m))
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// GetMetric はメトリクス詳細を返す。
// GET /metrics/:id
func (h *MetricHandler) GetMetric(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.service.GetMetric(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toMetricResponse(m))
}

// CreateMetric はメトリクスを記録する。
// POST /metrics
// ボディは {"metric": {"site_id": ..., "domain_authority": ...}} 形式。
func (h *MetricHandler) CreateMetric(w http.ResponseWriter, r *http.Request) {
	envelope, apiErr := parseMetricEnvelope(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	if envelope.SiteID == nil || *envelope.SiteID == "" {
		apiErr := model.NewInvalidMetricPayloadError("site_idが指定されていません")
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	input := metric.CreateInput{SiteID: *envelope.SiteID}
	if envelope.DomainAuthority != nil {
		input.DomainAuthority = *envelope.DomainAuthority
	}
	if envelope.MozRank != nil {
		input.MozRank = *envelope.MozRank
	}
	if envelope.PageAuthority != nil {
		input.PageAuthority = *envelope.PageAuthority
	}

	m, err := h.service.CreateMetric(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toMetricResponse(m))
}

// UpdateMetric はメトリクスを部分更新する。
// PATCH /metrics/:id
// 指定されたフィールドのみを更新し、許可リスト外のフィールドは拒否する。
func (h *MetricHandler) UpdateMetric(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	envelope, apiErr := parseMetricEnvelope(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	input := metric.UpdateInput{
		SiteID:          envelope.SiteID,
		DomainAuthority: envelope.DomainAuthority,
		MozRank:         envelope.MozRank,
		PageAuthority:   envelope.PageAuthority,
	}

	m, err := h.service.UpdateMetric(r.Context(), id, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toMetricResponse(m))
}

// DeleteMetric はメトリクスを削除する。
// DELETE /metrics/:id
func (h *MetricHandler) DeleteMetric(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteMetric(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// parseMetricEnvelope はリクエストボディから metric オブジェクトを取り出す。
// 許可リスト外のフィールドが含まれる場合はAPIErrorを返す。
func parseMetricEnvelope(r *http.Request) (*metricEnvelope, *model.APIError) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, model.NewInvalidMetricPayloadError("リクエストボディの解析に失敗しました")
	}

	raw, ok := body["metric"]
	if !ok {
		return nil, model.NewInvalidMetricPayloadError("metricが指定されていません")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, model.NewInvalidMetricPayloadError("metricはオブジェクトである必要があります")
	}

	for key := range fields {
		if _, ok := metricAllowedFields[key]; !ok {
			return nil, model.NewInvalidUpdateFieldError(key)
		}
	}

	var envelope metricEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, model.NewInvalidMetricPayloadError("metricの値の型が不正です")
	}

	return &envelope, nil
}

// toMetricResponse はmodel.MetricからAPIレスポンスに変換する。
func toMetricResponse(m *model.Metric) metricResponse {
	return metricResponse{
		ID:              m.ID,
		SiteID:          m.SiteID,
		DomainAuthority: m.DomainAuthority,
		MozRank:         m.MozRank,
		PageAuthority:   m.PageAuthority,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
