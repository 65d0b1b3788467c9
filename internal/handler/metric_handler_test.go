package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/seotrack/internal/metric"
	"github.com/hitoshi/seotrack/internal/model"
)

// --- モック ---

type mockMetricService struct {
	listFn   func(ctx context.Context) ([]*model.Metric, error)
	getFn    func(ctx context.Context, id string) (*model.Metric, error)
	createFn func(ctx context.Context, input metric.CreateInput) (*model.Metric, error)
	updateFn func(ctx context.Context, id string, input metric.UpdateInput) (*model.Metric, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockMetricService) ListMetrics(ctx context.Context) ([]*model.Metric, error) {
	return m.listFn(ctx)
}
func (m *mockMetricService) GetMetric(ctx context.Context, id string) (*model.Metric, error) {
	return m.getFn(ctx, id)
}
func (m *mockMetricService) CreateMetric(ctx context.Context, input metric.CreateInput) (*model.Metric, error) {
	return m.createFn(ctx, input)
}
func (m *mockMetricService) UpdateMetric(ctx context.Context, id string, input metric.UpdateInput) (*model.Metric, error) {
	return m.updateFn(ctx, id, input)
}
func (m *mockMetricService) DeleteMetric(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func metricTestRouter(h *MetricHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/metrics", h.ListMetrics)
	r.Post("/metrics", h.CreateMetric)
	r.Get("/metrics/{id}", h.GetMetric)
	r.Patch("/metrics/{id}", h.UpdateMetric)
	r.Delete("/metrics/{id}", h.DeleteMetric)
	return r
}

// --- テスト ---

// TestListMetrics_EmptyReturnsArray は0件でも空配列が返ることを検証する。
func TestListMetrics_EmptyReturnsArray(t *testing.T) {
	svc := &mockMetricService{
		listFn: func(ctx context.Context) ([]*model.Metric, error) {
			return []*model.Metric{}, nil
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

// TestListMetrics_ReturnsRecords は記録済みメトリクスの一覧を検証する。
func TestListMetrics_ReturnsRecords(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc := &mockMetricService{
		listFn: func(ctx context.Context) ([]*model.Metric, error) {
			return []*model.Metric{
				{ID: "m-1", SiteID: "site-1", DomainAuthority: 45.2, MozRank: 4.1, PageAuthority: 38.0, CreatedAt: now, UpdatedAt: now},
			}, nil
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var results []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&results); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results length = %d", len(results))
	}
	if results[0]["site_id"] != "site-1" {
		t.Errorf("site_id = %v", results[0]["site_id"])
	}
	if results[0]["domain_authority"] != 45.2 {
		t.Errorf("domain_authority = %v", results[0]["domain_authority"])
	}
}

// TestGetMetric_NotFound は存在しないメトリクスで404が返ることを検証する。
func TestGetMetric_NotFound(t *testing.T) {
	svc := &mockMetricService{
		getFn: func(ctx context.Context, id string) (*model.Metric, error) {
			return nil, model.NewMetricNotFoundError(id)
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var errBody apiErrorResponse
	json.NewDecoder(w.Body).Decode(&errBody)
	if errBody.Code != "METRIC_NOT_FOUND" {
		t.Errorf("error code = %q", errBody.Code)
	}
}

// TestCreateMetric_Success はメトリクス記録の成功で201が返ることを検証する。
func TestCreateMetric_Success(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc := &mockMetricService{
		createFn: func(ctx context.Context, input metric.CreateInput) (*model.Metric, error) {
			if input.SiteID != "site-1" {
				t.Errorf("SiteID = %q", input.SiteID)
			}
			if input.MozRank != 5.5 {
				t.Errorf("MozRank = %v", input.MozRank)
			}
			return &model.Metric{
				ID: "m-new", SiteID: input.SiteID,
				DomainAuthority: input.DomainAuthority, MozRank: input.MozRank, PageAuthority: input.PageAuthority,
				CreatedAt: now, UpdatedAt: now,
			}, nil
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/metrics",
		strings.NewReader(`{"metric":{"site_id":"site-1","domain_authority":40,"moz_rank":5.5,"page_authority":33}}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var body map[string]interface{}
	json.NewDecoder(w.Body).Decode(&body)
	if body["id"] != "m-new" {
		t.Errorf("id = %v", body["id"])
	}
}

// TestCreateMetric_MissingSiteID はsite_id欠落で422が返ることを検証する。
func TestCreateMetric_MissingSiteID(t *testing.T) {
	svc := &mockMetricService{
		createFn: func(ctx context.Context, input metric.CreateInput) (*model.Metric, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/metrics",
		strings.NewReader(`{"metric":{"domain_authority":40}}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var errBody apiErrorResponse
	json.NewDecoder(w.Body).Decode(&errBody)
	if errBody.Code != "INVALID_METRIC_PAYLOAD" {
		t.Errorf("error code = %q", errBody.Code)
	}
}

// TestCreateMetric_MissingEnvelope はmetricオブジェクト欠落で422が返ることを検証する。
func TestCreateMetric_MissingEnvelope(t *testing.T) {
	svc := &mockMetricService{
		createFn: func(ctx context.Context, input metric.CreateInput) (*model.Metric, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/metrics",
		strings.NewReader(`{"site_id":"site-1"}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

// TestCreateMetric_UnknownSiteReference は存在しないサイト参照で422が返ることを検証する。
func TestCreateMetric_UnknownSiteReference(t *testing.T) {
	svc := &mockMetricService{
		createFn: func(ctx context.Context, input metric.CreateInput) (*model.Metric, error) {
			return nil, model.NewInvalidMetricPayloadError("指定されたサイトが存在しません")
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/metrics",
		strings.NewReader(`{"metric":{"site_id":"no-such-site"}}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

// TestUpdateMetric_PartialUpdate は指定フィールドのみが渡されることを検証する。
func TestUpdateMetric_PartialUpdate(t *testing.T) {
	svc := &mockMetricService{
		updateFn: func(ctx context.Context, id string, input metric.UpdateInput) (*model.Metric, error) {
			if input.MozRank == nil || *input.MozRank != 6.2 {
				t.Errorf("MozRank = %v", input.MozRank)
			}
			if input.DomainAuthority != nil {
				t.Error("DomainAuthority should be nil")
			}
			if input.SiteID != nil {
				t.Error("SiteID should be nil")
			}
			return &model.Metric{ID: id, SiteID: "site-1", MozRank: 6.2}, nil
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/metrics/m-1",
		strings.NewReader(`{"metric":{"moz_rank":6.2}}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var body map[string]interface{}
	json.NewDecoder(w.Body).Decode(&body)
	if body["moz_rank"] != 6.2 {
		t.Errorf("moz_rank = %v", body["moz_rank"])
	}
}

// TestUpdateMetric_UnknownFieldRejected は許可リスト外のフィールドで422が返ることを検証する。
func TestUpdateMetric_UnknownFieldRejected(t *testing.T) {
	svc := &mockMetricService{
		updateFn: func(ctx context.Context, id string, input metric.UpdateInput) (*model.Metric, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/metrics/m-1",
		strings.NewReader(`{"metric":{"rank":6.2}}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var errBody apiErrorResponse
	json.NewDecoder(w.Body).Decode(&errBody)
	if errBody.Code != "INVALID_UPDATE_FIELD" {
		t.Errorf("error code = %q", errBody.Code)
	}
}

// TestUpdateMetric_NotFound は存在しないメトリクスの更新で404が返ることを検証する。
func TestUpdateMetric_NotFound(t *testing.T) {
	svc := &mockMetricService{
		updateFn: func(ctx context.Context, id string, input metric.UpdateInput) (*model.Metric, error) {
			return nil, model.NewMetricNotFoundError(id)
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/metrics/missing",
		strings.NewReader(`{"metric":{"moz_rank":1.0}}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestDeleteMetric_NoContent はメトリクス削除の成功で204が返ることを検証する。
func TestDeleteMetric_NoContent(t *testing.T) {
	svc := &mockMetricService{
		deleteFn: func(ctx context.Context, id string) error {
			if id != "m-1" {
				t.Errorf("id = %q", id)
			}
			return nil
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/metrics/m-1", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

// TestDeleteMetric_NotFound は存在しないメトリクスの削除で404が返ることを検証する。
func TestDeleteMetric_NotFound(t *testing.T) {
	svc := &mockMetricService{
		deleteFn: func(ctx context.Context, id string) error {
			return model.NewMetricNotFoundError(id)
		},
	}
	router := metricTestRouter(NewMetricHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/metrics/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
