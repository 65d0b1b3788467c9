package metric

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/seotrack/internal/model"
	"github.com/hitoshi/seotrack/internal/repository"
)

// --- モック ---

type mockMetricRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Metric, error)
	listFn     func(ctx context.Context) ([]*model.Metric, error)
	createFn   func(ctx context.Context, metric *model.Metric) error
	updateFn   func(ctx context.Context, metric *model.Metric) error
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockMetricRepo) FindByID(ctx context.Context, id string) (*model.Metric, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockMetricRepo) List(ctx context.Context) ([]*model.Metric, error) {
	return m.listFn(ctx)
}
func (m *mockMetricRepo) ListBySiteIDs(ctx context.Context, siteIDs []string) ([]*model.Metric, error) {
	return nil, nil
}
func (m *mockMetricRepo) FindLatestBySiteID(ctx context.Context, siteID string) (*model.Metric, error) {
	return nil, nil
}
func (m *mockMetricRepo) Create(ctx context.Context, metric *model.Metric) error {
	return m.createFn(ctx, metric)
}
func (m *mockMetricRepo) Update(ctx context.Context, metric *model.Metric) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, metric)
	}
	return nil
}
func (m *mockMetricRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- テスト ---

// TestListMetrics_EmptyReturnsEmptySlice は0件でも空スライスが返ることを検証する。
func TestListMetrics_EmptyReturnsEmptySlice(t *testing.T) {
	repo := &mockMetricRepo{
		listFn: func(ctx context.Context) ([]*model.Metric, error) {
			return nil, nil
		},
	}

	svc := NewService(repo)
	got, err := svc.ListMetrics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected non-nil empty slice")
	}
}

// TestGetMetric_NotFound は存在しないメトリクスでNotFoundエラーが返ることを検証する。
func TestGetMetric_NotFound(t *testing.T) {
	repo := &mockMetricRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Metric, error) {
			return nil, nil
		},
	}

	svc := NewService(repo)
	_, err := svc.GetMetric(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "METRIC_NOT_FOUND" {
		t.Errorf("Code = %q, want %q", apiErr.Code, "METRIC_NOT_FOUND")
	}
}

// TestCreateMetric_Success はメトリクス記録を検証する。
func TestCreateMetric_Success(t *testing.T) {
	var created *model.Metric
	repo := &mockMetricRepo{
		createFn: func(ctx context.Context, metric *model.Metric) error {
			created = metric
			return nil
		},
	}

	svc := NewService(repo)
	got, err := svc.CreateMetric(context.Background(), CreateInput{
		SiteID:          "site-1",
		DomainAuthority: 45.5,
		MozRank:         4.2,
		PageAuthority:   38.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("Create was not called")
	}
	if got.ID == "" {
		t.Error("expected generated ID")
	}
	if got.DomainAuthority != 45.5 {
		t.Errorf("DomainAuthority = %v, want 45.5", got.DomainAuthority)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

// TestCreateMetric_MissingSiteReference は存在しないサイト参照で検証エラーが返ることを検証する。
func TestCreateMetric_MissingSiteReference(t *testing.T) {
	repo := &mockMetricRepo{
		createFn: func(ctx context.Context, metric *model.Metric) error {
			return repository.ErrSiteReferenceMissing
		},
	}

	svc := NewService(repo)
	_, err := svc.CreateMetric(context.Background(), CreateInput{SiteID: "missing"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "INVALID_METRIC_PAYLOAD" {
		t.Errorf("Code = %q, want %q", apiErr.Code, "INVALID_METRIC_PAYLOAD")
	}
}

// TestUpdateMetric_PartialUpdate は指定フィールドのみ更新されることを検証する。
func TestUpdateMetric_PartialUpdate(t *testing.T) {
	repo := &mockMetricRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Metric, error) {
			return &model.Metric{
				ID: id, SiteID: "site-1",
				DomainAuthority: 40, MozRank: 4.0, PageAuthority: 35,
			}, nil
		},
	}

	newDA := 50.0
	svc := NewService(repo)
	got, err := svc.UpdateMetric(context.Background(), "m-1", UpdateInput{DomainAuthority: &newDA})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.DomainAuthority != 50.0 {
		t.Errorf("DomainAuthority = %v, want 50.0", got.DomainAuthority)
	}
	if got.MozRank != 4.0 {
		t.Errorf("MozRank = %v, should be unchanged", got.MozRank)
	}
	if got.PageAuthority != 35.0 {
		t.Errorf("PageAuthority = %v, should be unchanged", got.PageAuthority)
	}
}

// TestUpdateMetric_NotFound は存在しないメトリクスの更新でNotFoundエラーが返ることを検証する。
func TestUpdateMetric_NotFound(t *testing.T) {
	repo := &mockMetricRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Metric, error) {
			return nil, nil
		},
		updateFn: func(ctx context.Context, metric *model.Metric) error {
			t.Fatal("Update should not be called")
			return nil
		},
	}

	svc := NewService(repo)
	_, err := svc.UpdateMetric(context.Background(), "missing", UpdateInput{})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "METRIC_NOT_FOUND" {
		t.Errorf("Code = %q, want %q", apiErr.Code, "METRIC_NOT_FOUND")
	}
}

// TestDeleteMetric_Success はメトリクス削除を検証する。
func TestDeleteMetric_Success(t *testing.T) {
	deleted := false
	repo := &mockMetricRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Metric, error) {
			return &model.Metric{ID: id, SiteID: "site-1"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}

	svc := NewService(repo)
	if err := svc.DeleteMetric(context.Background(), "m-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("Delete was not called")
	}
}

// TestDeleteMetric_NotFound は存在しないメトリクスの削除でNotFoundエラーが返ることを検証する。
func TestDeleteMetric_NotFound(t *testing.T) {
	repo := &mockMetricRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Metric, error) {
			return nil, nil
		},
	}

	svc := NewService(repo)
	err := svc.DeleteMetric(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}
