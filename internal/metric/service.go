// Package metric はSEO指標レコードのドメインロジックを提供する。
package metric

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/seotrack/internal/model"
	"github.com/hitoshi/seotrack/internal/repository"
)

// CreateInput はメトリクス作成の入力。
type CreateInput struct {
	SiteID          string
	DomainAuthority float64
	MozRank         float64
	PageAuthority   float64
}

// UpdateInput はメトリクス更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	SiteID          *string
	DomainAuthority *float64
	MozRank         *float64
	PageAuthority   *float64
}

// Service はメトリクスのサービス層。
type Service struct {
	metricRepo repository.MetricRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(metricRepo repository.MetricRepository) *Service {
	return &Service{metricRepo: metricRepo}
}

// ListMetrics は全メトリクスを記録順で返す。
func (s *Service) ListMetrics(ctx context.Context) ([]*model.Metric, error) {
	metrics, err := s.metricRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("メトリクス一覧の取得に失敗しました: %w", err)
	}
	if metrics == nil {
		metrics = make([]*model.Metric, 0)
	}
	return metrics, nil
}

// GetMetric はIDでメトリクスを取得する。存在しない場合はNotFoundエラーを返す。
func (s *Service) GetMetric(ctx context.Context, id string) (*model.Metric, error) {
	metric, err := s.metricRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("メトリクスの取得に失敗しました: %w", err)
	}
	if metric == nil {
		return nil, model.NewMetricNotFoundError(id)
	}
	return metric, nil
}

// CreateMetric はメトリクスを記録する。
// 参照先サイトが存在しない場合は検証エラーを返す。
func (s *Service) CreateMetric(ctx context.Context, input CreateInput) (*model.Metric, error) {
	now := time.Now()
	metric := &model.Metric{
		ID:              uuid.New().String(),
		SiteID:          input.SiteID,
		DomainAuthority: input.DomainAuthority,
		MozRank:         input.MozRank,
		PageAuthority:   input.PageAuthority,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.metricRepo.Create(ctx, metric); err != nil {
		if errors.Is(err, repository.ErrSiteReferenceMissing) {
			return nil, model.NewInvalidMetricPayloadError("指定されたサイトが存在しません")
		}
		return nil, fmt.Errorf("メトリクスの記録に失敗しました: %w", err)
	}
	return metric, nil
}

// UpdateMetric は既存メトリクスを部分更新し、更新後のメトリクスを返す。
func (s *Service) UpdateMetric(ctx context.Context, id string, input UpdateInput) (*model.Metric, error) {
	metric, err := s.metricRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("メトリクスの取得に失敗しました: %w", err)
	}
	if metric == nil {
		return nil, model.NewMetricNotFoundError(id)
	}

	if input.SiteID != nil {
		metric.SiteID = *input.SiteID
	}
	if input.DomainAuthority != nil {
		metric.DomainAuthority = *input.DomainAuthority
	}
	if input.MozRank != nil {
		metric.MozRank = *input.MozRank
	}
	if input.PageAuthority != nil {
		metric.PageAuthority = *input.PageAuthority
	}
	metric.UpdatedAt = time.Now()

	if err := s.metricRepo.Update(ctx, metric); err != nil {
		if errors.Is(err, repository.ErrSiteReferenceMissing) {
			return nil, model.NewInvalidMetricPayloadError("指定されたサイトが存在しません")
		}
		return nil, fmt.Errorf("メトリクスの更新に失敗しました: %w", err)
	}
	return metric, nil
}

// DeleteMetric はメトリクスを削除する。
func (s *Service) DeleteMetric(ctx context.Context, id string) error {
	metric, err := s.metricRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("メトリクスの取得に失敗しました: %w", err)
	}
	if metric == nil {
		return model.NewMetricNotFoundError(id)
	}

	if err := s.metricRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("メトリクスの削除に失敗しました: %w", err)
	}
	return nil
}
