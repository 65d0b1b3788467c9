// Package tracking はユーザーごとのサイト追跡のドメインロジックを提供する。
// サイト本体は共有リソースだが、タイトルはユーザーごとの属性であり、
// user_sites行に保持される。
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/seotrack/internal/model"
	"github.com/hitoshi/seotrack/internal/repository"
	"github.com/hitoshi/seotrack/internal/site"
)

// SiteRegistry はサイト台帳への依存を表すインターフェース。
type SiteRegistry interface {
	FindOrCreateByURL(ctx context.Context, rawURL string) (*model.Site, error)
}

// TitleSanitizer はタイトルのサニタイズへの依存を表すインターフェース。
type TitleSanitizer interface {
	Sanitize(raw string) string
}

// TrackedSite はユーザー視点のサイト表示。
// サイトの共有属性にユーザーごとのタイトルを重ねたもの。
type TrackedSite struct {
	SiteID    string
	URL       string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Metrics はinclude指定時のみ設定される。指定時は空でも非nil。
	Metrics []*model.Metric
}

// Service はサイト追跡のサービス層。
// 追跡一覧取得、追跡登録、タイトル更新、追跡解除を提供する。
type Service struct {
	registry     SiteRegistry
	userSiteRepo repository.UserSiteRepository
	siteRepo     repository.SiteRepository
	metricRepo   repository.MetricRepository
	sanitizer    TitleSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	registry SiteRegistry,
	userSiteRepo repository.UserSiteRepository,
	siteRepo repository.SiteRepository,
	metricRepo repository.MetricRepository,
	sanitizer TitleSanitizer,
) *Service {
	return &Service{
		registry:     registry,
		userSiteRepo: userSiteRepo,
		siteRepo:     siteRepo,
		metricRepo:   metricRepo,
		sanitizer:    sanitizer,
	}
}

// ListTrackedSites はユーザーの追跡サイト一覧を追跡登録順で返す。
// includeMetricsが真の場合、各サイトのメトリクス履歴をネストして返す。
// N+1を避けるためメトリクスは全サイト分を1クエリで取得してから振り分ける。
func (s *Service) ListTrackedSites(ctx context.Context, userID string, includeMetrics bool) ([]TrackedSite, error) {
	rows, err := s.userSiteRepo.ListByUserIDWithSite(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("追跡サイト一覧の取得に失敗しました: %w", err)
	}

	results := make([]TrackedSite, 0, len(rows))
	for _, row := range rows {
		results = append(results, TrackedSite{
			SiteID:    row.SiteID,
			URL:       row.SiteURL,
			Title:     row.Title,
			CreatedAt: row.SiteCreatedAt,
			UpdatedAt: row.SiteUpdatedAt,
		})
	}

	if !includeMetrics {
		return results, nil
	}

	siteIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		siteIDs = append(siteIDs, row.SiteID)
	}

	metrics, err := s.metricRepo.ListBySiteIDs(ctx, siteIDs)
	if err != nil {
		return nil, fmt.Errorf("メトリクスの取得に失敗しました: %w", err)
	}

	bySite := make(map[string][]*model.Metric, len(siteIDs))
	for _, m := range metrics {
		bySite[m.SiteID] = append(bySite[m.SiteID], m)
	}

	for i := range results {
		ms := bySite[results[i].SiteID]
		if ms == nil {
			ms = make([]*model.Metric, 0)
		}
		results[i].Metrics = ms
	}

	return results, nil
}

// TrackSite はユーザーのサイト追跡を登録する。
// URLに対応するサイトが未登録であれば台帳に作成し、追跡関係を結ぶ。
// タイトル未指定の場合はURLのホスト名をデフォルトタイトルとして使用する。
// 同一ユーザーが同一サイトを既に追跡している場合は重複エラーを返す。
func (s *Service) TrackSite(ctx context.Context, userID, rawURL string, title *string) (*TrackedSite, error) {
	st, err := s.registry.FindOrCreateByURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	existing, err := s.userSiteRepo.FindByUserAndSite(ctx, userID, st.ID)
	if err != nil {
		return nil, fmt.Errorf("追跡関係の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUserSiteError()
	}

	resolvedTitle := ""
	if title != nil {
		resolvedTitle = s.sanitizer.Sanitize(*title)
	} else {
		resolvedTitle = site.DefaultTitle(st.URL)
	}

	now := time.Now()
	userSite := &model.UserSite{
		ID:        uuid.New().String(),
		UserID:    userID,
		SiteID:    st.ID,
		Title:     resolvedTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userSiteRepo.Create(ctx, userSite); err != nil {
		// 同時登録の競合も重複として扱う
		if errors.Is(err, repository.ErrDuplicateUserSite) {
			return nil, model.NewDuplicateUserSiteError()
		}
		return nil, fmt.Errorf("追跡関係の登録に失敗しました: %w", err)
	}

	return &TrackedSite{
		SiteID:    st.ID,
		URL:       st.URL,
		Title:     resolvedTitle,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}, nil
}

// UpdateSiteTitle はユーザーの追跡サイトのタイトルを更新する。
// サイト本体には影響せず、同じサイトを追跡する他ユーザーのタイトルは変わらない。
func (s *Service) UpdateSiteTitle(ctx context.Context, userID, siteID, title string) error {
	st, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return fmt.Errorf("サイトの取得に失敗しました: %w", err)
	}
	if st == nil {
		return model.NewSiteNotFoundError(siteID)
	}

	userSite, err := s.userSiteRepo.FindByUserAndSite(ctx, userID, siteID)
	if err != nil {
		return fmt.Errorf("追跡関係の検索に失敗しました: %w", err)
	}
	if userSite == nil {
		return model.NewUserSiteNotFoundError(siteID)
	}

	if err := s.userSiteRepo.UpdateTitle(ctx, userSite.ID, s.sanitizer.Sanitize(title)); err != nil {
		return fmt.Errorf("タイトルの更新に失敗しました: %w", err)
	}
	return nil
}

// UntrackSite はユーザーのサイト追跡を解除する。
// 追跡関係のみを削除し、サイト本体と記録済みメトリクスは残す。
func (s *Service) UntrackSite(ctx context.Context, userID, siteID string) error {
	st, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return fmt.Errorf("サイトの取得に失敗しました: %w", err)
	}
	if st == nil {
		return model.NewSiteNotFoundError(siteID)
	}

	userSite, err := s.userSiteRepo.FindByUserAndSite(ctx, userID, siteID)
	if err != nil {
		return fmt.Errorf("追跡関係の検索に失敗しました: %w", err)
	}
	if userSite == nil {
		return model.NewUserSiteNotFoundError(siteID)
	}

	if err := s.userSiteRepo.Delete(ctx, userSite.ID); err != nil {
		return fmt.Errorf("追跡解除に失敗しました: %w", err)
	}
	return nil
}
