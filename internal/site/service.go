// Package site はサイト台帳のドメインロジックを提供する。
// サイトはURLで一意に識別される共有リソースであり、
// ユーザーごとの追跡情報はtrackingパッケージが管理する。
package site

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/seotrack/internal/model"
	"github.com/hitoshi/seotrack/internal/repository"
)

// Service はサイト台帳のサービス層。
// URLによるサイトの検索・登録、管理用の更新・削除を提供する。
type Service struct {
	siteRepo repository.SiteRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(siteRepo repository.SiteRepository) *Service {
	return &Service{siteRepo: siteRepo}
}

// DefaultTitle はURLからデフォルトタイトル（ホスト名）を導出する。
// パースできないURLやホストを持たないURLの場合は空文字列を返す。
// タイトル未指定でサイトを追跡登録した場合に使用される。
func DefaultTitle(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// FindOrCreateByURL はURLに対応するサイトを返す。存在しなければ新規作成する。
// URLの正規化は前後の空白除去のみで、値の妥当性検証は行わない。
// 同一URLの同時登録はsites.urlの一意制約で検出し、既存行を再取得して返す。
func (s *Service) FindOrCreateByURL(ctx context.Context, rawURL string) (*model.Site, error) {
	trimmed := strings.TrimSpace(rawURL)

	existing, err := s.siteRepo.FindByURL(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("サイトの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	site := &model.Site{
		ID:        uuid.New().String(),
		URL:       trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.siteRepo.Create(ctx, site); err != nil {
		// 同時登録で先を越された場合は既存行を返す
		if errors.Is(err, repository.ErrDuplicateSiteURL) {
			raced, findErr := s.siteRepo.FindByURL(ctx, trimmed)
			if findErr != nil {
				return nil, fmt.Errorf("サイトの再取得に失敗しました: %w", findErr)
			}
			if raced == nil {
				return nil, fmt.Errorf("サイトの登録が競合しましたが既存行が見つかりません: %s", trimmed)
			}
			return raced, nil
		}
		return nil, fmt.Errorf("サイトの登録に失敗しました: %w", err)
	}

	return site, nil
}

// GetSite はIDでサイトを取得する。存在しない場合はNotFoundエラーを返す。
func (s *Service) GetSite(ctx context.Context, siteID string) (*model.Site, error) {
	site, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("サイトの取得に失敗しました: %w", err)
	}
	if site == nil {
		return nil, model.NewSiteNotFoundError(siteID)
	}
	return site, nil
}

// UpdateSiteURL はサイトのURLを更新し、更新後のサイトを返す。
// 管理用の操作であり、URLを共有する全ユーザーの表示に影響する。
func (s *Service) UpdateSiteURL(ctx context.Context, siteID, rawURL string) (*model.Site, error) {
	site, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("サイトの取得に失敗しました: %w", err)
	}
	if site == nil {
		return nil, model.NewSiteNotFoundError(siteID)
	}

	trimmed := strings.TrimSpace(rawURL)
	if err := s.siteRepo.UpdateURL(ctx, siteID, trimmed); err != nil {
		if errors.Is(err, repository.ErrDuplicateSiteURL) {
			return nil, model.NewDuplicateSiteURLError(trimmed)
		}
		return nil, fmt.Errorf("サイトURLの更新に失敗しました: %w", err)
	}

	updated, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("更新後のサイト取得に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewSiteNotFoundError(siteID)
	}
	return updated, nil
}

// DeleteSite はサイトを削除する。
// 関連するuser_sitesとmetricsはDB側のON DELETE CASCADEで削除される。
func (s *Service) DeleteSite(ctx context.Context, siteID string) error {
	site, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return fmt.Errorf("サイトの取得に失敗しました: %w", err)
	}
	if site == nil {
		return model.NewSiteNotFoundError(siteID)
	}

	if err := s.siteRepo.DeleteByID(ctx, siteID); err != nil {
		return fmt.Errorf("サイトの削除に失敗しました: %w", err)
	}
	return nil
}
