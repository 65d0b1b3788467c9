// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/seotrack/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
// セッションの発行は外部の認証基盤が行うため、Createは提供しない。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。
	// 見つからない場合および期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SiteRepository はサイトデータの永続化インターフェース。
type SiteRepository interface {
	// FindByID は指定IDのサイトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Site, error)

	// FindByURL は正規化済みURLの完全一致でサイトを検索する。
	// 見つからない場合はnilを返す。
	FindByURL(ctx context.Context, url string) (*model.Site, error)

	// Create はサイトを作成する。
	// urlユニーク制約違反の場合はErrDuplicateSiteURLを返す。
	Create(ctx context.Context, site *model.Site) error

	// UpdateURL は指定サイトのURLを更新する。
	UpdateURL(ctx context.Context, id, url string) error

	// DeleteByID は指定IDのサイトを削除する。
	// 関連するuser_sites、metricsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// ListTracked は1人以上のユーザーがトラッキング中のサイト一覧を返す。
	// バックグラウンドのメトリクス収集対象を決定するために使用する。
	ListTracked(ctx context.Context) ([]*model.Site, error)
}

// UserSiteRepository はユーザーとサイトのトラッキング関係の永続化インターフェース。
type UserSiteRepository interface {
	// FindByUserAndSite はユーザーIDとサイトIDでトラッキング関係を検索する。
	// 見つからない場合はnilを返す。
	FindByUserAndSite(ctx context.Context, userID, siteID string) (*model.UserSite, error)

	// Create はトラッキング関係を作成する。
	// (user_id, site_id) ユニーク制約違反の場合はErrDuplicateUserSiteを返す。
	Create(ctx context.Context, userSite *model.UserSite) error

	// ListByUserIDWithSite はユーザーのトラッキング一覧をサイト情報付きで返す。
	ListByUserIDWithSite(ctx context.Context, userID string) ([]UserSiteWithSite, error)

	// UpdateTitle は指定トラッキング関係のタイトルのみを更新する。
	UpdateTitle(ctx context.Context, id, title string) error

	// Delete は指定IDのトラッキング関係を削除する。
	// 参照先のSiteは削除しない。
	Delete(ctx context.Context, id string) error
}

// MetricRepository はメトリクスデータの永続化インターフェース。
type MetricRepository interface {
	// FindByID は指定IDのメトリクスを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Metric, error)

	// List は全メトリクスを作成日時の昇順で返す。
	List(ctx context.Context) ([]*model.Metric, error)

	// ListBySiteIDs は複数サイトのメトリクスを1クエリでまとめて取得する。
	// サイト一覧へのネスト読み込みでN+1を避けるために使用する。
	ListBySiteIDs(ctx context.Context, siteIDs []string) ([]*model.Metric, error)

	// FindLatestBySiteID は指定サイトの最新メトリクスを取得する。
	// 見つからない場合はnilを返す。
	FindLatestBySiteID(ctx context.Context, siteID string) (*model.Metric, error)

	// Create はメトリクスを作成する。
	// site_idが存在しないサイトを参照する場合はErrSiteReferenceMissingを返す。
	Create(ctx context.Context, metric *model.Metric) error

	// Update は既存メトリクスを上書き更新する。
	Update(ctx context.Context, metric *model.Metric) error

	// Delete は指定IDのメトリクスを削除する。
	Delete(ctx context.Context, id string) error
}

// UserSiteWithSite はトラッキング関係とサイト情報を結合した構造体。
// サイト属性にユーザーごとのタイトルを重ねた一覧表示に使用する。
type UserSiteWithSite struct {
	model.UserSite
	SiteURL       string
	SiteCreatedAt time.Time
	SiteUpdatedAt time.Time
}
