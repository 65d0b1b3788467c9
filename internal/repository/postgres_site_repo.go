package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/seotrack/internal/model"
)

// PostgresSiteRepo はPostgreSQLを使用したサイトリポジトリ。
type PostgresSiteRepo struct {
	db *sql.DB
}

// NewPostgresSiteRepo はPostgresSiteRepoを生成する。
func NewPostgresSiteRepo(db *sql.DB) *PostgresSiteRepo {
	return &PostgresSiteRepo{db: db}
}

// FindByID は指定IDのサイトを取得する。見つからない場合はnilを返す。
func (r *PostgresSiteRepo) FindByID(ctx context.Context, id string) (*model.Site, error) {
	site := &model.Site{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, url, created_at, updated_at FROM sites WHERE id = $1`,
		id,
	).Scan(&site.ID, &site.URL, &site.CreatedAt, &site.UpdatedAt)

	if isMissingRowResult(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サイトの取得に失敗しました: %w", err)
	}

	return site, nil
}

// FindByURL は正規化済みURLの完全一致でサイトを検索する。見つからない場合はnilを返す。
func (r *PostgresSiteRepo) FindByURL(ctx context.Context, url string) (*model.Site, error) {
	site := &model.Site{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, url, created_at, updated_at FROM sites WHERE url = $1`,
		url,
	).Scan(&site.ID, &site.URL, &site.CreatedAt, &site.UpdatedAt)

	if isMissingRowResult(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("URLによるサイトの検索に失敗しました: %w", err)
	}

	return site, nil
}

// Create はサイトを作成する。urlユニーク制約違反の場合はErrDuplicateSiteURLを返す。
func (r *PostgresSiteRepo) Create(ctx context.Context, site *model.Site) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sites (id, url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)`,
		site.ID, site.URL, site.CreatedAt, site.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSiteURL
		}
		return fmt.Errorf("サイトの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateURL は指定サイトのURLを更新する。
func (r *PostgresSiteRepo) UpdateURL(ctx context.Context, id, url string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sites SET url = $2, updated_at = NOW() WHERE id = $1`,
		id, url,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSiteURL
		}
		return fmt.Errorf("サイトURLの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("サイトが見つかりません: %s", id)
	}
	return nil
}

// DeleteByID は指定IDのサイトを削除する。
func (r *PostgresSiteRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sites WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("サイトの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("サイトが見つかりません: %s", id)
	}
	return nil
}

// ListTracked は1人以上のユーザーがトラッキング中のサイト一覧を返す。
func (r *PostgresSiteRepo) ListTracked(ctx context.Context) ([]*model.Site, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.url, s.created_at, s.updated_at
		 FROM sites s
		 WHERE EXISTS (SELECT 1 FROM user_sites us WHERE us.site_id = s.id)
		 ORDER BY s.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("トラッキング中サイト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sites []*model.Site
	for rows.Next() {
		site := &model.Site{}
		if err := rows.Scan(&site.ID, &site.URL, &site.CreatedAt, &site.UpdatedAt); err != nil {
			return nil, fmt.Errorf("サイト行の読み取りに失敗しました: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("サイト一覧の走査に失敗しました: %w", err)
	}
	return sites, nil
}

// compile-time interface check
var _ SiteRepository = (*PostgresSiteRepo)(nil)
