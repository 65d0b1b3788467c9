package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/seotrack/internal/model"
)

// PostgresUserSiteRepo はPostgreSQLを使用したトラッキング関係リポジトリ。
type PostgresUserSiteRepo struct {
	db *sql.DB
}

// NewPostgresUserSiteRepo はPostgresUserSiteRepoを生成する。
func NewPostgresUserSiteRepo(db *sql.DB) *PostgresUserSiteRepo {
	return &PostgresUserSiteRepo{db: db}
}

// FindByUserAndSite はユーザーIDとサイトIDでトラッキング関係を検索する。
// 見つからない場合はnilを返す。
func (r *PostgresUserSiteRepo) FindByUserAndSite(ctx context.Context, userID, siteID string) (*model.UserSite, error) {
	us := &model.UserSite{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, site_id, title, created_at, updated_at
		 FROM user_sites WHERE user_id = $1 AND site_id = $2`,
		userID, siteID,
	).Scan(&us.ID, &us.UserID, &us.SiteID, &us.Title, &us.CreatedAt, &us.UpdatedAt)

	if isMissingRowResult(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーとサイトによるトラッキング関係の検索に失敗しました: %w", err)
	}

	return us, nil
}

// Create はトラッキング関係を作成する。
// (user_id, site_id) ユニーク制約違反の場合はErrDuplicateUserSiteを返す。
// 同時リクエストの競合はこの制約により2番目の書き込みが決定的に失敗する。
func (r *PostgresUserSiteRepo) Create(ctx context.Context, us *model.UserSite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sites (id, user_id, site_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		us.ID, us.UserID, us.SiteID, us.Title, us.CreatedAt, us.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUserSite
		}
		if isForeignKeyViolation(err) {
			return ErrSiteReferenceMissing
		}
		return fmt.Errorf("トラッキング関係の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUserIDWithSite はユーザーのトラッキング一覧をサイト情報付きで返す。
// sitesとJOINし、サイト属性とユーザーごとのタイトルをまとめて取得する。
func (r *PostgresUserSiteRepo) ListByUserIDWithSite(ctx context.Context, userID string) ([]UserSiteWithSite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			us.id, us.user_id, us.site_id, us.title, us.created_at, us.updated_at,
			s.url, s.created_at, s.updated_at
		 FROM user_sites us
		 JOIN sites s ON us.site_id = s.id
		 WHERE us.user_id = $1
		 ORDER BY us.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("トラッキング一覧（サイト情報付き）の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []UserSiteWithSite
	for rows.Next() {
		var info UserSiteWithSite
		if err := rows.Scan(
			&info.ID, &info.UserID, &info.SiteID, &info.Title, &info.CreatedAt, &info.UpdatedAt,
			&info.SiteURL, &info.SiteCreatedAt, &info.SiteUpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("トラッキング行（サイト情報付き）の読み取りに失敗しました: %w", err)
		}
		results = append(results, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("トラッキング一覧（サイト情報付き）の走査に失敗しました: %w", err)
	}
	return results, nil
}

// UpdateTitle は指定トラッキング関係のタイトルのみを更新する。
func (r *PostgresUserSiteRepo) UpdateTitle(ctx context.Context, id, title string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_sites SET title = $2, updated_at = NOW() WHERE id = $1`,
		id, title,
	)
	if err != nil {
		return fmt.Errorf("タイトルの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("トラッキング関係が見つかりません: %s", id)
	}
	return nil
}

// Delete は指定IDのトラッキング関係を削除する。参照先のSiteは削除しない。
func (r *PostgresUserSiteRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sites WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("トラッキング関係の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("トラッキング関係が見つかりません: %s", id)
	}
	return nil
}

// compile-time interface check
var _ UserSiteRepository = (*PostgresUserSiteRepo)(nil)
