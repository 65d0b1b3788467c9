package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/seotrack/internal/model"
)

// PostgresMetricRepo はPostgreSQLを使用したメトリクスリポジトリ。
type PostgresMetricRepo struct {
	db *sql.DB
}

// NewPostgresMetricRepo はPostgresMetricRepoを生成する。
func NewPostgresMetricRepo(db *sql.DB) *PostgresMetricRepo {
	return &PostgresMetricRepo{db: db}
}

// FindByID は指定IDのメトリクスを取得する。見つからない場合はnilを返す。
func (r *PostgresMetricRepo) FindByID(ctx context.Context, id string) (*model.Metric, error) {
	m := &model.Metric{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, site_id, domain_authority, moz_rank, page_authority, created_at, updated_at
		 FROM metrics WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.SiteID, &m.DomainAuthority, &m.MozRank, &m.PageAuthority, &m.CreatedAt, &m.UpdatedAt)

	if isMissingRowResult(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メトリクスの取得に失敗しました: %w", err)
	}

	return m, nil
}

// List は全メトリクスを作成日時の昇順で返す。
func (r *PostgresMetricRepo) List(ctx context.Context) ([]*model.Metric, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, site_id, domain_authority, moz_rank, page_authority, created_at, updated_at
		 FROM metrics ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("メトリクス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

// ListBySiteIDs は複数サイトのメトリクスを1クエリでまとめて取得する。
func (r *PostgresMetricRepo) ListBySiteIDs(ctx context.Context, siteIDs []string) ([]*model.Metric, error) {
	if len(siteIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, site_id, domain_authority, moz_rank, page_authority, created_at, updated_at
		 FROM metrics WHERE site_id = ANY($1) ORDER BY created_at ASC`,
		pq.Array(siteIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("サイト別メトリクスの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

// FindLatestBySiteID は指定サイトの最新メトリクスを取得する。見つからない場合はnilを返す。
func (r *PostgresMetricRepo) FindLatestBySiteID(ctx context.Context, siteID string) (*model.Metric, error) {
	m := &model.Metric{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, site_id, domain_authority, moz_rank, page_authority, created_at, updated_at
		 FROM metrics WHERE site_id = $1 ORDER BY created_at DESC LIMIT 1`,
		siteID,
	).Scan(&m.ID, &m.SiteID, &m.DomainAuthority, &m.MozRank, &m.PageAuthority, &m.CreatedAt, &m.UpdatedAt)

	if isMissingRowResult(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最新メトリクスの取得に失敗しました: %w", err)
	}

	return m, nil
}

// Create はメトリクスを作成する。
// site_idが存在しないサイトを参照する場合はErrSiteReferenceMissingを返す。
func (r *PostgresMetricRepo) Create(ctx context.Context, m *model.Metric) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO metrics (id, site_id, domain_authority, moz_rank, page_authority, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SiteID, m.DomainAuthority, m.MozRank, m.PageAuthority, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrSiteReferenceMissing
		}
		return fmt.Errorf("メトリクスの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は既存メトリクスを上書き更新する。
func (r *PostgresMetricRepo) Update(ctx context.Context, m *model.Metric) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE metrics
		 SET site_id = $2, domain_authority = $3, moz_rank = $4, page_authority = $5, updated_at = NOW()
		 WHERE id = $1`,
		m.ID, m.SiteID, m.DomainAuthority, m.MozRank, m.PageAuthority,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrSiteReferenceMissing
		}
		return fmt.Errorf("メトリクスの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("メトリクスが見つかりません: %s", m.ID)
	}
	return nil
}

// Delete は指定IDのメトリクスを削除する。
func (r *PostgresMetricRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM metrics WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("メトリクスの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("メトリクスが見つかりません: %s", id)
	}
	return nil
}

// scanMetrics はメトリクス行の集合をスキャンする。
func scanMetrics(rows *sql.Rows) ([]*model.Metric, error) {
	var metrics []*model.Metric
	for rows.Next() {
		m := &model.Metric{}
		if err := rows.Scan(&m.ID, &m.SiteID, &m.DomainAuthority, &m.MozRank, &m.PageAuthority, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("メトリクス行の読み取りに失敗しました: %w", err)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メトリクス一覧の走査に失敗しました: %w", err)
	}
	return metrics, nil
}

// compile-time interface check
var _ MetricRepository = (*PostgresMetricRepo)(nil)
