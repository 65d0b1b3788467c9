package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateSiteURL は同一URLのサイトが既に存在する場合に返される。
// sitesテーブルのurlユニーク制約違反から変換される。
var ErrDuplicateSiteURL = errors.New("同一URLのサイトが既に存在します")

// ErrDuplicateUserSite は同一の (user_id, site_id) の組が既に存在する
// 場合に返される。user_sitesテーブルのユニーク制約違反から変換され、
// 同時リクエストの競合でも2番目の書き込みが決定的にこのエラーになる。
var ErrDuplicateUserSite = errors.New("同一のユーザーとサイトの組が既に存在します")

// ErrSiteReferenceMissing は存在しないサイトを参照するレコードを
// 作成しようとした場合に返される。外部キー制約違反から変換される。
var ErrSiteReferenceMissing = errors.New("参照先のサイトが存在しません")

// PostgreSQLエラーコード
const (
	pqUniqueViolation           = "23505"
	pqForeignKeyViolation       = "23503"
	pqInvalidTextRepresentation = "22P02"
)

// isMissingRowResult は該当行なしとして扱うべきエラーか判定する。
// sql.ErrNoRowsに加え、UUID列に非UUID文字列を束縛した検索で発生する
// 22P02 (invalid_text_representation) も該当行なしとみなす。
// パスパラメータ由来の任意文字列をそのままIDとして検索するため、
// 構文的に不正なIDは存在しないレコードと同じ扱いにする。
func isMissingRowResult(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation
}

// isUniqueViolation はユニーク制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// isForeignKeyViolation は外部キー制約違反かどうかを判定する。
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
