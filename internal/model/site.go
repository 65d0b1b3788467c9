// Package model はドメインモデルを定義する。
package model

import "time"

// Site はトラッキング対象のURLをグローバルに一意なレコードとして表す。
// URLはサービス全体で重複登録されず、特定のユーザーに所有されない。
type Site struct {
	ID        string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserSite はユーザーとサイトのトラッキング関係を表す。
// (UserID, SiteID) の組はサービス全体で一意であり、
// Titleはユーザーごとの表示名としてサイトの識別情報を上書きする。
type UserSite struct {
	ID        string
	UserID    string
	SiteID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
