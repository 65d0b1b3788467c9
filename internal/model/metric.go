// Package model はドメインモデルを定義する。
package model

import "time"

// Metric はサイトに紐づくSEO計測値のスナップショットを表す。
// 1サイトに対して時系列で複数レコードが蓄積される。
type Metric struct {
	ID              string
	SiteID          string
	DomainAuthority float64
	MozRank         float64
	PageAuthority   float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
