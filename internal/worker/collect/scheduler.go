// Package collect はトラッキング中サイトのバックグラウンド計測処理を提供する。
// スケジューラ、コレクター、オンページシグナル抽出を含む。
package collect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/seotrack/internal/model"
	"github.com/hitoshi/seotrack/internal/repository"
)

// SiteCollectorService はサイト計測の実行インターフェース。
type SiteCollectorService interface {
	// Collect は指定サイトを計測し、メトリクスサンプルを記録する。
	Collect(ctx context.Context, site *model.Site) error
}

// Scheduler はサイト計測のスケジューリングと並列制御を行う。
// ティッカーで計測対象サイトを取得し、semaphoreパターンで
// 最大並列数を制御しながら計測を実行する。
type Scheduler struct {
	siteRepo       repository.SiteRepository
	collector      SiteCollectorService
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewScheduler(
	siteRepo repository.SiteRepository,
	collector SiteCollectorService,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Scheduler{
		siteRepo:       siteRepo,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("計測スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("計測サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("計測スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("計測サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はトラッキング中のサイトを1回取得し、並列で計測を実行する。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	sites, err := s.siteRepo.ListTracked(ctx)
	if err != nil {
		return err
	}

	if len(sites) == 0 {
		s.logger.Info("計測対象のサイトはありません")
		return nil
	}

	s.logger.Info("計測サイクルを開始します",
		slog.Int("site_count", len(sites)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, site := range sites {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(st *model.Site) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := s.collector.Collect(ctx, st); err != nil {
				s.logger.Error("サイト計測に失敗しました",
					slog.String("site_id", st.ID),
					slog.String("url", st.URL),
					slog.String("error", err.Error()),
				)
			}
		}(site)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("計測サイクルが完了しました",
		slog.Int("site_count", len(sites)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
