package collect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/seotrack/internal/model"
	"github.com/hitoshi/seotrack/internal/repository"
	"github.com/hitoshi/seotrack/internal/telemetry"
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// 計測失敗の理由ラベル。telemetryのreason次元に使用する。
const (
	failReasonBlockedURL = "blocked_url"
	failReasonFetchError = "fetch_error"
	failReasonHTTPStatus = "http_status"
	failReasonParseError = "parse_error"
	failReasonStore      = "store_error"
)

// Collector は個別サイトのページフェッチとSEO指標サンプルの記録を行う。
// SSRF検証、シグナル抽出、前回サンプルからの有界ウォークによる
// 指標算出、MetricRepositoryによる保存を実行する。
type Collector struct {
	metricRepo   repository.MetricRepository
	ssrfGuard    SSRFValidator
	telemetry    telemetry.TelemetryCollector
	logger       *slog.Logger
	timeout      time.Duration
	maxBodySize  int64
	sampleMinAge time.Duration
}

// NewCollector はCollectorの新しいインスタンスを生成する。
func NewCollector(
	metricRepo repository.MetricRepository,
	ssrfGuard SSRFValidator,
	tel telemetry.TelemetryCollector,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	sampleMinAge time.Duration,
) *Collector {
	return &Collector{
		metricRepo:   metricRepo,
		ssrfGuard:    ssrfGuard,
		telemetry:    tel,
		logger:       logger,
		timeout:      timeout,
		maxBodySize:  maxBodySize,
		sampleMinAge: sampleMinAge,
	}
}

// Collect はサイトのページを計測し、新しいメトリクスサンプルを記録する。
// 最新サンプルが十分新しい場合は何もしない。
// URLが不正・到達不能・パース不能なサイトは警告ログを出してスキップする
// (緩い登録検証のため不正なURLが存在しうる)。
func (c *Collector) Collect(ctx context.Context, site *model.Site) error {
	start := time.Now()

	// 最新サンプルの鮮度チェック
	latest, err := c.metricRepo.FindLatestBySiteID(ctx, site.ID)
	if err != nil {
		return fmt.Errorf("最新メトリクスの取得に失敗: %w", err)
	}
	if latest != nil && time.Since(latest.CreatedAt) < c.sampleMinAge {
		c.logger.Debug("最新サンプルが十分新しいためスキップします",
			slog.String("site_id", site.ID),
			slog.Time("latest_at", latest.CreatedAt),
		)
		return nil
	}

	// SSRF検証
	if err := c.ssrfGuard.ValidateURL(site.URL); err != nil {
		c.logger.Warn("計測対象URLの検証に失敗したためスキップします",
			slog.String("site_id", site.ID),
			slog.String("url", site.URL),
			slog.String("error", err.Error()),
		)
		c.telemetry.RecordCollectFailure(site.ID, failReasonBlockedURL)
		return nil
	}

	// ページフェッチ
	client := c.ssrfGuard.NewSafeClient(c.timeout, c.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.URL, nil)
	if err != nil {
		c.logger.Warn("リクエストの作成に失敗したためスキップします",
			slog.String("site_id", site.ID),
			slog.String("url", site.URL),
			slog.String("error", err.Error()),
		)
		c.telemetry.RecordCollectFailure(site.ID, failReasonFetchError)
		return nil
	}
	req.Header.Set("User-Agent", "SeoTrack/1.0 Metrics Collector")
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Warn("ページフェッチに失敗したためスキップします",
			slog.String("site_id", site.ID),
			slog.String("url", site.URL),
			slog.String("error", err.Error()),
		)
		c.telemetry.RecordCollectFailure(site.ID, failReasonFetchError)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("ページフェッチが非2xxで終了したためスキップします",
			slog.String("site_id", site.ID),
			slog.String("url", site.URL),
			slog.Int("http_status", resp.StatusCode),
		)
		c.telemetry.RecordCollectFailure(site.ID, failReasonHTTPStatus)
		return nil
	}

	// シグナル抽出（最大サイズ制限付き）
	signals, err := ExtractSignals(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		c.logger.Warn("ページのパースに失敗したためスキップします",
			slog.String("site_id", site.ID),
			slog.String("url", site.URL),
			slog.String("error", err.Error()),
		)
		c.telemetry.RecordCollectFailure(site.ID, failReasonParseError)
		return nil
	}

	// 前回サンプルからの有界ウォークで指標を算出
	da, mr, pa := computeSample(latest, signals)

	now := time.Now()
	metric := &model.Metric{
		ID:              uuid.New().String(),
		SiteID:          site.ID,
		DomainAuthority: da,
		MozRank:         mr,
		PageAuthority:   pa,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := c.metricRepo.Create(ctx, metric); err != nil {
		c.logger.Error("メトリクスサンプルの保存に失敗しました",
			slog.String("site_id", site.ID),
			slog.String("error", err.Error()),
		)
		c.telemetry.RecordCollectFailure(site.ID, failReasonStore)
		return fmt.Errorf("メトリクス保存に失敗: %w", err)
	}

	duration := time.Since(start)
	c.telemetry.RecordSampleRecorded()
	c.telemetry.RecordCollectSuccess(site.ID)
	c.telemetry.RecordCollectLatency(duration)

	c.logger.Info("サイト計測が完了しました",
		slog.String("site_id", site.ID),
		slog.String("url", site.URL),
		slog.Float64("domain_authority", da),
		slog.Float64("moz_rank", mr),
		slog.Float64("page_authority", pa),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// signalScore はオンページシグナルを0〜6.5程度のスコアに集約する。
func signalScore(signals *PageSignals) float64 {
	score := 0.0
	if signals.Title != "" {
		score += 1.0
	}
	if signals.MetaDescription != "" {
		score += 1.0
	}

	headings := float64(signals.HeadingCount)
	if headings > 10 {
		headings = 10
	}
	score += headings * 0.2

	links := float64(signals.LinkCount)
	if links > 50 {
		links = 50
	}
	score += links * 0.05

	return score
}

// computeSample は前回サンプルとシグナルから次の指標値を算出する。
// 前回サンプルがある場合はシグナルスコアに応じた小幅の増減を適用し、
// ない場合はシグナルスコアから初期値を導出する。
// domain_authority/page_authorityは0〜100、moz_rankは0〜10に収める。
func computeSample(prev *model.Metric, signals *PageSignals) (da, mr, pa float64) {
	score := signalScore(signals)

	if prev == nil {
		da = clamp(20+score*5, 0, 100)
		pa = clamp(15+score*4, 0, 100)
		mr = clamp(2+score*0.8, 0, 10)
		return da, mr, pa
	}

	// スコア中央値3.0を境に上下する
	nudge := (score - 3.0) * 0.5
	da = clamp(prev.DomainAuthority+nudge, 0, 100)
	pa = clamp(prev.PageAuthority+nudge*0.8, 0, 100)
	mr = clamp(prev.MozRank+nudge*0.1, 0, 10)
	return da, mr, pa
}

// clamp はvをmin〜maxの範囲に収める。
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
