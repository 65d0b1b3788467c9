package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/seotrack/internal/model"
)

// parseSiteEnvelope はリクエストボディから site オブジェクトを取り出す。
// トップレベルの余分なキーは無視する。
// siteキーの欠落、またはオブジェクト以外の値の場合はAPIErrorを返す。
func parseSiteEnvelope(r *http.Request) (map[string]json.RawMessage, *model.APIError) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, model.NewInvalidSitePayloadError("リクエストボディの解析に失敗しました")
	}

	raw, ok := body["site"]
	if !ok {
		return nil, model.NewInvalidSitePayloadError("siteが指定されていません")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope == nil {
		return nil, model.NewInvalidSitePayloadError("siteはオブジェクトである必要があります")
	}

	return envelope, nil
}

// coerceScalar はJSONスカラー値を文字列へ変換する。
// URLの妥当性検証を行わない方針のため、文字列以外のスカラー
// (true, 123 等)はJSONリテラルのテキスト表現をそのまま採用する。
// 値がnullまたは欠落している場合は ok=false を返す。
func coerceScalar(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, true
	}

	// オブジェクトと配列はスカラーとして扱わない
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return "", false
	}

	return string(trimmed), true
}

// parseInclude はクエリ文字列からネスト読み込み指定を解釈する。
// Rails由来のフロントエンドに合わせ、include=metrics と include[]=metrics の
// 両方の形式を受け付ける。metrics以外のキーはAPIErrorを返す。
func parseInclude(r *http.Request) (bool, *model.APIError) {
	query := r.URL.Query()

	values := append(query["include"], query["include[]"]...)
	if len(values) == 0 {
		return false, nil
	}

	includeMetrics := false
	for _, v := range values {
		for _, key := range strings.Split(v, ",") {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if key != "metrics" {
				return false, model.NewInvalidIncludeError(key)
			}
			includeMetrics = true
		}
	}

	return includeMetrics, nil
}
