package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/seotrack/internal/model"
)

// --- モック ---

type mockSiteService struct {
	getFn       func(ctx context.Context, siteID string) (*model.Site, error)
	updateURLFn func(ctx context.Context, siteID, rawURL string) (*model.Site, error)
	deleteFn    func(ctx context.Context, siteID string) error
}

func (m *mockSiteService) GetSite(ctx context.Context, siteID string) (*model.Site, error) {
	return m.getFn(ctx, siteID)
}
func (m *mockSiteService) UpdateSiteURL(ctx context.Context, siteID, rawURL string) (*model.Site, error) {
	return m.updateURLFn(ctx, siteID, rawURL)
}
func (m *mockSiteService) DeleteSite(ctx context.Context, siteID string) error {
	return m.deleteFn(ctx, siteID)
}

func siteTestRouter(h *SiteHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/sites/{id}", h.GetSite)
	r.Patch("/sites/{id}", h.UpdateSite)
	r.Delete("/sites/{id}", h.DeleteSite)
	return r
}

// --- テスト ---

// TestGetSite_Success はサイト取得の成功を検証する。
func TestGetSite_Success(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc := &mockSiteService{
		getFn: func(ctx context.Context, siteID string) (*model.Site, error) {
			return &model.Site{ID: siteID, URL: "https://example.com", CreatedAt: now, UpdatedAt: now}, nil
		},
	}
	router := siteTestRouter(NewSiteHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/sites/site-1", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["id"] != "site-1" {
		t.Errorf("id = %v", body["id"])
	}
	if body["url"] != "https://example.com" {
		t.Errorf("url = %v", body["url"])
	}
	if _, ok := body["created_at"]; !ok {
		t.Error("expected created_at field")
	}
}

// TestGetSite_NotFound は存在しないサイトで404が返ることを検証する。
func TestGetSite_NotFound(t *testing.T) {
	svc := &mockSiteService{
		getFn: func(ctx context.Context, siteID string) (*model.Site, error) {
			return nil, model.NewSiteNotFoundError(siteID)
		},
	}
	router := siteTestRouter(NewSiteHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/sites/missing", ""))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var errBody apiErrorResponse
	json.NewDecoder(w.Body).Decode(&errBody)
	if errBody.Code != "SITE_NOT_FOUND" {
		t.Errorf("error code = %q", errBody.Code)
	}
}

// TestUpdateSite_Success はURL更新の成功を検証する。
func TestUpdateSite_Success(t *testing.T) {
	svc := &mockSiteService{
		updateURLFn: func(ctx context.Context, siteID, rawURL string) (*model.Site, error) {
			if rawURL != "https://new.example.com" {
				t.Errorf("rawURL = %q", rawURL)
			}
			return &model.Site{ID: siteID, URL: rawURL}, nil
		},
	}
	router := siteTestRouter(NewSiteHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPatch, "/sites/site-1",
		`{"site":{"url":"https://new.example.com"}}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	json.NewDecoder(w.Body).Decode(&body)
	if body["url"] != "https://new.example.com" {
		t.Errorf("url = %v", body["url"])
	}
}

// TestUpdateSite_DuplicateURLConflict は既存サイトと同一URLへの更新で409が返ることを検証する。
func TestUpdateSite_DuplicateURLConflict(t *testing.T) {
	svc := &mockSiteService{
		updateURLFn: func(ctx context.Context, siteID, rawURL string) (*model.Site, error) {
			return nil, model.NewDuplicateSiteURLError(rawURL)
		},
	}
	router := siteTestRouter(NewSiteHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPatch, "/sites/site-1",
		`{"site":{"url":"https://taken.example.com"}}`))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	var errBody apiErrorResponse
	json.NewDecoder(w.Body).Decode(&errBody)
	if errBody.Code != "DUPLICATE_SITE_URL" {
		t.Errorf("error code = %q", errBody.Code)
	}
}

// TestUpdateSite_UnknownFieldRejected はurl以外のフィールド指定で422が返ることを検証する。
func TestUpdateSite_UnknownFieldRejected(t *testing.T) {
	svc := &mockSiteService{
		updateURLFn: func(ctx context.Context, siteID, rawURL string) (*model.Site, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	router := siteTestRouter(NewSiteHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPatch, "/sites/site-1",
		`{"site":{"title":"タイトル"}}`))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

// TestUpdateSite_MissingEnvelope はsiteオブジェクト欠落で422が返ることを検証する。
func TestUpdateSite_MissingEnvelope(t *testing.T) {
	svc := &mockSiteService{
		updateURLFn: func(ctx context.Context, siteID, rawURL string) (*model.Site, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	router := siteTestRouter(NewSiteHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPatch, "/sites/site-1",
		`{"url":"https://new.example.com"}`))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

// TestDeleteSite_NoContent はサイト削除の成功で204が返ることを検証する。
func TestDeleteSite_NoContent(t *testing.T) {
	svc := &mockSiteService{
		deleteFn: func(ctx context.Context, siteID string) error {
			return nil
		},
	}
	router := siteTestRouter(NewSiteHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodDelete, "/sites/site-1", ""))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

// TestDeleteSite_NotFound は存在しないサイトの削除で404が返ることを検証する。
func TestDeleteSite_NotFound(t *testing.T) {
	svc := &mockSiteService{
		deleteFn: func(ctx context.Context, siteID string) error {
			return model.NewSiteNotFoundError(siteID)
		},
	}
	router := siteTestRouter(NewSiteHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodDelete, "/sites/missing", ""))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
