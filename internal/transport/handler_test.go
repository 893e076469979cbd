package transport

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-smear-analyzer/internal/analyzer"
	"go-smear-analyzer/internal/config"
	"go-smear-analyzer/internal/observer"
	"go-smear-analyzer/internal/repository"
	"go-smear-analyzer/internal/service"
	"go-smear-analyzer/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	engine := analyzer.NewSmearAnalyzer()
	t.Cleanup(engine.Close)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(metrics)

	svc := service.NewSmearAnalysisService(
		engine,
		nil,
		repository.NewMemoryRepository(),
		nil,
		nil,
		events,
		models.DefaultCalibration(),
	)

	cfg := &config.Config{
		MaxRequestBodySize: 64 << 20,
		AnalysisTimeout:    60 * time.Second,
	}
	return NewHandler(svc, metrics, cfg)
}

func encodeSmearPNG(t *testing.T, fill color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 600, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 600; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, field, filename string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	for key, value := range extra {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestHandler_HealthCheck(t *testing.T) {
	handler := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "available" {
		t.Errorf("unexpected status: %s", resp["status"])
	}
}

func TestHandler_AnalyzeSmear(t *testing.T) {
	handler := newTestHandler(t)

	data := encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})
	body, contentType := multipartUpload(t, "file", "smear.png", data, map[string]string{"seed": "7"})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(subjectHeader, "lab-1")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var stored models.StoredAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &stored); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if stored.ID == "" {
		t.Error("expected a stored analysis id")
	}
	if stored.Status != "completed" {
		t.Errorf("expected status completed, got %s", stored.Status)
	}
	if stored.Report == nil || !stored.Report.Validation.Valid {
		t.Error("expected a valid analysis report")
	}
}

func TestHandler_AnalyzeSmearRejection(t *testing.T) {
	handler := newTestHandler(t)

	data := encodeSmearPNG(t, color.RGBA{255, 255, 255, 255})
	body, contentType := multipartUpload(t, "image", "blank.png", data, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var stored models.StoredAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &stored); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if stored.Status != "rejected" {
		t.Errorf("expected status rejected, got %s", stored.Status)
	}
	if stored.Report == nil || stored.Report.Validation.Valid {
		t.Error("expected an invalid validation verdict in the report")
	}
}

func TestHandler_AnalyzeSmearMissingFile(t *testing.T) {
	handler := newTestHandler(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandler_ValidateSmear(t *testing.T) {
	handler := newTestHandler(t)

	data := encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})
	body, contentType := multipartUpload(t, "file", "smear.png", data, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/validate", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var verdict models.ValidationVerdict
	if err := json.Unmarshal(w.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !verdict.Valid {
		t.Errorf("expected a valid verdict, got reason %q", verdict.Reason)
	}
}

func TestHandler_ListAnalysesAndStats(t *testing.T) {
	handler := newTestHandler(t)

	data := encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})
	body, contentType := multipartUpload(t, "file", "smear.png", data, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(subjectHeader, "lab-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("analysis setup failed with status %d", w.Code)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	listReq.Header.Set(subjectHeader, "lab-1")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, listReq)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var listResp struct {
		Analyses []models.StoredAnalysis `json:"analyses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(listResp.Analyses) != 1 {
		t.Errorf("expected 1 analysis, got %d", len(listResp.Analyses))
	}

	// Another subject sees nothing.
	otherReq := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	otherReq.Header.Set(subjectHeader, "lab-2")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, otherReq)
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(listResp.Analyses) != 0 {
		t.Errorf("expected no analyses for another subject, got %d", len(listResp.Analyses))
	}

	statsReq := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	statsReq.Header.Set(subjectHeader, "lab-1")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, statsReq)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var stats models.AnalysisStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if stats.TotalAnalyses != 1 || stats.CompletedAnalyses != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHandler_GetAnalysisNotFound(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/missing", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandler_Notes(t *testing.T) {
	handler := newTestHandler(t)

	data := encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})
	body, contentType := multipartUpload(t, "file", "smear.png", data, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("analysis setup failed with status %d", w.Code)
	}
	var stored models.StoredAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &stored); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	noteBody := bytes.NewBufferString(`{"content":"schistocytes near the feathered edge"}`)
	noteReq := httptest.NewRequest(http.MethodPost, "/api/analyses/"+stored.ID+"/notes", noteBody)
	noteReq.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, noteReq)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/analyses/"+stored.ID+"/notes", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, listReq)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var notesResp struct {
		Notes []models.AnalysisNote `json:"notes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &notesResp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(notesResp.Notes) != 1 {
		t.Errorf("expected 1 note, got %d", len(notesResp.Notes))
	}
}

func TestHandler_DeleteAnalysis(t *testing.T) {
	handler := newTestHandler(t)

	data := encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})
	body, contentType := multipartUpload(t, "file", "smear.png", data, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("analysis setup failed with status %d", w.Code)
	}
	var stored models.StoredAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &stored); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	deleteReq := httptest.NewRequest(http.MethodDelete, "/api/analyses/"+stored.ID, nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, deleteReq)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/analyses/"+stored.ID, nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, getReq)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", w.Code)
	}
}
