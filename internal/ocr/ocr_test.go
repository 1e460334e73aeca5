package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

type countingClient struct {
	calls int
}

func (c *countingClient) Annotate(context.Context, []byte) (*Result, error) {
	c.calls++
	return &Result{FullText: "ok"}, nil
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "tesseract"})
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %v", err)
	}
	if initErr.Provider != "tesseract" {
		t.Errorf("expected provider 'tesseract', got %q", initErr.Provider)
	}
}

func TestNewGeminiMissingKey(t *testing.T) {
	t.Setenv("CATALYSTS_TEST_GEMINI_KEY", "")
	_, err := New(context.Background(), Config{
		Provider:        ProviderGemini,
		GeminiAPIKeyEnv: "CATALYSTS_TEST_GEMINI_KEY",
	})
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %v", err)
	}
	if !strings.Contains(err.Error(), "CATALYSTS_TEST_GEMINI_KEY") {
		t.Errorf("expected env var name in error, got %q", err.Error())
	}
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("no credentials")
	_, err := Unavailable(cause).Annotate(context.Background(), nil)
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be returned, got %v", err)
	}
}

func TestLimitedPassesThrough(t *testing.T) {
	next := &countingClient{}
	l := NewLimited(next, 100)
	for i := 0; i < 3; i++ {
		if _, err := l.Annotate(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if next.calls != 3 {
		t.Errorf("expected 3 calls, got %d", next.calls)
	}
}

func TestLimitedCancelled(t *testing.T) {
	next := &countingClient{}
	l := NewLimited(next, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Annotate(ctx, nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if next.calls != 0 {
		t.Errorf("expected no downstream call, got %d", next.calls)
	}
}

func TestVisionAnnotate(t *testing.T) {
	var got vision.BatchAnnotateImagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"responses":[{
			"logoAnnotations":[{"description":"Apple","score":0.91,"boundingPoly":{"vertices":[{"x":10,"y":20},{"x":30,"y":40}]}}],
			"fullTextAnnotation":{"text":"Apple\nDec 15\nBMO"}
		}]}`))
	}))
	defer srv.Close()

	c, err := NewVisionClient(context.Background(), Config{Endpoint: srv.URL + "/", MaxLogos: 5},
		option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	res, err := c.Annotate(context.Background(), []byte("png"))
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	if res.FullText != "Apple\nDec 15\nBMO" {
		t.Errorf("unexpected full text %q", res.FullText)
	}
	if len(res.Logos) != 1 || res.Logos[0].Label != "Apple" {
		t.Fatalf("expected one Apple logo, got %+v", res.Logos)
	}
	if len(res.Logos[0].BoundingBox) != 2 || res.Logos[0].BoundingBox[1].X != 30 {
		t.Errorf("unexpected bounding box %+v", res.Logos[0].BoundingBox)
	}

	if len(got.Requests) != 1 {
		t.Fatalf("expected one image request, got %d", len(got.Requests))
	}
	req := got.Requests[0]
	if req.Image == nil || req.Image.Content != "cG5n" {
		t.Errorf("expected base64 image content, got %+v", req.Image)
	}
	if len(req.Features) != 2 || req.Features[0].Type != "LOGO_DETECTION" || req.Features[0].MaxResults != 5 {
		t.Errorf("unexpected features %+v", req.Features)
	}
}

func TestConvertVisionError(t *testing.T) {
	_, err := convertVision(&vision.AnnotateImageResponse{
		Error: &vision.Status{Code: 3, Message: "Bad image data."},
	})
	if err == nil || !strings.Contains(err.Error(), "Bad image data.") {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestConvertVisionTextFallback(t *testing.T) {
	res, err := convertVision(&vision.AnnotateImageResponse{
		TextAnnotations: []*vision.EntityAnnotation{
			{Description: "whole page"},
			{Description: "word"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FullText != "whole page" {
		t.Errorf("expected first text annotation, got %q", res.FullText)
	}
	if len(res.Logos) != 0 {
		t.Errorf("expected no logos, got %d", len(res.Logos))
	}
}

func TestConvertVisionEmpty(t *testing.T) {
	res, err := convertVision(&vision.AnnotateImageResponse{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FullText != "" || len(res.Logos) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}
