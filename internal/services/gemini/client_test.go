package gemini_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storycut/internal/services/gemini"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*gemini.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := gemini.NewClient(gemini.Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		TextModel:  "text-model",
		ImageModel: "image-model",
	},
		gemini.WithSleeper(func(time.Duration) {}),
		gemini.WithJitter(func() float64 { return 0 }),
	)
	return client, server
}

func storyboardJSON(t *testing.T, items []map[string]any) string {
	t.Helper()
	encoded, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal items: %v", err)
	}
	return string(encoded)
}

func textResponse(text string) string {
	encoded, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return string(encoded)
}

func imageResponse(data []byte, mimeType string) string {
	encoded, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{
				{"inlineData": map[string]any{"mimeType": mimeType, "data": base64.StdEncoding.EncodeToString(data)}},
			}}},
		},
	})
	return string(encoded)
}

func TestGenerateStoryboardParsesItems(t *testing.T) {
	payload := storyboardJSON(t, []map[string]any{
		{
			"subtitle_ids":    []string{"1", "2"},
			"visual_prompt":   "a harbor at dusk",
			"camera_movement": "Zoom In",
			"viral_reasoning": "strong opening",
			"tactic":          "Visual Hook (0-3s)",
			"reference_index": 0,
		},
	})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/text-model:generateContent" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		fmt.Fprint(w, textResponse(payload))
	})

	items, err := client.GenerateStoryboard(context.Background(), "plan it", "script goes here")
	if err != nil {
		t.Fatalf("GenerateStoryboard failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].VisualPrompt != "a harbor at dusk" || items[0].CameraMovement != "Zoom In" {
		t.Fatalf("unexpected item: %#v", items[0])
	}
	if items[0].ReferenceIndex == nil || *items[0].ReferenceIndex != 0 {
		t.Fatalf("expected reference index 0, got %#v", items[0].ReferenceIndex)
	}
}

func TestGenerateStoryboardRetriesRateLimitsOnly(t *testing.T) {
	var calls atomic.Int32
	payload := storyboardJSON(t, []map[string]any{
		{"subtitle_ids": []string{"1"}, "visual_prompt": "x", "camera_movement": "Static"},
	})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`)
			return
		}
		fmt.Fprint(w, textResponse(payload))
	})

	items, err := client.GenerateStoryboard(context.Background(), "plan", "script")
	if err != nil {
		t.Fatalf("GenerateStoryboard failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected recovery after rate limits, got %d items", len(items))
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestGenerateStoryboardStopsAfterFiveAttempts(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`)
	})

	if _, err := client.GenerateStoryboard(context.Background(), "plan", "script"); err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if got := calls.Load(); got != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", got)
	}
}

func TestGenerateStoryboardDoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"status":"INTERNAL","message":"boom"}}`)
	})

	if _, err := client.GenerateStoryboard(context.Background(), "plan", "script"); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected no retry on non-rate-limit error, got %d calls", got)
	}
}

func TestGenerateImageSucceeds(t *testing.T) {
	pixels := []byte{0x89, 0x50, 0x4e, 0x47}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/image-model:generateContent" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, imageResponse(pixels, "image/png"))
	})

	image, err := client.GenerateImage(context.Background(), gemini.ImageRequest{
		Prompt:      "a harbor at dusk",
		AspectRatio: "9:16",
		Seed:        42,
	})
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if image.MIMEType != "image/png" || len(image.Data) != len(pixels) {
		t.Fatalf("unexpected image: mime=%q len=%d", image.MIMEType, len(image.Data))
	}
}

func TestGenerateImageStopsAfterEightAttempts(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`)
	})

	if _, err := client.GenerateImage(context.Background(), gemini.ImageRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if got := calls.Load(); got != 8 {
		t.Fatalf("expected exactly 8 attempts, got %d", got)
	}
}

func TestGenerateImageNotFoundFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"status":"NOT_FOUND","message":"model not found"}}`)
	})

	_, err := client.GenerateImage(context.Background(), gemini.ImageRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !gemini.IsNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("404 must not be retried, got %d calls", got)
	}
}

func TestGenerateImageRetriesEmptyResponses(t *testing.T) {
	var calls atomic.Int32
	pixels := []byte{1, 2, 3}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, textResponse("sorry, I cannot draw that"))
			return
		}
		fmt.Fprint(w, imageResponse(pixels, "image/png"))
	})

	image, err := client.GenerateImage(context.Background(), gemini.ImageRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if len(image.Data) != len(pixels) {
		t.Fatalf("unexpected image payload length %d", len(image.Data))
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected one retry after missing image data, got %d calls", got)
	}
}

func TestGenerateImageHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`)
	})

	_, err := client.GenerateImage(ctx, gemini.ImageRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestDescribeReferences(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse(`["a red lighthouse", "an old fisherman"]`))
	})

	descriptions, err := client.DescribeReferences(context.Background(), "describe each image", []gemini.InlineImage{
		{MIMEType: "image/png", Data: []byte{1}},
		{MIMEType: "image/jpeg", Data: []byte{2}},
	})
	if err != nil {
		t.Fatalf("DescribeReferences failed: %v", err)
	}
	if len(descriptions) != 2 || descriptions[0] != "a red lighthouse" {
		t.Fatalf("unexpected descriptions: %#v", descriptions)
	}
}

func TestDescribeReferencesNoImages(t *testing.T) {
	client := gemini.NewClient(gemini.Config{APIKey: "k", TextModel: "m"})
	descriptions, err := client.DescribeReferences(context.Background(), "describe", nil)
	if err != nil {
		t.Fatalf("expected nil error for empty input, got %v", err)
	}
	if descriptions != nil {
		t.Fatalf("expected nil descriptions, got %#v", descriptions)
	}
}

func TestRefinePrompt(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("a harbor at dawn, mist rolling in"))
	})

	refined, err := client.RefinePrompt(context.Background(), "rewrite the prompt", "make it moodier")
	if err != nil {
		t.Fatalf("RefinePrompt failed: %v", err)
	}
	if refined != "a harbor at dawn, mist rolling in" {
		t.Fatalf("unexpected refined prompt %q", refined)
	}
}
