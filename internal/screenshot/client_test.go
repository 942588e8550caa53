package screenshot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCaptureChart_AllTimeframes(t *testing.T) {
	var gotTargets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		gotTargets = append(gotTargets, target)
		fmt.Fprintf(w, `{"url":"https://img.example/%d.png"}`, len(gotTargets))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	captures, err := c.CaptureChart(context.Background(), "https://charts.example/chart?symbol=CRYPTO%3ABTCUSD")
	if err != nil {
		t.Fatalf("CaptureChart: %v", err)
	}

	if len(captures) != 4 {
		t.Fatalf("captures = %d, want 4", len(captures))
	}

	wantIntervals := []string{"1H", "1D", "1W", "1M"}
	for i, img := range captures {
		if img.Interval != wantIntervals[i] {
			t.Errorf("capture %d interval = %s, want %s", i, img.Interval, wantIntervals[i])
		}
		if img.URL == "" {
			t.Errorf("capture %d has no URL", i)
		}
		if !strings.HasSuffix(gotTargets[i], "&interval="+wantIntervals[i]) {
			t.Errorf("target %d = %s, want interval suffix %s", i, gotTargets[i], wantIntervals[i])
		}
	}
}

func TestCaptureChart_ServiceErrorAborts(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "render timeout", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"url":"https://img.example/ok.png"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.CaptureChart(context.Background(), "https://charts.example/chart?symbol=X")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "daily") {
		t.Errorf("error does not name the failed timeframe: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (no continuation after failure)", calls)
	}
}

func TestCaptureChart_EmptyURLRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"url":""}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	if _, err := c.CaptureChart(context.Background(), "https://charts.example/chart?symbol=X"); err == nil {
		t.Fatal("expected error for empty hosted URL")
	}
}
