package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

func TestHTTPRerankerRoundtrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/rerank" {
			t.Errorf("path = %q, want /api/v1/rerank", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.IncidentID != "INC-1001" || len(req.CandidateIDs) != 2 {
			t.Errorf("unexpected request payload: %+v", req)
		}
		json.NewEncoder(w).Encode(Result{
			OrderedIDs: []string{req.CandidateIDs[1], req.CandidateIDs[0]},
			Rationale:  "swap",
		})
	}))
	defer srv.Close()

	client := NewHTTPReranker(srv.URL, "/api/v1/rerank", 2*time.Second)
	result, err := client.Rerank(context.Background(), Request{
		IncidentID:   "INC-1001",
		CandidateIDs: []string{"a", "b"},
		Cause:        models.CauseCongestion,
		Confidence:   0.85,
	})
	if err != nil {
		t.Fatalf("Rerank returned error: %v", err)
	}
	if len(result.OrderedIDs) != 2 || result.OrderedIDs[0] != "b" {
		t.Fatalf("unexpected ordering: %v", result.OrderedIDs)
	}
	if result.Rationale != "swap" {
		t.Fatalf("rationale = %q, want swap", result.Rationale)
	}
}

func TestHTTPRerankerNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPReranker(srv.URL, "/api/v1/rerank", 2*time.Second)
	if _, err := client.Rerank(context.Background(), Request{CandidateIDs: []string{"a"}}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestHTTPRerankerTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := NewHTTPReranker(srv.URL, "/api/v1/rerank", 50*time.Millisecond)
	start := time.Now()
	_, err := client.Rerank(context.Background(), Request{CandidateIDs: []string{"a"}})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not enforced")
	}
}

func TestHTTPRerankerEmptyOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{})
	}))
	defer srv.Close()

	client := NewHTTPReranker(srv.URL, "/api/v1/rerank", 2*time.Second)
	if _, err := client.Rerank(context.Background(), Request{CandidateIDs: []string{"a"}}); err == nil {
		t.Fatal("empty ordering should be an error")
	}
}
