package porkbun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Quote_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method=%q, want POST", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/domain/checkDomain/") {
			t.Fatalf("path=%q, want /domain/checkDomain/...", r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["apikey"] != "k" || body["secretapikey"] != "s" {
			t.Fatalf("bad keys in body: %#v", body)
		}

		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{
			"status":"SUCCESS",
			"response":{
				"avail":"yes",
				"price":"3.18",
				"regularPrice":"10.29",
				"premium":"no",
				"minDuration":1,
				"firstYearPromo":"yes"
			},
			"limits":{"TTL":"10","limit":"100"}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{
		APIKey:        "k",
		SecretAPIKey:  "s",
		BaseURL:       srv.URL,
		Timeout:       2 * time.Second,
		MinDelay:      1 * time.Nanosecond,
		MaxConcurrent: 1,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.Quote(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got.FirstYear != 3.18 {
		t.Fatalf("FirstYear=%v, want 3.18", got.FirstYear)
	}
	if got.Renewal != 10.29 {
		t.Fatalf("Renewal=%v, want 10.29", got.Renewal)
	}
	if got.Premium {
		t.Fatalf("Premium=true, want false")
	}
	if got.Registrar != "porkbun" {
		t.Fatalf("Registrar=%q, want porkbun", got.Registrar)
	}
	if got.Notes == "" {
		t.Fatalf("Notes empty, want promo note")
	}
}

func TestClient_Quote_PremiumFlag(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{
			"status":"SUCCESS",
			"response":{"avail":"yes","price":"250.00","regularPrice":"250.00","premium":"yes"}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{
		APIKey: "k", SecretAPIKey: "s", BaseURL: srv.URL,
		MinDelay: 1 * time.Nanosecond, MaxConcurrent: 1,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.Quote(context.Background(), "gold.com")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !got.Premium {
		t.Fatalf("Premium=false, want true")
	}
}

func TestClient_Quote_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ERROR","message":"nope"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{
		APIKey: "k", SecretAPIKey: "s", BaseURL: srv.URL,
		MinDelay: 1 * time.Nanosecond, MaxConcurrent: 1,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = c.Quote(context.Background(), "example.com")
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("err=%v, want message", err)
	}
}

func TestClient_Quote_NotPurchasable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCESS","response":{"avail":"no","price":"0"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{
		APIKey: "k", SecretAPIKey: "s", BaseURL: srv.URL,
		MinDelay: 1 * time.Nanosecond, MaxConcurrent: 1,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.Quote(context.Background(), "example.com"); err == nil {
		t.Fatalf("expected error for avail=no")
	}
}
