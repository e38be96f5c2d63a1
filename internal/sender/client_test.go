package sender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/adscout/pkg/models"
)

var niche = models.NicheTarget{Name: "Emagrecimento", Query: "emagrecimento", Category: "Emagrecimento"}

func oneAd() []models.Ad {
	return []models.Ad{{
		PlatformID:     "123",
		AdURL:          "https://fb.com/ads/library/?id=123",
		CreativeAssets: []models.CreativeAsset{{URL: "https://cdn.example.com/a.jpg", Type: models.AssetImage}},
	}}
}

func TestSend_PostsPayloadWithSecret(t *testing.T) {
	var got models.ImportPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get(SecretHeader) != "s3cret" {
			t.Errorf("secret header = %q", r.Header.Get(SecretHeader))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.ImportResponse{Success: true, Processed: 1})
	}))
	defer ts.Close()

	c := New(ts.URL, "s3cret", 5*time.Second)
	resp, err := c.Send(context.Background(), niche, "BR", oneAd())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !resp.Success || resp.Processed != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got.Category != "Emagrecimento" || got.Niche != "Emagrecimento" || got.Country != "BR" || got.Source != "facebook" || len(got.Ads) != 1 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestSend_MissingSecretMakesNoRequest(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	c := New(ts.URL, "", time.Second)
	if _, err := c.Send(context.Background(), niche, "BR", oneAd()); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("no request may be made without a secret")
	}
}

func TestSend_EmptyBatch(t *testing.T) {
	c := New("http://127.0.0.1:1/unreachable", "s3cret", time.Second)
	resp, err := c.Send(context.Background(), niche, "BR", nil)
	if err != nil || resp != nil {
		t.Fatalf("empty batch should be a no-op, got %v %v", resp, err)
	}
}

func TestSend_NonSuccessIsStatusErrorWithoutRetry(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer ts.Close()

	c := New(ts.URL, "wrong", time.Second)
	_, err := c.Send(context.Background(), niche, "BR", oneAd())

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusUnauthorized || se.Body != `{"error":"Unauthorized"}` {
		t.Errorf("unexpected status error: %+v", se)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}
}

func TestBuildPayload_NicheCountryWins(t *testing.T) {
	p := BuildPayload(models.NicheTarget{Name: "Pets", Category: "Pets", Country: "PT"}, "BR", nil)
	if p.Country != "PT" {
		t.Errorf("country = %s", p.Country)
	}
}
