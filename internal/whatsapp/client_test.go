package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type recordedSend struct {
	to   string
	body string
	auth string
}

func newSendServer(t *testing.T, failFor map[string]int) (*httptest.Server, func() []recordedSend) {
	t.Helper()
	var (
		mu    sync.Mutex
		sends []recordedSend
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To   string `json:"to"`
			Text struct {
				Body string `json:"body"`
			} `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode send request: %v", err)
		}

		mu.Lock()
		sends = append(sends, recordedSend{to: req.To, body: req.Text.Body, auth: r.Header.Get("Authorization")})
		mu.Unlock()

		if code, ok := failFor[req.To]; ok {
			w.WriteHeader(code)
			return
		}
		fmt.Fprint(w, `{"messages":[{"id":"wamid.out"}]}`)
	}))

	return srv, func() []recordedSend {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedSend(nil), sends...)
	}
}

func TestSendText_DeliversToBothNumberForms(t *testing.T) {
	srv, sends := newSendServer(t, nil)
	defer srv.Close()

	c := NewClient("test-token", "12345", srv.URL, zerolog.Nop())
	if err := c.SendText(context.Background(), "5547999998888", "olá"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	got := sends()
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0].to != "5547999998888" || got[1].to != "554799998888" {
		t.Errorf("targets = %s, %s", got[0].to, got[1].to)
	}
	if got[0].auth != "Bearer test-token" {
		t.Errorf("auth header = %q", got[0].auth)
	}
}

func TestSendText_OneTargetFailingIsNotAnError(t *testing.T) {
	srv, sends := newSendServer(t, map[string]int{"554799998888": http.StatusBadRequest})
	defer srv.Close()

	c := NewClient("test-token", "12345", srv.URL, zerolog.Nop())
	if err := c.SendText(context.Background(), "5547999998888", "olá"); err != nil {
		t.Fatalf("SendText() error = %v, want nil when one target succeeds", err)
	}
	if got := sends(); len(got) != 2 {
		t.Errorf("expected both targets attempted, got %d", len(got))
	}
}

func TestSendText_AllTargetsFailing(t *testing.T) {
	srv, _ := newSendServer(t, map[string]int{
		"5547999998888": http.StatusUnauthorized,
		"554799998888":  http.StatusUnauthorized,
	})
	defer srv.Close()

	c := NewClient("test-token", "12345", srv.URL, zerolog.Nop())
	if err := c.SendText(context.Background(), "5547999998888", "olá"); err == nil {
		t.Error("expected error when every target fails")
	}
}

func TestSendText_StripsMarkdown(t *testing.T) {
	srv, sends := newSendServer(t, nil)
	defer srv.Close()

	c := NewClient("test-token", "12345", srv.URL, zerolog.Nop())
	if err := c.SendText(context.Background(), "551100000000", "*Gasto* _registrado_ `ok`"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	got := sends()
	if len(got) == 0 {
		t.Fatal("no delivery recorded")
	}
	if got[0].body != "Gasto registrado ok" {
		t.Errorf("body = %q, want markdown stripped", got[0].body)
	}
}

func TestDownload_TwoStepExchange(t *testing.T) {
	payload := []byte("binary-audio-bytes")

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer auth on %s", r.URL.Path)
		}
		switch r.URL.Path {
		case "/media-1":
			fmt.Fprintf(w, `{"url":%q}`, srv.URL+"/binary/media-1")
		case "/binary/media-1":
			w.Write(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient("test-token", "12345", srv.URL, zerolog.Nop())
	data, err := c.Download(context.Background(), "media-1")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Download() = %q, want %q", data, payload)
	}
}

func TestDownload_ExpiredReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("test-token", "12345", srv.URL, zerolog.Nop())
	if _, err := c.Download(context.Background(), "media-gone"); err == nil {
		t.Error("expected error for expired media reference")
	}
}

func TestDownload_EmptyID(t *testing.T) {
	c := NewClient("test-token", "12345", "http://unused", zerolog.Nop())
	if _, err := c.Download(context.Background(), ""); err == nil {
		t.Error("expected error for empty media ID")
	}
}
