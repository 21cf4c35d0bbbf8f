package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPassthrough(t *testing.T) {
	out, err := Passthrough{}.Translate(context.Background(), "hello", "en", "ru")
	if err != nil || out != "hello" {
		t.Fatalf("Passthrough = %q, %v", out, err)
	}
	if _, err := (Passthrough{}).Translate(context.Background(), "hello", "en", ""); !errors.Is(err, ErrEmptyLanguage) {
		t.Fatalf("expected ErrEmptyLanguage, got %v", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	if _, ok := New("", "", time.Second).(Passthrough); !ok {
		t.Fatalf("expected Passthrough without url")
	}
	if _, ok := New("http://localhost:5000", "", time.Second).(*Libre); !ok {
		t.Fatalf("expected Libre with url")
	}
}

func TestLibreTranslate(t *testing.T) {
	var got libreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(libreResponse{TranslatedText: "privet"})
	}))
	defer srv.Close()

	l := NewLibre(srv.URL+"/", "key", time.Second)
	out, err := l.Translate(context.Background(), "hello", "unknown", "ru")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "privet" {
		t.Fatalf("translated = %q", out)
	}
	if got.Source != "auto" || got.Target != "ru" || got.Q != "hello" || got.APIKey != "key" || got.Format != "text" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestLibreSkipsSameLanguage(t *testing.T) {
	l := NewLibre("http://127.0.0.1:1", "", time.Second)
	out, err := l.Translate(context.Background(), "hello", "en", "en")
	if err != nil || out != "hello" {
		t.Fatalf("same-language translate = %q, %v", out, err)
	}
}

func TestLibreBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(libreResponse{Error: "ro is not supported"})
	}))
	defer srv.Close()

	_, err := NewLibre(srv.URL, "", time.Second).Translate(context.Background(), "hello", "en", "ro")
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}
