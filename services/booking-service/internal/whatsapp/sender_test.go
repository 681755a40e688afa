package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"70000002", "59170000002@c.us", false},
		{"60000002", "59160000002@c.us", false},
		{"+591 7000-0002", "59170000002@c.us", false},
		{"59170000002", "59170000002@c.us", false},
		{"12025550123", "12025550123@c.us", false},
		{"40000002", "40000002@c.us", false}, // 8 digits but not mobile prefix
		{"abc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := FormatPhoneNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatPhoneNumber(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatPhoneNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSendMessage(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody sendTextRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewEvolutionSender(Config{BaseURL: srv.URL, APIKey: "secret", Instance: "servibook"}, srv.Client())
	if err := s.SendMessage(context.Background(), "70000002", "hola"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if gotPath != "/message/sendText/servibook" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAPIKey != "secret" {
		t.Errorf("apikey = %q", gotAPIKey)
	}
	if gotBody.Number != "59170000002@c.us" || gotBody.Text != "hola" {
		t.Errorf("body = %+v", gotBody)
	}
	if gotBody.Options.Delay != 1200 || gotBody.Options.Presence != "composing" {
		t.Errorf("options = %+v", gotBody.Options)
	}
}

func TestSendMessageProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance not connected", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewEvolutionSender(Config{BaseURL: srv.URL, APIKey: "secret", Instance: "servibook"}, srv.Client())
	if err := s.SendMessage(context.Background(), "70000002", "hola"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSendMessageRejectsUnusablePhone(t *testing.T) {
	s := NewEvolutionSender(Config{BaseURL: "http://unused", APIKey: "k", Instance: "i"}, nil)
	if err := s.SendMessage(context.Background(), "sin número", "hola"); err == nil {
		t.Fatal("expected error for digit-less phone")
	}
}
