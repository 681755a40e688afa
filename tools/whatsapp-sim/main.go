// whatsapp-sim is a local stand-in for an Evolution API instance. It
// accepts sendText calls, prints the messages, and can inject failures to
// exercise the booking service's retry path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
)

func main() {
	var (
		addr     = flag.String("addr", getenv("ADDR", ":8084"), "listen address")
		apiKey   = flag.String("api-key", getenv("WHATSAPP_API_KEY", ""), "expected apikey header; empty disables the check")
		failRate = flag.Float64("fail-rate", 0, "fraction of requests answered with 502 (0..1)")
	)
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/message/sendText/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if *apiKey != "" && r.Header.Get("apikey") != *apiKey {
			http.Error(w, "invalid apikey", http.StatusUnauthorized)
			return
		}
		if *failRate > 0 && rand.Float64() < *failRate {
			http.Error(w, "simulated provider outage", http.StatusBadGateway)
			return
		}

		var req struct {
			Number string `json:"number"`
			Text   string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		instance := strings.TrimPrefix(r.URL.Path, "/message/sendText/")
		log.Printf("instance=%s number=%s text=%q", instance, req.Number, req.Text)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"key":    map[string]any{"remoteJid": req.Number},
			"status": "PENDING",
		})
	})

	fmt.Printf("whatsapp-sim listening on %s (fail-rate=%.2f)\n", *addr, *failRate)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
