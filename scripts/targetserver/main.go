// Command targetserver runs a local HTTP server with a handful of
// predictable endpoints for exercising volley against known behavior.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const maxBytesPayload = 8 << 20

func main() {
	port := flag.Int("port", 8080, "Listening port")
	limitRPS := flag.Float64("limit-rps", 10, "Requests per second allowed on /limited")
	flag.Parse()

	limiter := rate.NewLimiter(rate.Limit(*limitRPS), int(*limitRPS))

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", handleOK)
	mux.HandleFunc("/bytes", handleBytes)
	mux.HandleFunc("/slow", handleSlow)
	mux.HandleFunc("/flaky", handleFlaky)
	mux.HandleFunc("/status/{code}", handleStatus)
	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/limited", func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			respondJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("/ws", handleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("target server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func handleOK(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleBytes writes an n-byte payload, e.g. /bytes?n=4096.
func handleBytes(w http.ResponseWriter, r *http.Request) {
	n := 1024
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			respondJSON(w, http.StatusBadRequest, map[string]any{"error": "n must be a non-negative integer"})
			return
		}
		n = v
	}
	if n > maxBytesPayload {
		n = maxBytesPayload
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bytes.Repeat([]byte{'a'}, n))
}

// handleSlow responds after a delay, e.g. /slow?delay=250ms.
func handleSlow(w http.ResponseWriter, r *http.Request) {
	delay := 100 * time.Millisecond
	if raw := r.URL.Query().Get("delay"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			respondJSON(w, http.StatusBadRequest, map[string]any{"error": "delay must be a duration like 250ms"})
			return
		}
		delay = d
	}
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	select {
	case <-time.After(delay):
	case <-r.Context().Done():
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "delay": delay.String()})
}

// handleFlaky fails a fraction of requests, e.g. /flaky?failure=0.3.
func handleFlaky(w http.ResponseWriter, r *http.Request) {
	failure := 0.5
	if raw := r.URL.Query().Get("failure"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 || f > 1 {
			respondJSON(w, http.StatusBadRequest, map[string]any{"error": "failure must be between 0 and 1"})
			return
		}
		failure = f
	}
	if rand.Float64() < failure {
		respondJSON(w, http.StatusInternalServerError, map[string]any{"error": "flaky failure"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleStatus replies with the requested status code, e.g. /status/503.
func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 100 || code > 599 {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "status code must be between 100 and 599"})
		return
	}
	respondJSON(w, code, map[string]any{"status": code})
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	body := ""
	if r.Body != nil {
		bodyBytes, _ := io.ReadAll(r.Body)
		body = string(bodyBytes)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"method":  r.Method,
		"path":    r.URL.Path,
		"query":   r.URL.RawQuery,
		"headers": r.Header,
		"body":    body,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	go echoWebSocket(conn)
}

func echoWebSocket(conn *websocket.Conn) {
	defer conn.Close()
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"status":"connected"}`))
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(msgType, data); err != nil {
			return
		}
	}
}
