package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"telescreen-backend/internal/agent"
	"telescreen-backend/internal/models"
	"telescreen-backend/internal/ws"
)

type agentConfig struct {
	serverURL string
	email     string
	password  string
	pcName    string
	heartbeat time.Duration
}

func loadConfig() agentConfig {
	godotenv.Load()

	pcName := os.Getenv("PC_NAME")
	if pcName == "" {
		pcName, _ = os.Hostname()
	}

	interval := 300
	if v := os.Getenv("HEARTBEAT_INTERVAL_SECONDS"); v != "" {
		fmt.Sscanf(v, "%d", &interval)
	}

	return agentConfig{
		serverURL: getenvDefault("SERVER_URL", "http://localhost:8080"),
		email:     mustGetenv("AGENT_EMAIL"),
		password:  mustGetenv("AGENT_PASSWORD"),
		pcName:    pcName,
		heartbeat: time.Duration(interval) * time.Second,
	}
}

func main() {
	cfg := loadConfig()
	log.Printf("Telescreen agent starting (pc=%s, heartbeat=%s)", cfg.pcName, cfg.heartbeat)

	tokens, err := login(cfg)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	log.Println("✓ Logged in")

	reporter := agent.NewReporter(cfg.serverURL)
	reporter.SetToken(tokens.AccessToken)

	tracker := agent.NewInputTracker()
	monitor := agent.NewMonitor(tracker, agent.NewDebouncer(nil), reporter, agent.DefaultThresholds())
	monitor.Start()
	defer monitor.Stop()

	go signalingLoop(cfg, tokens.AccessToken)

	heartbeatLoop(cfg, reporter, tracker)
}

// heartbeatLoop reports status on the fixed schedule. A session-expired
// response forces a fresh login; every other failure just waits for the next
// tick.
func heartbeatLoop(cfg agentConfig, reporter *agent.Reporter, tracker *agent.InputTracker) {
	ticker := time.NewTicker(cfg.heartbeat)
	defer ticker.Stop()

	for now := range ticker.C {
		status := models.StatusWorking
		lastInput := tracker.LastKeyEvent()
		if m := tracker.LastMouseEvent(); m.After(lastInput) {
			lastInput = m
		}
		if now.Sub(lastInput) > cfg.heartbeat {
			status = models.StatusIdle
		}

		err := reporter.SendHeartbeat(context.Background(), status, now, cfg.pcName)
		if errors.Is(err, agent.ErrSessionExpired) {
			tokens, lErr := login(cfg)
			if lErr != nil {
				log.Printf("re-login failed: %v", lErr)
				continue
			}
			reporter.SetToken(tokens.AccessToken)
			log.Println("session renewed")
		} else if err != nil {
			log.Printf("heartbeat failed: %v", err)
		}
	}
}

// signalingLoop keeps a websocket open for live-view directives, announcing
// video readiness after every (re)connect. Reconnection is the agent's own
// backoff; the server never retries toward us.
func signalingLoop(cfg agentConfig, token string) {
	wsURL := strings.Replace(cfg.serverURL, "http", "ws", 1) + "/api/v1/ws?token=" + token

	for {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			log.Printf("ws dial failed, retrying in 30s: %v", err)
			time.Sleep(30 * time.Second)
			continue
		}

		send := func(event string, payload interface{}) {
			var data json.RawMessage
			if payload != nil {
				data, _ = json.Marshal(payload)
			}
			msg, _ := json.Marshal(models.Event{Event: event, Data: data})
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		send(ws.EvEmployeeLiveReady, nil)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var ev models.Event
			if json.Unmarshal(data, &ev) != nil {
				continue
			}

			switch {
			case strings.HasSuffix(ev.Event, ":start-stream"):
				var directive models.StartStreamDirective
				json.Unmarshal(ev.Data, &directive)
				// The embedding capture layer owns the actual peer
				// connection; the agent only relays the directive.
				log.Printf("start-stream directive from admin %s (socket %s)", directive.AdminID, directive.AdminSocketID)
			case strings.HasSuffix(ev.Event, ":stop-stream"):
				log.Printf("stop-stream directive received")
			case strings.HasSuffix(ev.Event, ":capture-screenshot"):
				log.Printf("screenshot requested")
				send(ws.EvEmployeeScreenshotCaptured, nil)
			}
		}

		conn.Close()
		log.Printf("ws closed, reconnecting in 10s")
		time.Sleep(10 * time.Second)
	}
}

func login(cfg agentConfig) (*models.AuthTokens, error) {
	body, _ := json.Marshal(models.LoginRequest{
		Email:    cfg.email,
		Password: cfg.password,
		PCName:   cfg.pcName,
	})

	resp, err := http.Post(cfg.serverURL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var parsed struct {
		Tokens models.AuthTokens `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &parsed.Tokens, nil
}

func mustGetenv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("required environment variable %s is not set", key)
	}
	return val
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
