// Command contestctl is the operator CLI for a running contestserver: it
// drives the admin lifecycle endpoints and prints leaderboard/state
// reports.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alejandrodnm/contestengine/internal/domain"
	"github.com/alejandrodnm/contestengine/internal/notify"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "contestserver base URL")
	token := flag.String("token", "", "admin bearer token")
	action := flag.String("action", "", "start|stop|pause|resume|reset-data|leaderboard|state")
	symbols := flag.String("symbols", "", "comma-separated symbol list for start (empty = autodiscover)")
	duration := flag.Int("duration-minutes", 60, "contest duration in minutes, for start")
	flag.Parse()

	if *action == "" {
		fmt.Fprintln(os.Stderr, "usage: contestctl -action=<start|stop|pause|resume|reset-data|leaderboard|state> [-addr=...] [-token=...]")
		os.Exit(2)
	}

	client := &client{base: *addr, token: *token, http: &http.Client{Timeout: 10 * time.Second}}
	console := notify.NewConsole()

	var err error
	switch *action {
	case "start":
		var syms []string
		if *symbols != "" {
			syms = splitCSV(*symbols)
		}
		var resp struct {
			Success   bool                `json:"success"`
			Message   string              `json:"message"`
			ContestID string              `json:"contest_id"`
			State     domain.ContestState `json:"state"`
		}
		err = client.post("/admin/contest/start", map[string]any{
			"symbols":          syms,
			"duration_minutes": *duration,
		}, &resp)
		if err == nil {
			fmt.Printf("%s (contest_id=%s)\n", resp.Message, resp.ContestID)
			console.PrintContestState(resp.State)
		}
	case "stop":
		var resp struct {
			Success bool                  `json:"success"`
			Cleanup domain.CleanupSummary `json:"cleanup"`
		}
		err = client.post("/admin/contest/stop", nil, &resp)
		if err == nil {
			fmt.Printf("cleanup: %+v\n", resp.Cleanup)
		}
	case "pause":
		var resp struct {
			Success bool `json:"success"`
		}
		err = client.post("/admin/contest/pause", nil, &resp)
		if err == nil {
			fmt.Println("paused")
		}
	case "resume":
		var resp struct {
			Success bool `json:"success"`
		}
		err = client.post("/admin/contest/resume", nil, &resp)
		if err == nil {
			fmt.Println("resumed")
		}
	case "reset-data":
		var resp map[string]any
		err = client.post("/admin/contest/reset-data", nil, &resp)
		if err == nil {
			fmt.Printf("reset-data: %+v\n", resp)
		}
	case "state":
		var state domain.ContestState
		err = client.get("/contest/state", &state)
		if err == nil {
			console.PrintContestState(state)
		}
	case "leaderboard":
		var entries []domain.LeaderboardEntry
		err = client.get("/leaderboard", &entries)
		if err == nil {
			console.PrintLeaderboard(entries)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "contestctl: %v\n", err)
		os.Exit(1)
	}
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *client) post(path string, body any, out any) error {
	return c.do(http.MethodPost, path, body, out)
}

func (c *client) do(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("contestctl: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("contestctl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contestctl: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("contestctl: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("contestctl: %s %s: %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("contestctl: decode response: %w", err)
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
