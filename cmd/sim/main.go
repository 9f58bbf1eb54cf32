// Command sim drives a running vigil server with synthetic traffic:
// it starts a session, submits randomized stabilized events, ends the
// session, and prints the final report.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/okian/vigil/internal/domain/classify"
	"github.com/okian/vigil/internal/domain/model"
)

// Default configuration constants.
const (
	defaultNumEvents = 50
	defaultInterval  = 100 * time.Millisecond
	defaultTimeout   = 10 * time.Second
	defaultSeed      = 42
	minConfidence    = 0.6
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numEvents = flag.Int("events", defaultNumEvents, "Number of events to submit")
		interval  = flag.Duration("interval", defaultInterval, "Delay between events")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed      = flag.Int64("seed", defaultSeed, "Random seed")
		candidate = flag.String("candidate", "Sim Candidate", "Candidate name")
	)
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // deterministic seed for reproducible runs
	ctx := context.Background()

	if err := run(ctx, client, *baseURL, *candidate, *numEvents, *interval, rng); err != nil {
		os.Stderr.WriteString("sim failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, client *http.Client, baseURL, candidate string, numEvents int, interval time.Duration, rng *rand.Rand) error {
	sessionID, err := startSession(ctx, client, baseURL, candidate)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	fmt.Printf("session %s started\n", sessionID)

	kinds := model.Kinds()
	accepted, duplicates := 0, 0
	for i := 0; i < numEvents; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		dup, err := postEvent(ctx, client, baseURL, sessionID, kind, rng)
		if err != nil {
			return fmt.Errorf("post event %d: %w", i, err)
		}
		if dup {
			duplicates++
		} else {
			accepted++
		}
		time.Sleep(interval)
	}
	fmt.Printf("submitted %d events (%d accepted, %d duplicates)\n",
		numEvents, accepted, duplicates)

	if err := endSession(ctx, client, baseURL, sessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	narrative, err := fetchReport(ctx, client, baseURL, sessionID)
	if err != nil {
		return fmt.Errorf("fetch report: %w", err)
	}
	fmt.Println(narrative)
	return nil
}

func startSession(ctx context.Context, client *http.Client, baseURL, candidate string) (string, error) {
	body := map[string]string{
		"candidate_name":  candidate,
		"candidate_email": "sim@example.com",
		"interviewer":     "sim",
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, client, baseURL+"/sessions", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func postEvent(ctx context.Context, client *http.Client, baseURL, sessionID string, kind model.Kind, rng *rand.Rand) (bool, error) {
	body := map[string]any{
		"event_id":    uuid.NewString(),
		"session_id":  sessionID,
		"event_kind":  string(kind),
		"description": classify.Description(kind),
		"confidence":  minConfidence + (1-minConfidence)*rng.Float64(),
		"ts":          time.Now().UTC().Format(time.RFC3339),
	}
	var out struct {
		Duplicate bool `json:"duplicate"`
	}
	if err := postJSON(ctx, client, baseURL+"/events", body, &out); err != nil {
		return false, err
	}
	return out.Duplicate, nil
}

func endSession(ctx context.Context, client *http.Client, baseURL, sessionID string) error {
	return postJSON(ctx, client, baseURL+"/sessions/"+sessionID+"/end",
		map[string]string{"notes": "simulated run"}, nil)
}

func fetchReport(ctx context.Context, client *http.Client, baseURL, sessionID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		baseURL+"/sessions/"+sessionID+"/report?format=narrative", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}
	return string(data), nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return err
		}
	}
	return nil
}
