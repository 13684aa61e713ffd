package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <code>",
		Short: "Stream live events from a race",
		Long: `Connect to the race's event stream endpoint and print events in real-time.

Events include:
  - participant_joined: A player took a seat
  - participant_left: A player released their seat
  - countdown_started: Start signal received, countdown running
  - race_started: Typing is open
  - progress: A player reported progress
  - participant_finished: A player crossed the line
  - race_finished: All runners done, final standings

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			return streamEvents(code, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// raceEvent is the wire shape of one streamed event
type raceEvent struct {
	Type          string          `json:"type"`
	Timestamp     time.Time       `json:"timestamp"`
	ParticipantID string          `json:"participant_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

func streamEvents(roomCode string, jsonOutput bool) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/races/" + roomCode + "/events"

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	// Set up cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	req = req.WithContext(ctx)

	httpClient := &http.Client{
		Timeout: 0, // No timeout for the event stream
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if !jsonOutput {
		fmt.Printf("Connected to race %s\n", roomCode)
	}

	// Parse the SSE stream; each event is a single data line
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		printEvent(strings.TrimPrefix(line, "data: "), jsonOutput)
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			if !jsonOutput {
				fmt.Println("\nDisconnected")
			}
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Println("Disconnected")
	}
	return nil
}

func printEvent(data string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(data)
		return
	}

	var evt raceEvent
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		fmt.Println(data)
		return
	}

	timestamp := evt.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	payload := string(evt.Payload)
	if len(payload) > 100 {
		payload = payload[:100] + "..."
	}
	fmt.Printf("[%s] %s %s\n", timestamp.Format("2006-01-02 15:04:05"), evt.Type, payload)
}
