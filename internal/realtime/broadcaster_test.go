package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/typerush/typerush/internal/dependencies/mocks"
	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/testutil"
)

func newTestBroadcaster(t *testing.T) (*Broadcaster, *HubManager, *mocks.MockClock) {
	t.Helper()
	manager := NewHubManager(testutil.NopLogger())
	clk := mocks.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return NewBroadcaster(manager, clk, testutil.NopLogger()), manager, clk
}

func receiveEvent(t *testing.T, client *Client) model.Event {
	t.Helper()
	select {
	case msg := <-client.send:
		var event model.Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("broadcast was not valid JSON: %v", err)
		}
		return event
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no event received")
		return model.Event{}
	}
}

func TestBroadcaster_Progress(t *testing.T) {
	b, manager, clk := newTestBroadcaster(t)
	hub := manager.GetOrCreateHub("race-1")
	defer manager.RemoveHub("race-1")

	client := NewClient(hub, "p-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	b.Progress(&model.Participant{
		ID:       "p-1",
		RaceID:   "race-1",
		Username: "speedy",
		Stats:    model.Stats{Progress: 42, WPM: 88.5, Accuracy: 97.2, Errors: 3},
	})

	event := receiveEvent(t, client)
	if event.Type != model.EventProgress {
		t.Errorf("event type = %q, want %q", event.Type, model.EventProgress)
	}
	if event.RaceID != "race-1" || event.ParticipantID != "p-1" {
		t.Errorf("event routing = (%q, %q)", event.RaceID, event.ParticipantID)
	}
	if !event.Timestamp.Equal(clk.Now()) {
		t.Errorf("event timestamp = %v, want %v", event.Timestamp, clk.Now())
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		t.Fatal(err)
	}
	var progress model.ProgressPayload
	if err := json.Unmarshal(payload, &progress); err != nil {
		t.Fatal(err)
	}
	if progress.Username != "speedy" || progress.Progress != 42 || progress.WPM != 88.5 {
		t.Errorf("unexpected payload: %+v", progress)
	}
}

func TestBroadcaster_ParticipantFinished(t *testing.T) {
	b, manager, _ := newTestBroadcaster(t)
	hub := manager.GetOrCreateHub("race-1")
	defer manager.RemoveHub("race-1")

	client := NewClient(hub, "")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	b.ParticipantFinished(&model.Participant{
		ID:       "p-1",
		RaceID:   "race-1",
		Username: "speedy",
		Stats:    model.Stats{WPM: 102.3},
	}, 1)

	event := receiveEvent(t, client)
	if event.Type != model.EventParticipantFinished {
		t.Errorf("event type = %q", event.Type)
	}
}

func TestBroadcaster_RaceFinishedStandings(t *testing.T) {
	b, manager, _ := newTestBroadcaster(t)
	hub := manager.GetOrCreateHub("race-1")
	defer manager.RemoveHub("race-1")

	client := NewClient(hub, "")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	b.RaceFinished("race-1", []model.Standing{
		{Username: "first", Position: 1, WPM: 110},
		{Username: "second", Position: 2, WPM: 95},
	})

	event := receiveEvent(t, client)
	if event.Type != model.EventRaceFinished {
		t.Errorf("event type = %q", event.Type)
	}

	payload, _ := json.Marshal(event.Payload)
	var finished model.RaceFinishedPayload
	if err := json.Unmarshal(payload, &finished); err != nil {
		t.Fatal(err)
	}
	if len(finished.Standings) != 2 || finished.Standings[0].Position != 1 {
		t.Errorf("unexpected standings: %+v", finished.Standings)
	}
}

func TestBroadcaster_NoHubIsNoop(t *testing.T) {
	b, _, _ := newTestBroadcaster(t)

	// Must not panic or block when nobody subscribed to the race
	b.RaceStarted("race-with-no-hub")
	b.CountdownStarted("race-with-no-hub", 3)
	b.ParticipantLeft(&model.Participant{ID: "p-1", RaceID: "race-with-no-hub"})
}
