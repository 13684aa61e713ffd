package realtime

import (
	"testing"
	"time"

	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/testutil"
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub("race-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "p-1")
	hub.Register(client)

	// Give the hub time to process registration
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Broadcast([]byte(`{"type":"progress"}`))

	select {
	case msg := <-client.send:
		if string(msg) != `{"type":"progress"}` {
			t.Errorf("client received %q", string(msg))
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("client did not receive message")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub("race-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "p-1")
	hub.Register(client)

	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister, want 0", hub.ClientCount())
	}
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := NewHub("race-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client1 := NewClient(hub, "p-1")
	client2 := NewClient(hub, "p-2")
	client3 := NewClient(hub, "")

	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 3 {
		t.Errorf("ClientCount() = %d, want 3", hub.ClientCount())
	}

	hub.Broadcast([]byte("data"))

	for i, client := range []*Client{client1, client2, client3} {
		select {
		case msg := <-client.send:
			if string(msg) != "data" {
				t.Errorf("client %d received %q, want %q", i+1, string(msg), "data")
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %d did not receive message", i+1)
		}
	}
}

func TestHub_SlowClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub("race-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	slow := NewClient(hub, "slow")
	slow.send = make(chan []byte) // no buffer, never read
	fast := NewClient(hub, "fast")

	hub.Register(slow)
	hub.Register(fast)
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast([]byte("msg"))

	select {
	case msg := <-fast.send:
		if string(msg) != "msg" {
			t.Errorf("fast client received %q", string(msg))
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("fast client blocked behind slow client")
	}
}

func TestFormatSSEMessage(t *testing.T) {
	got := formatSSEMessage([]byte(`{"type":"race_started"}`))
	want := "data: {\"type\":\"race_started\"}\n\n"
	if string(got) != want {
		t.Errorf("formatSSEMessage = %q, want %q", string(got), want)
	}
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	hub1 := manager.GetOrCreateHub("race-1")
	if hub1 == nil {
		t.Fatal("GetOrCreateHub returned nil")
	}

	hub2 := manager.GetOrCreateHub("race-1")
	if hub1 != hub2 {
		t.Error("GetOrCreateHub returned different hub for same race")
	}

	hub3 := manager.GetOrCreateHub("race-2")
	if hub3 == hub1 {
		t.Error("GetOrCreateHub returned same hub for different race")
	}

	manager.RemoveHub("race-1")
	manager.RemoveHub("race-2")
}

func TestHubManager_GetHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	if manager.GetHub("missing") != nil {
		t.Error("GetHub returned non-nil for non-existent hub")
	}

	created := manager.GetOrCreateHub("race-1")
	if got := manager.GetHub("race-1"); got != created {
		t.Error("GetHub returned different hub than GetOrCreateHub")
	}

	manager.RemoveHub("race-1")
}

func TestHubManager_RemoveHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	manager.GetOrCreateHub("race-1")
	manager.RemoveHub("race-1")

	if manager.GetHub("race-1") != nil {
		t.Error("Hub still exists after RemoveHub")
	}

	// Removing non-existent hub should not panic
	manager.RemoveHub("missing")
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	manager.GetOrCreateHub(model.RaceID("empty"))

	active := manager.GetOrCreateHub(model.RaceID("active"))
	client := NewClient(active, "p-1")
	active.Register(client)
	time.Sleep(10 * time.Millisecond)

	manager.CleanupEmptyHubs()

	if manager.GetHub("empty") != nil {
		t.Error("Empty hub still exists after cleanup")
	}
	if manager.GetHub("active") == nil {
		t.Error("Active hub was removed during cleanup")
	}

	manager.RemoveHub("active")
}
