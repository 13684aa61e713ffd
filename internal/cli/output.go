package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Session:
		o.printSession(v)
	case Race:
		o.printRace(v)
	case JoinResult:
		o.printJoinResult(v)
	case FinishResult:
		o.printFinishResult(v)
	case StandingsResult:
		o.printStandings(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Session response type (matches API)
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	IsGuest   bool      `json:"is_guest"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Participant response type
type Participant struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	AvatarColor    string  `json:"avatar_color"`
	Progress       int     `json:"progress"`
	WPM            float64 `json:"wpm"`
	Accuracy       float64 `json:"accuracy"`
	Errors         int     `json:"errors"`
	IsFinished     bool    `json:"is_finished"`
	FinishPosition *int    `json:"finish_position,omitempty"`
	IsActive       bool    `json:"is_active"`
}

// Race response type
type Race struct {
	ID           string        `json:"id"`
	RoomCode     string        `json:"room_code"`
	Status       string        `json:"status"`
	Paragraph    string        `json:"paragraph"`
	MaxPlayers   int           `json:"max_players"`
	Private      bool          `json:"private"`
	Participants []Participant `json:"participants,omitempty"`
}

// JoinResult pairs a race with the caller's seat
type JoinResult struct {
	Race        Race        `json:"race"`
	Participant Participant `json:"participant"`
}

// FinishResult response type
type FinishResult struct {
	Position    int  `json:"position"`
	IsNewFinish bool `json:"is_new_finish"`
}

// Standing response type
type Standing struct {
	Username string  `json:"username"`
	Position int     `json:"position"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}

// StandingsResult response type
type StandingsResult struct {
	Standings []Standing `json:"standings"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printSession(s Session) {
	guestStr := "no"
	if s.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Username: %s\n", s.Username)
	fmt.Printf("Guest: %s\n", guestStr)
	fmt.Printf("Token: %s\n", s.Token)
	fmt.Printf("Expires: %s\n", s.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printRace(r Race) {
	fmt.Printf("Race: %s\n", r.RoomCode)
	fmt.Printf("Status: %s\n", r.Status)
	fmt.Printf("Max Players: %d\n", r.MaxPlayers)
	if r.Private {
		fmt.Println("Private: yes")
	}
	fmt.Printf("Paragraph: %s\n", r.Paragraph)
	if len(r.Participants) > 0 {
		fmt.Printf("Participants (%d):\n", len(r.Participants))
		for _, p := range r.Participants {
			o.printSeatLine(p)
		}
	}
}

func (o *Output) printSeatLine(p Participant) {
	status := fmt.Sprintf("%d%%", p.Progress)
	if p.IsFinished && p.FinishPosition != nil {
		status = fmt.Sprintf("finished #%d", *p.FinishPosition)
	}
	if !p.IsActive {
		status += " [left]"
	}
	fmt.Printf("  - %s (%s) - %s\n", p.Username, p.AvatarColor, status)
}

func (o *Output) printJoinResult(j JoinResult) {
	o.printRace(j.Race)
	fmt.Printf("Your seat: %s (%s)\n", j.Participant.Username, j.Participant.ID)
}

func (o *Output) printFinishResult(f FinishResult) {
	if f.IsNewFinish {
		fmt.Printf("Finished in position %d\n", f.Position)
	} else {
		fmt.Printf("Already finished in position %d\n", f.Position)
	}
}

func (o *Output) printStandings(s StandingsResult) {
	if len(s.Standings) == 0 {
		fmt.Println("No finishers yet")
		return
	}
	fmt.Println("Standings:")
	for _, st := range s.Standings {
		fmt.Printf("  %d. %s - %.1f WPM, %.1f%% accuracy\n", st.Position, st.Username, st.WPM, st.Accuracy)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
