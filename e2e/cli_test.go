package e2e_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typerush/typerush/internal/config"
	"github.com/typerush/typerush/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "typerush-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/typerush")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	// Create temp token file
	tokenFile := filepath.Join(t.TempDir(), "token")

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  tokenFile,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	projectRoot := findProjectRoot(t)
	cfg := config.Default()
	cfg.WordFile = filepath.Join(projectRoot, "data/words.txt")
	cfg.CountdownSeconds = 1

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	app, err := factory.New(cfg, logger)
	require.NoError(t, err)

	server := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			_ = server.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type sessionResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
}

type participantResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Progress       int    `json:"progress"`
	IsFinished     bool   `json:"is_finished"`
	FinishPosition *int   `json:"finish_position"`
	IsActive       bool   `json:"is_active"`
}

type raceResponse struct {
	ID           string                `json:"id"`
	RoomCode     string                `json:"room_code"`
	Status       string                `json:"status"`
	Paragraph    string                `json:"paragraph"`
	MaxPlayers   int                   `json:"max_players"`
	Private      bool                  `json:"private"`
	Participants []participantResponse `json:"participants"`
}

type joinResponse struct {
	Race        raceResponse        `json:"race"`
	Participant participantResponse `json:"participant"`
}

type finishResponse struct {
	Position    int  `json:"position"`
	IsNewFinish bool `json:"is_new_finish"`
}

type standingsResponse struct {
	Standings []struct {
		Username string  `json:"username"`
		Position int     `json:"position"`
		WPM      float64 `json:"wpm"`
	} `json:"standings"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_PlayerCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Create guest
	output, err := cli.run("player", "guest", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)

	var created sessionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &created))
	assert.Equal(t, "Alice", created.Username)
	assert.True(t, created.IsGuest)
	assert.NotEmpty(t, created.Token)

	// Get me (token should be saved in token file)
	output, err = cli.run("player", "me")
	require.NoError(t, err, "output: %s", output)

	var me sessionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &me))
	assert.Equal(t, "Alice", me.Username)
	assert.Equal(t, created.Token, me.Token)
}

func TestCLI_RegisterAndLogin(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("player", "register", "--user", "bob", "--pass", "opensesame")
	require.NoError(t, err, "output: %s", output)

	var registered sessionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &registered))
	assert.Equal(t, "bob", registered.Username)
	assert.False(t, registered.IsGuest)

	output, err = cli.run("player", "login", "--user", "bob", "--pass", "opensesame")
	require.NoError(t, err, "output: %s", output)

	var loggedIn sessionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &loggedIn))
	assert.Equal(t, "bob", loggedIn.Username)
	assert.NotEqual(t, registered.Token, loggedIn.Token)

	_, err = cli.run("player", "login", "--user", "bob", "--pass", "wrongpass")
	require.Error(t, err)
}

func TestCLI_FullRace(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Two guests
	output, err := cli.run("player", "guest", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	var alice sessionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &alice))

	output, err = cli.run("player", "guest", "--name", "Bob")
	require.NoError(t, err, "output: %s", output)
	var bob sessionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &bob))

	// Alice creates a private race
	output, err = cli.runWithToken(alice.Token, "race", "create", "--max-players", "3", "--private")
	require.NoError(t, err, "output: %s", output)

	var created joinResponse
	require.NoError(t, json.Unmarshal([]byte(output), &created))
	assert.Equal(t, "waiting", created.Race.Status)
	assert.Equal(t, 3, created.Race.MaxPlayers)
	assert.True(t, created.Race.Private)
	assert.NotEmpty(t, created.Race.Paragraph)
	code := created.Race.RoomCode
	require.NotEmpty(t, code)

	// Bob joins by code
	output, err = cli.runWithToken(bob.Token, "race", "join", code)
	require.NoError(t, err, "output: %s", output)

	var joined joinResponse
	require.NoError(t, json.Unmarshal([]byte(output), &joined))
	assert.Equal(t, created.Race.ID, joined.Race.ID)

	// Alice starts the countdown
	output, err = cli.runWithToken(alice.Token, "race", "start", code)
	require.NoError(t, err, "output: %s", output)

	var countdown raceResponse
	require.NoError(t, json.Unmarshal([]byte(output), &countdown))
	assert.Equal(t, "countdown", countdown.Status)

	// Wait for the countdown to elapse
	waitForStatus(t, cli, alice.Token, code, "racing")

	// Progress and finishes
	output, err = cli.runWithToken(alice.Token, "race", "progress", code, "--progress", "60", "--wpm", "85.5", "--accuracy", "97.1")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.runWithToken(alice.Token, "race", "finish", code)
	require.NoError(t, err, "output: %s", output)
	var first finishResponse
	require.NoError(t, json.Unmarshal([]byte(output), &first))
	assert.Equal(t, 1, first.Position)
	assert.True(t, first.IsNewFinish)

	// A repeated finish keeps the same position
	output, err = cli.runWithToken(alice.Token, "race", "finish", code)
	require.NoError(t, err, "output: %s", output)
	var repeat finishResponse
	require.NoError(t, json.Unmarshal([]byte(output), &repeat))
	assert.Equal(t, 1, repeat.Position)
	assert.False(t, repeat.IsNewFinish)

	output, err = cli.runWithToken(bob.Token, "race", "finish", code)
	require.NoError(t, err, "output: %s", output)
	var second finishResponse
	require.NoError(t, json.Unmarshal([]byte(output), &second))
	assert.Equal(t, 2, second.Position)

	// Race is complete
	waitForStatus(t, cli, alice.Token, code, "finished")

	output, err = cli.runWithToken(alice.Token, "race", "standings", code)
	require.NoError(t, err, "output: %s", output)

	var standings standingsResponse
	require.NoError(t, json.Unmarshal([]byte(output), &standings))
	require.Len(t, standings.Standings, 2)
	assert.Equal(t, "Alice", standings.Standings[0].Username)
	assert.Equal(t, "Bob", standings.Standings[1].Username)
}

func TestCLI_QuickmatchPairsPlayers(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("player", "guest", "--name", "Carol")
	require.NoError(t, err, "output: %s", output)
	var carol sessionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &carol))

	output, err = cli.run("player", "guest", "--name", "Dave")
	require.NoError(t, err, "output: %s", output)
	var dave sessionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &dave))

	output, err = cli.runWithToken(carol.Token, "race", "quickmatch")
	require.NoError(t, err, "output: %s", output)
	var carolJoin joinResponse
	require.NoError(t, json.Unmarshal([]byte(output), &carolJoin))

	output, err = cli.runWithToken(dave.Token, "race", "quickmatch")
	require.NoError(t, err, "output: %s", output)
	var daveJoin joinResponse
	require.NoError(t, json.Unmarshal([]byte(output), &daveJoin))

	assert.Equal(t, carolJoin.Race.ID, daveJoin.Race.ID)
}

func waitForStatus(t *testing.T, cli *cliRunner, token, code, want string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		output, err := cli.runWithToken(token, "race", "get", code)
		require.NoError(t, err, "output: %s", output)

		var race raceResponse
		require.NoError(t, json.Unmarshal([]byte(output), &race))
		if race.Status == want {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("race %s did not reach status %q in time", code, want)
}
