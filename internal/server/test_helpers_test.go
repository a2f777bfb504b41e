package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"undercover/internal/config"
)

type recordedEvent struct {
	code     string
	playerID string
	event    string
	payload  any
}

// recordingDispatcher captures outbound events instead of pushing them
// over websockets, so engine tests can assert on the event stream.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (d *recordingDispatcher) Broadcast(code, event string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, recordedEvent{code: code, event: event, payload: payload})
}

func (d *recordingDispatcher) ToPlayer(code, playerID, event string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, recordedEvent{code: code, playerID: playerID, event: event, payload: payload})
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

func (d *recordingDispatcher) count(event string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, recorded := range d.events {
		if recorded.event == event {
			total++
		}
	}
	return total
}

func (d *recordingDispatcher) contains(event string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, recorded := range d.events {
		if recorded.event == event {
			return true
		}
	}
	return false
}

func newEngineServer(t *testing.T) (*Server, *recordingDispatcher) {
	t.Helper()
	srv := New(config.Default())
	rec := &recordingDispatcher{}
	srv.dispatch = rec
	return srv, rec
}

func seedPlayers() []Player {
	return []Player{
		{ID: "p1", Name: "Ada", Emoji: "🦊", IsConnected: true},
		{ID: "p2", Name: "Ben", Emoji: "🐙", IsConnected: true},
		{ID: "p3", Name: "Cleo", Emoji: "🦁", IsWhite: true, IsConnected: true},
		{ID: "p4", Name: "Dan", Emoji: "🐯", IsConnected: true},
	}
}

// seedSession plants a deterministic four player session: p1 hosts and
// starts, p3 is white, the word is known. phase controls which deadline
// state is prepared.
func seedSession(t *testing.T, srv *Server, code, phase string) {
	t.Helper()
	session := &Session{
		Code:          code,
		HostPlayerID:  "p1",
		CreatedAt:     timeNowUTC(),
		Phase:         phase,
		Players:       seedPlayers(),
		Category:      categoryDefault,
		SecretWord:    "Bibliothek",
		WhitePlayerID: "p3",
		Settings: Settings{
			VoteSeconds:  120,
			GuessSeconds: 30,
		},
	}
	if phase != phaseLobby {
		session.Round = &Round{Number: 1, StartingPlayerID: "p1"}
	}
	if phase == phaseVoting {
		session.VoteSeq = 1
		session.Vote = &Vote{
			Deadline: timeNowUTC().Add(2 * time.Minute),
			Seq:      1,
			Ballots:  make(map[string]*string),
		}
	}
	if phase == phaseWhiteGuess {
		session.GuessSeq = 1
		session.WhiteGuess = &WhiteGuess{
			Deadline: timeNowUTC().Add(30 * time.Second),
			Seq:      1,
		}
	}
	srv.store.CreateSession(session)
	t.Cleanup(func() {
		srv.store.DeleteSession(code)
	})
}

func strPtr(s string) *string {
	return &s
}

func mustGetSession(t *testing.T, srv *Server, code string) *Session {
	t.Helper()
	session, ok := srv.store.GetSession(code)
	if !ok {
		t.Fatalf("session %s not found", code)
	}
	return session
}

func createSession(t *testing.T, ts *httptest.Server, name string) (code, playerID, token string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", "", map[string]any{
		"name": name,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["code"].(string), body["player_id"].(string), body["player_token"].(string)
}

func joinSession(t *testing.T, ts *httptest.Server, code, name string) (playerID, token string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/join", "", map[string]any{
		"name": name,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["player_id"].(string), body["player_token"].(string)
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}
