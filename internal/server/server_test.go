package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"undercover/internal/config"
)

func newHTTPServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func playerIDs(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["players"].([]any)
	if !ok {
		t.Fatalf("expected players array, got %#v", body["players"])
	}
	ids := make([]string, 0, len(raw))
	for _, entry := range raw {
		ids = append(ids, entry.(map[string]any)["id"].(string))
	}
	return ids
}

func TestCreateSession(t *testing.T) {
	_, ts := newHTTPServer(t)

	code, hostID, token := createSession(t, ts, "Ada")
	if code == "" || hostID == "" || token == "" {
		t.Fatalf("missing fields: code=%q player=%q token=%q", code, hostID, token)
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/sessions/"+code, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["phase"] != phaseLobby {
		t.Fatalf("expected lobby phase, got %v", body["phase"])
	}
	if body["secret_word"] != nil {
		t.Fatalf("snapshot must never carry the secret word")
	}
	if body["host_player_id"] != hostID {
		t.Fatalf("expected host %q, got %v", hostID, body["host_player_id"])
	}
	if ids := playerIDs(t, body); len(ids) != 1 || ids[0] != hostID {
		t.Fatalf("expected host as only player, got %v", ids)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	_, ts := newHTTPServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", "", map[string]any{"name": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions", "", map[string]any{
		"name":     "Ada",
		"category": "spicy",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions", "", map[string]any{
		"name":     "Ada",
		"settings": map[string]any{"vote_seconds": 5},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestJoinSession(t *testing.T) {
	_, ts := newHTTPServer(t)

	code, _, _ := createSession(t, ts, "Ada")
	joinSession(t, ts, code, "Ben")
	joinSession(t, ts, code, "Cleo")

	resp := doRequest(t, ts, http.MethodGet, "/api/sessions/"+code, "", nil)
	body := decodeBody(t, resp)
	if ids := playerIDs(t, body); len(ids) != 3 {
		t.Fatalf("expected 3 players, got %v", ids)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/nope-0000/join", "", map[string]any{"name": "Dan"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestStartGameEndpoint(t *testing.T) {
	srv, ts := newHTTPServer(t)
	rec := &recordingDispatcher{}
	srv.dispatch = rec

	code, _, hostToken := createSession(t, ts, "Ada")
	_, benToken := joinSession(t, ts, code, "Ben")
	joinSession(t, ts, code, "Cleo")

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/start", hostToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d with three players, got %d", http.StatusConflict, resp.StatusCode)
	}

	joinSession(t, ts, code, "Dan")
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/start", benToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d for non-host, got %d", http.StatusForbidden, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/start", "", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d without token, got %d", http.StatusForbidden, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/start", hostToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/start", hostToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d on restart, got %d", http.StatusConflict, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/sessions/"+code, "", nil)
	body := decodeBody(t, resp)
	if body["phase"] != phaseRoundPlay {
		t.Fatalf("expected round play, got %v", body["phase"])
	}
	if body["secret_word"] != nil {
		t.Fatalf("snapshot must never carry the secret word")
	}

	// Late join is off by default once the game is running.
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/join", "", map[string]any{"name": "Eve"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d for late join, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestLateJoinWhenEnabled(t *testing.T) {
	srv, ts := newHTTPServer(t)
	srv.dispatch = &recordingDispatcher{}

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", "", map[string]any{
		"name":     "Ada",
		"settings": map[string]any{"allow_late_join": true},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	code := body["code"].(string)
	hostToken := body["player_token"].(string)

	joinSession(t, ts, code, "Ben")
	joinSession(t, ts, code, "Cleo")
	joinSession(t, ts, code, "Dan")
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/start", hostToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/join", "", map[string]any{"name": "Eve"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected late join allowed, got %d", resp.StatusCode)
	}
}

func TestSeatingEndpoint(t *testing.T) {
	_, ts := newHTTPServer(t)

	code, hostID, hostToken := createSession(t, ts, "Ada")
	benID, benToken := joinSession(t, ts, code, "Ben")
	cleoID, _ := joinSession(t, ts, code, "Cleo")

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/seating", benToken, map[string]any{
		"player_ids": []string{cleoID, benID, hostID},
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d for non-host, got %d", http.StatusForbidden, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/seating", hostToken, map[string]any{
		"player_ids": []string{cleoID, benID},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d for partial arrangement, got %d", http.StatusConflict, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/seating", hostToken, map[string]any{
		"player_ids": []string{cleoID, benID, hostID},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	ids := playerIDs(t, body)
	if len(ids) != 3 || ids[0] != cleoID || ids[1] != benID || ids[2] != hostID {
		t.Fatalf("unexpected seating %v", ids)
	}
}

func TestKickEndpoint(t *testing.T) {
	_, ts := newHTTPServer(t)

	code, hostID, hostToken := createSession(t, ts, "Ada")
	benID, benToken := joinSession(t, ts, code, "Ben")

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/kick", benToken, map[string]any{
		"player_id": hostID,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d for non-host, got %d", http.StatusForbidden, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/kick", hostToken, map[string]any{
		"player_id": hostID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d for removing the host, got %d", http.StatusConflict, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/kick", hostToken, map[string]any{
		"player_id": benID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ids := playerIDs(t, decodeBody(t, resp)); len(ids) != 1 {
		t.Fatalf("expected only the host left, got %v", ids)
	}

	// The kicked player's token is revoked.
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+code+"/seating", benToken, map[string]any{
		"player_ids": []string{hostID},
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d for revoked token, got %d", http.StatusForbidden, resp.StatusCode)
	}
}

func TestDeleteSessionEndpoint(t *testing.T) {
	_, ts := newHTTPServer(t)

	code, _, hostToken := createSession(t, ts, "Ada")
	_, benToken := joinSession(t, ts, code, "Ben")

	resp := doRequest(t, ts, http.MethodDelete, "/api/sessions/"+code, benToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d for non-host, got %d", http.StatusForbidden, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/sessions/"+code, hostToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodGet, "/api/sessions/"+code, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d after delete, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestSessionQR(t *testing.T) {
	_, ts := newHTTPServer(t)

	code, _, _ := createSession(t, ts, "Ada")
	resp := doRequest(t, ts, http.MethodGet, "/api/sessions/"+code+"/qr", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/sessions/nope-0000/qr", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	_, ts := newHTTPServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/sessions/nope-0000", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/nope-0000/start", "", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d without a valid token, got %d", http.StatusForbidden, resp.StatusCode)
	}
}
