package server

import "strings"

// parseSessionPath splits "/api/sessions/{code}" and
// "/api/sessions/{code}/{action}" into code and action.
func parseSessionPath(path string) (code, action string, ok bool) {
	rest, found := strings.CutPrefix(path, "/api/sessions/")
	if !found || rest == "" {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	default:
		return "", "", false
	}
}

func parseWebsocketPath(path string) (string, bool) {
	rest, found := strings.CutPrefix(path, "/ws/sessions/")
	if !found {
		return "", false
	}
	code := strings.Trim(rest, "/")
	if code == "" || strings.Contains(code, "/") {
		return "", false
	}
	return code, true
}
