package logger

import "strings"

// Fixed vocabularies for the level, status and outcome fields. Unknown
// statuses are kept lowercased; unknown outcomes are dropped.
var (
	knownStatus = map[string]bool{
		"ok": true, "fail": true, "skip": true, "retry": true,
		"rate_limited": true, "cancelled": true,
	}
	knownOutcome = map[string]bool{
		"ok": true, "fail": true, "cancelled": true, "rate_limited": true,
	}
)

func normalizeLevel(level string) string {
	switch l := strings.ToUpper(strings.TrimSpace(level)); l {
	case "":
		return "INFO"
	case "WARNING":
		return "WARN"
	default:
		return l
	}
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	return status, knownStatus[status]
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	return outcome, knownOutcome[outcome]
}

// defaultKeyOrder puts correlation fields first and the error tail last.
// Keys outside the list follow in alphabetical order.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"state", "next_state", "effect", "outcome",
	"duration_ms", "update_ms", "messages", "kb",
	"sessions", "idle", "reaped", "skipped", "threshold_ms", "flood",
	"payload", "lang", "username",
	"mode", "listen", "public_url", "http_code", "method", "path",
	"db", "host", "port",
	"err", "err_code", "cause", "attempts", "rate_limited",
}
