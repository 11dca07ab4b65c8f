package domain

import (
	"encoding/json"
	"strings"
)

// NotificationPayload is the loosely-typed body of an inbound payment
// notification. Gateways deliver several payload shapes; extraction tries
// each candidate in a fixed priority order.
type NotificationPayload map[string]any

// ParseNotificationPayload decodes a webhook body. A malformed body is
// treated as an empty payload, not a hard failure.
func ParseNotificationPayload(body []byte) NotificationPayload {
	p := NotificationPayload{}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &p)
	}
	return p
}

// SessionID extracts the session identifier, checking in order:
// top-level sessionId, session.id, data.session.id. The first non-empty
// string wins.
func (p NotificationPayload) SessionID() (string, bool) {
	if id := stringField(p, "sessionId"); id != "" {
		return id, true
	}
	if session, ok := p["session"].(map[string]any); ok {
		if id := stringField(session, "id"); id != "" {
			return id, true
		}
	}
	if data, ok := p["data"].(map[string]any); ok {
		if session, ok := data["session"].(map[string]any); ok {
			if id := stringField(session, "id"); id != "" {
				return id, true
			}
		}
	}
	return "", false
}

// successTokens are the gateway result values that signal a captured payment.
var successTokens = map[string]bool{
	"SUCCESS":  true,
	"CAPTURED": true,
	"APPROVED": true,
}

// PaymentSucceeded reports whether any of the recognized outcome fields
// (result, status, paymentStatus, transaction.status) carries a success
// value, compared case-insensitively.
func (p NotificationPayload) PaymentSucceeded() bool {
	candidates := []string{
		stringField(p, "result"),
		stringField(p, "status"),
		stringField(p, "paymentStatus"),
	}
	if tx, ok := p["transaction"].(map[string]any); ok {
		candidates = append(candidates, stringField(tx, "status"))
	}
	for _, c := range candidates {
		if successTokens[strings.ToUpper(c)] {
			return true
		}
	}
	return false
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
