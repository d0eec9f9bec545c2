package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestMaskFieldRedactsAuthToken(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{}))

	token := "Bearer stay-rpc-secret"
	logger.Warn("rejected rpc call",
		MaskField("authorization", token),
		slog.String("method", "booking_book"))

	if bytes.Contains(buf.Bytes(), []byte(token)) {
		t.Fatalf("log output leaked auth token: %s", buf.Bytes())
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log payload: %v", err)
	}
	if entry["authorization"] != RedactedValue {
		t.Fatalf("authorization = %v", entry["authorization"])
	}
	if entry["method"] != "booking_book" {
		t.Fatalf("allowlisted method was masked: %v", entry["method"])
	}
}

func TestMaskValue(t *testing.T) {
	if got := MaskValue("secret"); got != RedactedValue {
		t.Fatalf("MaskValue(secret) = %q", got)
	}
	if got := MaskValue("  "); got != "  " {
		t.Fatalf("empty values should pass through, got %q", got)
	}
}

func TestRedactionAllowlistIsSorted(t *testing.T) {
	keys := RedactionAllowlist()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("allowlist not sorted at %d: %v", i, keys)
		}
	}
	if !IsAllowlisted("Sequence") {
		t.Fatal("sequence should be allowlisted case-insensitively")
	}
	if IsAllowlisted("authorization") {
		t.Fatal("authorization must never be allowlisted")
	}
}
