package event

import (
	"encoding/json"
	"testing"
)

func TestContextCloneIsolation(t *testing.T) {
	orig := Context{
		Page:   "/users/:id",
		Extra:  map[string]interface{}{"plan": "free"},
		User:   &User{ID: "u1", Traits: map[string]interface{}{"beta": true}},
		Locale: "en-US",
	}
	snap := orig.Clone()

	orig.Extra["plan"] = "pro"
	orig.User.Traits["beta"] = false
	orig.User.ID = "u2"

	if snap.Extra["plan"] != "free" {
		t.Fatalf("extra leaked through clone")
	}
	if snap.User.Traits["beta"] != true {
		t.Fatalf("traits leaked through clone")
	}
	if snap.User.ID != "u1" {
		t.Fatalf("user id leaked through clone")
	}
}

func TestEncodeEnvelopeFields(t *testing.T) {
	ev := &Event{
		Type:        TypeCustom,
		Name:        "checkout",
		TimestampMs: 1724900000000,
		SessionID:   "s1",
		DeviceID:    "d1",
		Seq:         7,
		Data:        map[string]interface{}{"total": 42},
	}
	b, err := ev.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if got["type"] != "custom" || got["name"] != "checkout" {
		t.Fatalf("type/name missing: %v", got)
	}
	if got["seq"] != float64(7) {
		t.Fatalf("seq missing: %v", got)
	}
	if got["sessionId"] != "s1" || got["deviceId"] != "d1" {
		t.Fatalf("ids missing: %v", got)
	}
}

func TestEncodeOmitsEmptyOptionalFields(t *testing.T) {
	ev := &Event{Type: TypePageView, SessionID: "s", DeviceID: "d"}
	b, err := ev.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]interface{}
	_ = json.Unmarshal(b, &got)
	if _, ok := got["name"]; ok {
		t.Fatalf("empty name should be omitted")
	}
	if _, ok := got["data"]; ok {
		t.Fatalf("empty data should be omitted")
	}
}
