package webhook

import (
	"strings"
	"testing"
)

func TestGenerateThreadIDDeterministic(t *testing.T) {
	payload := map[string]interface{}{
		"alerts": []interface{}{
			map[string]interface{}{
				"status": "firing",
				"labels": map[string]interface{}{"alertname": "PodCrashLooping"},
			},
		},
		"version": "4",
	}

	first := GenerateThreadID(payload)
	second := GenerateThreadID(payload)

	if first != second {
		t.Errorf("Expected identical thread ids, got %s and %s", first, second)
	}
}

func TestGenerateThreadIDIgnoresKeyOrder(t *testing.T) {
	// Same content, maps built in different insertion order
	a := map[string]interface{}{}
	a["version"] = "4"
	a["status"] = "firing"
	a["labels"] = map[string]interface{}{"severity": "critical", "alertname": "HighCPU"}

	b := map[string]interface{}{}
	b["labels"] = map[string]interface{}{"alertname": "HighCPU", "severity": "critical"}
	b["status"] = "firing"
	b["version"] = "4"

	if GenerateThreadID(a) != GenerateThreadID(b) {
		t.Errorf("Expected same thread id regardless of key order: %s vs %s",
			GenerateThreadID(a), GenerateThreadID(b))
	}
}

func TestGenerateThreadIDDistinctPayloads(t *testing.T) {
	a := map[string]interface{}{"alert": "HighCPU"}
	b := map[string]interface{}{"alert": "HighMemory"}

	if GenerateThreadID(a) == GenerateThreadID(b) {
		t.Error("Expected different payloads to produce different thread ids")
	}
}

func TestGenerateThreadIDFormat(t *testing.T) {
	id := GenerateThreadID(map[string]interface{}{"key": "value"})

	if !strings.HasPrefix(id, "webhook-") {
		t.Errorf("Expected webhook- prefix, got %s", id)
	}
	if len(id) != len("webhook-")+12 {
		t.Errorf("Expected 12-char digest suffix, got %s (len %d)", id, len(id))
	}
}

func TestGenerateThreadIDEmptyPayload(t *testing.T) {
	id := GenerateThreadID(map[string]interface{}{})

	if !strings.HasPrefix(id, "webhook-") {
		t.Errorf("Expected webhook- prefix for empty payload, got %s", id)
	}
	// Empty payloads are still stable
	if id != GenerateThreadID(map[string]interface{}{}) {
		t.Error("Expected empty payload thread id to be deterministic")
	}
}
