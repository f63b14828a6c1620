package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatPayloadAsQuery converts any webhook payload into a natural-language
// investigation request for the supervisor. An empty return value means the
// payload carries nothing actionable and the agent must not be invoked.
//
// Alertmanager-style payloads (an "alerts" list) get dedicated formatting;
// everything else is pretty-printed into a generic investigation template.
func FormatPayloadAsQuery(payload map[string]interface{}) string {
	if _, ok := alertList(payload); ok {
		return formatAlertmanagerPayload(payload)
	}

	pretty, err := json.MarshalIndent(canonicalize(payload), "", "  ")
	if err != nil {
		pretty = []byte(fmt.Sprint(payload))
	}

	return fmt.Sprintf(`A webhook has been received that requires investigation:

%s

Please analyze this data and investigate any issues indicated. Find the root cause and suggest remediation steps.`,
		"```json\n"+string(pretty)+"\n```")
}

// AlertCounts reports the total and firing alert counts for an
// Alertmanager-shaped payload, with ok=false for generic payloads. Used for
// ingestion logging.
func AlertCounts(payload map[string]interface{}) (total, firing int, ok bool) {
	alerts, ok := alertList(payload)
	if !ok {
		return 0, 0, false
	}
	for _, a := range alerts {
		if status(a) == "firing" {
			firing++
		}
	}
	return len(alerts), firing, true
}

func formatAlertmanagerPayload(payload map[string]interface{}) string {
	alerts, _ := alertList(payload)

	var firing []map[string]interface{}
	for _, a := range alerts {
		if alert, ok := a.(map[string]interface{}); ok && status(a) == "firing" {
			firing = append(firing, alert)
		}
	}

	// Resolved-only notifications are noise: nothing to investigate.
	if len(firing) == 0 {
		return ""
	}

	if len(firing) == 1 {
		return formatSingleAlert(firing[0])
	}
	return formatMultipleAlerts(firing)
}

func formatSingleAlert(alert map[string]interface{}) string {
	labels := stringMap(alert, "labels")
	annotations := stringMap(alert, "annotations")

	alertname := fallback(labels["alertname"], "Unknown Alert")
	severity := fallback(labels["severity"], "unknown")

	description := annotations["description"]
	if description == "" {
		description = annotations["summary"]
	}
	if description == "" {
		description = "No description provided"
	}

	var contextParts []string
	for _, key := range []string{"namespace", "pod", "service"} {
		if v := labels[key]; v != "" {
			contextParts = append(contextParts, key+"="+v)
		}
	}
	context := "cluster-wide"
	if len(contextParts) > 0 {
		context = strings.Join(contextParts, ", ")
	}

	return fmt.Sprintf(`An alert has fired and needs investigation:

Alert: %s
Severity: %s
Context: %s

Description: %s

Please investigate this alert. Find the root cause and suggest remediation steps.`,
		alertname, severity, context, description)
}

func formatMultipleAlerts(firing []map[string]interface{}) string {
	summaries := make([]string, 0, len(firing))
	for _, alert := range firing {
		labels := stringMap(alert, "labels")
		annotations := stringMap(alert, "annotations")

		alertname := fallback(labels["alertname"], "Unknown")
		severity := fallback(labels["severity"], "unknown")
		// The aggregate path falls back to "default" where the
		// single-alert path says "cluster-wide"; observed behavior,
		// kept as is.
		namespace := fallback(labels["namespace"], "default")
		description := annotations["description"]
		if description == "" {
			description = annotations["summary"]
		}
		summaries = append(summaries,
			fmt.Sprintf("- %s (severity=%s, namespace=%s): %s", alertname, severity, namespace, description))
	}

	return fmt.Sprintf(`Multiple alerts have fired and need investigation:

Total firing alerts: %d

Alerts:
%s

Please investigate these alerts together. They may be related. Find the root cause and suggest remediation steps.`,
		len(firing), strings.Join(summaries, "\n"))
}

// alertList returns payload["alerts"] when it is a list.
func alertList(payload map[string]interface{}) ([]interface{}, bool) {
	alerts, ok := payload["alerts"].([]interface{})
	return alerts, ok
}

func status(alert interface{}) string {
	m, ok := alert.(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := m["status"].(string)
	return s
}

// stringMap extracts a nested object field as a string-valued map, dropping
// non-string values.
func stringMap(alert map[string]interface{}, key string) map[string]string {
	out := make(map[string]string)
	nested, ok := alert[key].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range nested {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
