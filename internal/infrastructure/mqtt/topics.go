package mqtt

import "strings"

// DefaultTopicPrefix roots every topic when the config leaves it empty.
const DefaultTopicPrefix = "dspx"

// Topics builds the monitor's MQTT topic names under a common prefix.
//
//	t := mqtt.Topics{Prefix: "dspx"}
//	t.DataUpdated() // "dspx/data/updated"
type Topics struct {
	Prefix string
}

func (t Topics) join(parts ...string) string {
	prefix := strings.Trim(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// SystemStatus carries the retained online/offline state and the LWT.
func (t Topics) SystemStatus() string { return t.join("system", "status") }

// DataUpdated is published when a watched log file changes.
func (t Topics) DataUpdated() string { return t.join("data", "updated") }

// ReportSummary carries the last delivered report, retained.
func (t Topics) ReportSummary() string { return t.join("report", "summary") }

// RefreshCommand is subscribed to; any message drops the dashboard cache.
func (t Topics) RefreshCommand() string { return t.join("command", "refresh") }

// All matches every topic under the prefix.
func (t Topics) All() string { return t.join("#") }
