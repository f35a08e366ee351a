package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	host := os.Getenv("MQTT_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     host,
			Port:     1883,
			ClientID: "dspx-monitor-test",
		},
		QoS:         1,
		TopicPrefix: "dspx-test",
		Reconnect:   config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 5},
	}
}

// connectOrSkip skips the test when no broker is reachable.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("set RUN_INTEGRATION=1 to run against a live MQTT broker")
	}
	c, err := Connect(testConfig())
	if err != nil {
		t.Skipf("MQTT broker not available: %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // Test cleanup
	return c
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		got    func(Topics) string
		want   string
	}{
		{"status", "dspx", Topics.SystemStatus, "dspx/system/status"},
		{"data updated", "dspx", Topics.DataUpdated, "dspx/data/updated"},
		{"report", "lab/fridge2", Topics.ReportSummary, "lab/fridge2/report/summary"},
		{"refresh trims slashes", "/dspx/", Topics.RefreshCommand, "dspx/command/refresh"},
		{"empty prefix", "", Topics.All, "dspx/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got(Topics{Prefix: tt.prefix}); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := newClient(testConfig())

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 0, ErrInvalidTopic},
		{"bad qos", "dspx/x", []byte("x"), 3, ErrInvalidQoS},
		{"oversized", "dspx/x", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "dspx/x", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := newClient(testConfig())
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: %v", err)
	}
	if err := c.Subscribe("dspx/x", 5, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos: %v", err)
	}
	if err := c.Subscribe("dspx/x", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler: %v", err)
	}
	if err := c.Subscribe("dspx/x", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("not connected: %v", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := newClient(testConfig())
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestBuildStatus(t *testing.T) {
	var got statusPayload
	if err := json.Unmarshal(buildStatus("dspx-1", "offline", "graceful_shutdown"), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != "offline" || got.ClientID != "dspx-1" || got.Reason != "graceful_shutdown" {
		t.Errorf("status payload = %+v", got)
	}
	if _, err := time.Parse(time.RFC3339, got.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", got.Timestamp, err)
	}
}

func TestPublishSubscribe_RoundTrip(t *testing.T) {
	c := connectOrSkip(t)
	topic := c.Topics().DataUpdated()

	received := make(chan string, 1)
	err := c.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := c.PublishJSON(topic, map[string]string{"date": "2026-06-10"}, false); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case msg := <-received:
		if !strings.Contains(msg, "2026-06-10") {
			t.Errorf("received %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
