package mqtt

import (
	"testing"
	"time"

	"fitcoach-backend/internal/models"
)

func TestExtractDeviceID(t *testing.T) {
	tests := map[string]string{
		"fitcoach/phone-001/accelerometer": "phone-001",
		"fitcoach/watch/control":           "watch",
		"fitcoach":                         "",
	}
	for topic, want := range tests {
		if got := extractDeviceID(topic); got != want {
			t.Errorf("extractDeviceID(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestFormatTopic(t *testing.T) {
	if got := formatTopic("fitcoach/{device_id}/rep", "phone-7"); got != "fitcoach/phone-7/rep" {
		t.Errorf("unexpected topic %q", got)
	}
}

func TestDecodeSampleBatch(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"samples":[{"time":0.01,"x":1,"y":2,"z":3},{"time":0.02,"x":4,"y":5,"z":6}]}`)

	batch, err := decodeSampleBatch("fitcoach/phone-1/gyroscope", payload, models.SensorGyroscope, now)
	if err != nil {
		t.Fatalf("decodeSampleBatch failed: %v", err)
	}
	if batch.DeviceID != "phone-1" || batch.Sensor != models.SensorGyroscope || !batch.ReceivedAt.Equal(now) {
		t.Errorf("unexpected batch header %+v", batch)
	}
	if len(batch.Samples) != 2 || batch.Samples[1] != (models.RawSample{Time: 0.02, X: 4, Y: 5, Z: 6}) {
		t.Errorf("unexpected samples %+v", batch.Samples)
	}
}

func TestDecodeSampleBatchErrors(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"no device", "fitcoach", `{"samples":[{"time":0}]}`},
		{"bad json", "fitcoach/a/accelerometer", `{"samples":`},
		{"empty", "fitcoach/a/accelerometer", `{"samples":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeSampleBatch(tt.topic, []byte(tt.payload), models.SensorAccelerometer, time.Now()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(ClientConfig{Broker: "tcp://localhost:1883", ClientID: "fitcoach-test"})

	if opts.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("connect timeout %v, want %v", opts.ConnectTimeout, DefaultConnectTimeout)
	}
	if opts.CleanSession || !opts.ResumeSubs || !opts.AutoReconnect {
		t.Errorf("sample subscriptions would not survive a reconnect: clean=%v resume=%v auto=%v",
			opts.CleanSession, opts.ResumeSubs, opts.AutoReconnect)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].Host != "localhost:1883" || opts.ClientID != "fitcoach-test" {
		t.Errorf("unexpected broker settings %v %q", opts.Servers, opts.ClientID)
	}

	opts = clientOptions(ClientConfig{Broker: "tcp://localhost:1883", ConnectTimeout: 3 * time.Second})
	if opts.ConnectTimeout != 3*time.Second {
		t.Errorf("connect timeout %v, want 3s", opts.ConnectTimeout)
	}
}
