package models

import "time"

// Device is a phone or wearable that streams samples over MQTT
type Device struct {
	DeviceID     string    `json:"device_id"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`
	IsActive     bool      `json:"is_active"`
}

// RepResult is the classification of one live window
type RepResult struct {
	DeviceID        string    `json:"device_id"`
	SessionID       string    `json:"session_id"`
	Index           int       `json:"index"`
	StartTime       float64   `json:"start_time"`
	EndTime         float64   `json:"end_time"`
	Label           string    `json:"label"`
	Confidence      float64   `json:"confidence"` // 0-1
	InferenceTimeMs float64   `json:"inference_time_ms"`
	ModelVersion    string    `json:"model_version"`
	Timestamp       time.Time `json:"timestamp"`
}

// ClassifyRequest is the body of POST /classify_window
type ClassifyRequest struct {
	Samples []WindowSample `json:"samples" binding:"dive"`
}

// WindowSample is one request row. Every channel must be present; a missing
// field fails binding instead of reading as zero.
type WindowSample struct {
	Time *float64 `json:"time" binding:"required"`
	Ax   *float64 `json:"ax" binding:"required"`
	Ay   *float64 `json:"ay" binding:"required"`
	Az   *float64 `json:"az" binding:"required"`
	Gx   *float64 `json:"gx" binding:"required"`
	Gy   *float64 `json:"gy" binding:"required"`
	Gz   *float64 `json:"gz" binding:"required"`
}

// NewClassifyRequest builds a request body from fused samples
func NewClassifyRequest(samples []Sample) ClassifyRequest {
	req := ClassifyRequest{Samples: make([]WindowSample, len(samples))}
	for i := range samples {
		s := samples[i]
		req.Samples[i] = WindowSample{Time: &s.Time, Ax: &s.Ax, Ay: &s.Ay, Az: &s.Az, Gx: &s.Gx, Gy: &s.Gy, Gz: &s.Gz}
	}
	return req
}

// Rows converts a bound request into fused samples. Call it only after
// binding has checked that every field is set.
func (r ClassifyRequest) Rows() []Sample {
	rows := make([]Sample, len(r.Samples))
	for i, s := range r.Samples {
		rows[i] = Sample{Time: *s.Time, Ax: *s.Ax, Ay: *s.Ay, Az: *s.Az, Gx: *s.Gx, Gy: *s.Gy, Gz: *s.Gz}
	}
	return rows
}
