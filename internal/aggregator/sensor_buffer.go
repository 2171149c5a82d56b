package aggregator

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitcoach-backend/internal/models"
	"fitcoach-backend/internal/pipeline"
)

// MaxPendingSamples caps a stream buffered while the other sensor has not
// reported yet (one minute at 100 Hz).
const MaxPendingSamples = 6000

// WindowReady is emitted once per complete live window
type WindowReady struct {
	DeviceID  string
	SessionID string
	Index     int
	StartTime float64
	EndTime   float64
	Features  pipeline.FeatureVector
}

// SessionBuffer holds the not yet consumed samples of one device session
type SessionBuffer struct {
	DeviceID  string
	SessionID string
	StartedAt time.Time
	LastSeen  time.Time

	accel []models.RawSample
	gyro  []models.RawSample

	// grid anchor, fixed once both sensors have reported
	origin   float64
	anchored bool
	winRows  int
	stepRows int
	nextRow  int
	windows  int
	mu       sync.Mutex
}

// SessionInfo is a read-only snapshot of a SessionBuffer
type SessionInfo struct {
	DeviceID  string    `json:"device_id"`
	SessionID string    `json:"session_id"`
	Windows   int       `json:"windows"`
	StartedAt time.Time `json:"started_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// StreamAggregator turns per-device accelerometer and gyroscope batches into
// the same windows the offline pipeline cuts from a recorded session.
type StreamAggregator struct {
	params  pipeline.Params
	devices map[string]*SessionBuffer
	mu      sync.RWMutex

	onWindowReady func(*WindowReady)
}

// NewStreamAggregator creates an aggregator segmenting with p
func NewStreamAggregator(p pipeline.Params) (*StreamAggregator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &StreamAggregator{
		params:  p,
		devices: make(map[string]*SessionBuffer),
	}, nil
}

// SetWindowCallback sets the function invoked for every complete window.
// It runs with the device buffer locked, so windows of one device arrive in order.
func (sa *StreamAggregator) SetWindowCallback(callback func(*WindowReady)) {
	sa.onWindowReady = callback
}

func (sa *StreamAggregator) getOrCreateSession(deviceID string) *SessionBuffer {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if buf, exists := sa.devices[deviceID]; exists {
		return buf
	}

	now := time.Now()
	buf := &SessionBuffer{
		DeviceID:  deviceID,
		SessionID: uuid.New().String(),
		StartedAt: now,
		LastSeen:  now,
	}
	sa.devices[deviceID] = buf
	log.Printf("Aggregator: new session %s for device %s", buf.SessionID, deviceID)
	return buf
}

// Append buffers a batch and emits every window it completes. It returns
// the number of windows emitted.
func (sa *StreamAggregator) Append(batch *models.SampleBatch) (int, error) {
	if batch == nil || len(batch.Samples) == 0 {
		return 0, nil
	}
	if batch.Sensor != models.SensorAccelerometer && batch.Sensor != models.SensorGyroscope {
		return 0, fmt.Errorf("unknown sensor %q", batch.Sensor)
	}

	buf := sa.getOrCreateSession(batch.DeviceID)
	buf.mu.Lock()
	defer buf.mu.Unlock()

	buf.LastSeen = time.Now()
	if batch.Sensor == models.SensorAccelerometer {
		buf.accel = mergeSamples(buf.accel, batch.Samples)
	} else {
		buf.gyro = mergeSamples(buf.gyro, batch.Samples)
	}

	if !buf.anchored {
		if len(buf.accel) == 0 || len(buf.gyro) == 0 {
			buf.accel = capPending(buf.DeviceID, buf.accel)
			buf.gyro = capPending(buf.DeviceID, buf.gyro)
			return 0, nil
		}
		if err := sa.anchor(buf); err != nil {
			return 0, err
		}
	}

	return sa.drain(buf)
}

// anchor fixes the session grid the same way Align and Segment derive it
func (sa *StreamAggregator) anchor(buf *SessionBuffer) error {
	origin, err := pipeline.GridStart(buf.accel, buf.gyro)
	if err != nil {
		return err
	}
	step := (origin + sa.params.ResampleDT) - origin
	winRows, stepRows, err := pipeline.SampleCounts(step, sa.params.WindowSeconds, sa.params.StepSeconds)
	if err != nil {
		return err
	}

	buf.origin = origin
	buf.winRows = winRows
	buf.stepRows = stepRows
	buf.anchored = true
	log.Printf("Aggregator: session %s anchored at t=%.3f (window=%d rows, step=%d rows)",
		buf.SessionID, origin, winRows, stepRows)
	return nil
}

func (sa *StreamAggregator) drain(buf *SessionBuffer) (int, error) {
	emitted := 0
	rows := pipeline.GridEnd(buf.accel, buf.gyro, buf.origin, sa.params.ResampleDT)

	for buf.nextRow+buf.winRows <= rows {
		table, err := pipeline.AlignGrid(buf.accel, buf.gyro, buf.origin, sa.params.ResampleDT,
			buf.nextRow, buf.nextRow+buf.winRows)
		if err != nil {
			return emitted, fmt.Errorf("failed to align window %d of %s: %w", buf.windows, buf.DeviceID, err)
		}
		features, err := pipeline.ExtractFeatures(table, 0, table.Len())
		if err != nil {
			return emitted, fmt.Errorf("failed to extract window %d of %s: %w", buf.windows, buf.DeviceID, err)
		}

		ready := &WindowReady{
			DeviceID:  buf.DeviceID,
			SessionID: buf.SessionID,
			Index:     buf.windows,
			StartTime: table.Rows[0].Time,
			EndTime:   table.Rows[table.Len()-1].Time,
			Features:  features,
		}
		buf.windows++
		buf.nextRow += buf.stepRows
		emitted++

		if sa.onWindowReady != nil {
			sa.onWindowReady(ready)
		} else {
			log.Printf("Aggregator: no window callback set, dropping window %d of %s", ready.Index, buf.DeviceID)
		}
	}

	if emitted > 0 {
		cut := buf.origin + float64(buf.nextRow)*sa.params.ResampleDT
		buf.accel = trimBefore(buf.accel, cut)
		buf.gyro = trimBefore(buf.gyro, cut)
	}
	return emitted, nil
}

// mergeSamples appends incoming and keeps the buffer time-ordered. The sort is
// stable so the first-seen record of a repeated timestamp stays in front.
func mergeSamples(buf, incoming []models.RawSample) []models.RawSample {
	sorted := len(buf) == 0 || incoming[0].Time >= buf[len(buf)-1].Time
	for i := 1; sorted && i < len(incoming); i++ {
		sorted = incoming[i].Time >= incoming[i-1].Time
	}
	buf = append(buf, incoming...)
	if !sorted {
		sort.SliceStable(buf, func(i, j int) bool { return buf[i].Time < buf[j].Time })
	}
	return buf
}

// trimBefore drops samples older than cut, keeping the last one before it so
// the next grid point can still be interpolated.
func trimBefore(buf []models.RawSample, cut float64) []models.RawSample {
	idx := sort.Search(len(buf), func(i int) bool { return buf[i].Time >= cut })
	keep := idx - 1
	if keep <= 0 {
		return buf
	}
	for keep > 0 && buf[keep-1].Time == buf[keep].Time {
		keep--
	}
	return append([]models.RawSample(nil), buf[keep:]...)
}

func capPending(deviceID string, buf []models.RawSample) []models.RawSample {
	if len(buf) <= MaxPendingSamples {
		return buf
	}
	log.Printf("Aggregator: waiting for second sensor on %s, dropping %d old samples",
		deviceID, len(buf)-MaxPendingSamples)
	return append([]models.RawSample(nil), buf[len(buf)-MaxPendingSamples:]...)
}

// Reset ends the current session of a device; its next sample starts a new one
func (sa *StreamAggregator) Reset(deviceID string) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if buf, ok := sa.devices[deviceID]; ok {
		log.Printf("Aggregator: session %s of %s closed after %d windows", buf.SessionID, deviceID, buf.windows)
		delete(sa.devices, deviceID)
	}
}

// GetSession returns a snapshot of the current session of a device
func (sa *StreamAggregator) GetSession(deviceID string) (SessionInfo, bool) {
	sa.mu.RLock()
	buf, ok := sa.devices[deviceID]
	sa.mu.RUnlock()
	if !ok {
		return SessionInfo{}, false
	}

	buf.mu.Lock()
	defer buf.mu.Unlock()
	return SessionInfo{
		DeviceID:  buf.DeviceID,
		SessionID: buf.SessionID,
		Windows:   buf.windows,
		StartedAt: buf.StartedAt,
		LastSeen:  buf.LastSeen,
	}, true
}

// GetAllDevices returns all device IDs with an open session
func (sa *StreamAggregator) GetAllDevices() []string {
	sa.mu.RLock()
	defer sa.mu.RUnlock()

	devices := make([]string, 0, len(sa.devices))
	for deviceID := range sa.devices {
		devices = append(devices, deviceID)
	}
	sort.Strings(devices)
	return devices
}

// ExpireIdle closes sessions that have not received samples for maxIdle
func (sa *StreamAggregator) ExpireIdle(maxIdle time.Duration) int {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	closed := 0
	for deviceID, buf := range sa.devices {
		buf.mu.Lock()
		idle := time.Since(buf.LastSeen)
		buf.mu.Unlock()
		if idle >= maxIdle {
			log.Printf("Aggregator: session %s of %s idle for %.0fs, closing", buf.SessionID, deviceID, idle.Seconds())
			delete(sa.devices, deviceID)
			closed++
		}
	}
	return closed
}
