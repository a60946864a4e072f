package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	applicationName = "voicegame"
	fragmentMillis  = 20
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns available Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	var (
		defaultDevice *Device
		byInput       *Device
		byFallback    *Device
	)

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && input != "" && input != "default" && deviceMatches(*dev, input) {
			byInput = dev
		}
		if byFallback == nil && fallback != "" && fallback != "default" && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, errors.New("default audio source is unavailable")
		}
		return defaultDevice, nil
	}

	selectPrimary := func() (*Device, error) {
		if input == "" || input == "default" {
			return chooseDefault()
		}
		if byInput != nil {
			return byInput, nil
		}
		return nil, fmt.Errorf("audio.input %q did not match any device", input)
	}

	primary, err := selectPrimary()
	if err != nil {
		return Selection{}, err
	}
	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	primaryReason := "unavailable"
	if primary.Muted {
		primaryReason = "muted"
	}

	fallbackDevice := primary
	if fallback != "" && fallback != "default" {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, primaryReason, fallback)
		}
		fallbackDevice = byFallback
	} else {
		d, derr := chooseDefault()
		if derr != nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, primaryReason, derr)
		}
		fallbackDevice = d
	}

	if !fallbackDevice.Available {
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", fallbackDevice.ID)
	}
	if fallbackDevice.Muted {
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", fallbackDevice.ID)
	}

	return Selection{
		Device:   *fallbackDevice,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, primaryReason, fallbackDevice.ID),
		Fallback: primary.ID != fallbackDevice.ID,
	}, nil
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// PulseMicrophone records from the selected Pulse source.
type PulseMicrophone struct {
	cfg CaptureConfig
}

// NewPulseMicrophone returns a Microphone for cfg. Zero fields take defaults.
func NewPulseMicrophone(cfg CaptureConfig) *PulseMicrophone {
	def := DefaultCaptureConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = def.StallTimeout
	}
	return &PulseMicrophone{cfg: cfg}
}

// Config returns the effective capture configuration.
func (m *PulseMicrophone) Config() CaptureConfig {
	return m.cfg
}

// Open selects a source and starts a record stream on it.
func (m *PulseMicrophone) Open(ctx context.Context) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selection, err := SelectDevice(ctx, m.cfg.Input, m.cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	rec, err := startRecording(selection.Device, m.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return rec, nil
}

// pulseRecording accumulates one record stream into a bounded Buffer.
type pulseRecording struct {
	device     Device
	sampleRate int
	channels   int
	startedAt  time.Time
	stall      time.Duration

	client *pulse.Client
	stream *pulse.RecordStream

	mu       sync.Mutex
	buffer   *Buffer
	lastData time.Time
	stopped  bool

	done     chan struct{}
	failed   chan error
	inflight sync.WaitGroup
}

func startRecording(selected Device, cfg CaptureConfig) (*pulseRecording, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	rec := newPulseRecording(selected, cfg)
	rec.client = client

	channelOpt := pulse.RecordMono
	if rec.channels == 2 {
		channelOpt = pulse.RecordStereo
	}
	stream, err := client.NewRecord(
		pulse.Int16Writer(rec.onPCM),
		pulse.RecordSource(source),
		channelOpt,
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordLatency(fragmentMillis/1000.0),
		pulse.RecordMediaName("voicegame recording"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	rec.stream = stream
	stream.Start()
	go rec.watchStall()

	return rec, nil
}

func newPulseRecording(selected Device, cfg CaptureConfig) *pulseRecording {
	channels := max(cfg.Channels, 1)
	now := time.Now()
	return &pulseRecording{
		device:     selected,
		sampleRate: cfg.SampleRate,
		channels:   channels,
		startedAt:  now,
		stall:      cfg.StallTimeout,
		buffer:     NewBuffer(CeilingSamples(cfg.MaxDuration, cfg.SampleRate, channels)),
		lastData:   now,
		done:       make(chan struct{}),
		failed:     make(chan error, 1),
	}
}

// Device returns the source being recorded.
func (r *pulseRecording) Device() Device {
	return r.device
}

func (r *pulseRecording) Failed() <-chan error {
	return r.failed
}

// Stop halts the stream, releases the Pulse client, and hands over the buffer.
func (r *pulseRecording) Stop() (Frame, error) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return Frame{}, ErrCaptureStopped
	}
	r.stopped = true
	close(r.done)
	r.mu.Unlock()

	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
	}
	if r.client != nil {
		r.client.Close()
	}

	r.inflight.Wait()

	r.mu.Lock()
	frame := r.buffer.Take(r.sampleRate, r.channels, r.startedAt)
	r.mu.Unlock()

	if frame.Empty() {
		return Frame{}, ErrEmptyCapture
	}
	return frame, nil
}

// onPCM receives samples from Pulse. Samples past the ceiling are dropped.
func (r *pulseRecording) onPCM(samples []int16) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as stopped to avoid Add/Wait races.
	r.inflight.Add(1)
	defer r.inflight.Done()

	r.buffer.Append(samples)
	r.lastData = time.Now()
	r.mu.Unlock()

	return len(samples), nil
}

// watchStall reports a failure when the source stops delivering audio.
func (r *pulseRecording) watchStall() {
	if r.stall <= 0 {
		return
	}
	ticker := time.NewTicker(r.stall / 4)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.mu.Lock()
			idle := now.Sub(r.lastData)
			r.mu.Unlock()
			if idle >= r.stall {
				r.fail(fmt.Errorf("%w: no audio from %q for %s", ErrDeviceUnavailable, r.device.ID, idle.Round(time.Millisecond)))
				return
			}
		}
	}
}

func (r *pulseRecording) fail(err error) {
	select {
	case r.failed <- err:
	default:
	}
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(applicationName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
