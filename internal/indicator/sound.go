package indicator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueSuccess
	cueError
	cueCancel
)

const (
	cueSampleRate = 16000
	cueVolume     = 0.2
	noteGap       = 18 * time.Millisecond
)

// note is a pitch in semitones from A4 held for a duration. A rest has
// rest set and no pitch.
type note struct {
	semitones int
	duration  time.Duration
	rest      bool
}

// Short, bright chimes. Success climbs a major arpeggio, error falls.
var melodies = map[cueKind][]note{
	cueStart:   {{semitones: 3, duration: 80 * time.Millisecond}, {semitones: 10, duration: 110 * time.Millisecond}},
	cueStop:    {{semitones: 10, duration: 80 * time.Millisecond}, {semitones: 3, duration: 110 * time.Millisecond}},
	cueSuccess: {{semitones: 3, duration: 70 * time.Millisecond}, {semitones: 7, duration: 70 * time.Millisecond}, {semitones: 10, duration: 70 * time.Millisecond}, {semitones: 15, duration: 180 * time.Millisecond}},
	cueError:   {{semitones: -2, duration: 140 * time.Millisecond}, {rest: true, duration: 30 * time.Millisecond}, {semitones: -7, duration: 220 * time.Millisecond}},
	cueCancel:  {{semitones: 0, duration: 90 * time.Millisecond}},
}

var (
	renderOnce sync.Once
	rendered   map[cueKind][]int16
)

func cueSamples(kind cueKind) []int16 {
	renderOnce.Do(func() {
		rendered = make(map[cueKind][]int16, len(melodies))
		for k, m := range melodies {
			rendered[k] = renderMelody(m)
		}
	})
	return rendered[kind]
}

func noteFrequency(semitones int) float64 {
	return 440 * math.Pow(2, float64(semitones)/12)
}

func renderMelody(notes []note) []int16 {
	if len(notes) == 0 {
		return nil
	}
	gap := samplesForDuration(noteGap)
	var pcm []int16
	for i, n := range notes {
		if n.rest {
			pcm = append(pcm, make([]int16, samplesForDuration(n.duration))...)
			continue
		}
		pcm = append(pcm, renderChime(noteFrequency(n.semitones), n.duration, cueVolume)...)
		if i < len(notes)-1 {
			pcm = append(pcm, make([]int16, gap)...)
		}
	}
	return pcm
}

// renderChime is a sine with a quiet octave partial under a fast attack and
// exponential decay.
func renderChime(frequencyHz float64, d time.Duration, volume float64) []int16 {
	n := samplesForDuration(d)
	if n <= 0 || frequencyHz <= 0 || volume <= 0 {
		return nil
	}
	attack := max(1, min(n/10, cueSampleRate/250))
	decay := float64(n) / 4

	pcm := make([]int16, n)
	for i := range n {
		env := math.Exp(-float64(i) / decay)
		if i < attack {
			env *= float64(i) / float64(attack)
		}
		if tail := n - i - 1; tail < attack {
			env *= float64(tail) / float64(attack)
		}
		t := float64(i) / cueSampleRate
		s := math.Sin(2*math.Pi*frequencyHz*t) + 0.25*math.Sin(4*math.Pi*frequencyHz*t)
		pcm[i] = int16(math.Round(s / 1.25 * volume * env * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

// pulsePlayer keeps one Pulse connection for the life of the game and
// reconnects after a failed stream.
type pulsePlayer struct {
	mu     sync.Mutex
	client *pulse.Client
}

func (p *pulsePlayer) Play(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		client, err := pulse.NewClient(
			pulse.ClientApplicationName("voicegame"),
			pulse.ClientApplicationIconName("audio-input-microphone"),
		)
		if err != nil {
			return fmt.Errorf("connect pulse server: %w", err)
		}
		p.client = client
	}

	if err := playSamples(ctx, p.client, samples); err != nil {
		p.client.Close()
		p.client = nil
		return err
	}
	return nil
}

func (p *pulsePlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func playSamples(ctx context.Context, client *pulse.Client, samples []int16) error {
	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voicegame cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return ctx.Err()
}
