package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth  = 16
	wavFormatPCM = 1
)

// EncodeWAV writes f as a 16-bit PCM WAV stream.
func EncodeWAV(w io.WriteSeeker, f Frame) error {
	if f.SampleRate() <= 0 {
		return fmt.Errorf("encode wav: invalid sample rate %d", f.SampleRate())
	}

	data := make([]int, len(f.samples))
	for i, s := range f.samples {
		data[i] = int(s)
	}
	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: f.Channels(), SampleRate: f.SampleRate()},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}

	enc := wav.NewEncoder(w, f.SampleRate(), wavBitDepth, f.Channels(), wavFormatPCM)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// WAVBytes encodes f into memory.
func WAVBytes(f Frame) ([]byte, error) {
	var sink seekBuffer
	if err := EncodeWAV(&sink, f); err != nil {
		return nil, err
	}
	return sink.buf, nil
}

// WriteWAVFile encodes f into path with 0600 permissions.
func WriteWAVFile(path string, f Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create wav dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open wav file: %w", err)
	}
	if err := EncodeWAV(file, f); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// DecodeWAV reads a 16-bit PCM WAV stream into a Frame.
func DecodeWAV(r io.ReadSeeker) (Frame, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Frame{}, errors.New("decode wav: not a valid wav stream")
	}
	if dec.BitDepth != wavBitDepth {
		return Frame{}, fmt.Errorf("decode wav: unsupported bit depth %d", dec.BitDepth)
	}
	buffer, err := dec.FullPCMBuffer()
	if err != nil {
		return Frame{}, fmt.Errorf("decode wav: %w", err)
	}

	samples := make([]int16, len(buffer.Data))
	for i, v := range buffer.Data {
		samples[i] = int16(v)
	}
	return Frame{
		samples:    samples,
		sampleRate: int(dec.SampleRate),
		channels:   max(int(dec.NumChans), 1),
		startedAt:  time.Time{},
	}, nil
}

// DecodeWAVBytes is DecodeWAV over an in-memory payload.
func DecodeWAVBytes(payload []byte) (Frame, error) {
	return DecodeWAV(bytes.NewReader(payload))
}

// seekBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// seeks back to patch chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		if end > cap(s.buf) {
			grown := make([]byte, end, max(end, 2*cap(s.buf)))
			copy(grown, s.buf)
			s.buf = grown
		} else {
			s.buf = s.buf[:end]
		}
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(s.pos) + offset
	case io.SeekEnd:
		next = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("seek: negative position")
	}
	s.pos = int(next)
	return next, nil
}
