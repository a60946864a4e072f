package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/logging"
	"github.com/barakem/voicegame/internal/recognizer"
)

// DumpingBackend writes each captured frame to a WAV file under the debug
// directory before handing it to the wrapped backend.
type DumpingBackend struct {
	next   recognizer.Backend
	logger *slog.Logger
	now    func() time.Time
	dir    func() (string, error)
}

// NewDumpingBackend wraps next with the debug audio dump.
func NewDumpingBackend(next recognizer.Backend, logger *slog.Logger) *DumpingBackend {
	return &DumpingBackend{
		next:   next,
		logger: logger,
		now:    time.Now,
		dir:    debugDir,
	}
}

// Transcribe dumps frame and delegates. Dump failures are logged and never
// fail recognition.
func (d *DumpingBackend) Transcribe(ctx context.Context, frame audio.Frame, language string) (string, error) {
	if !frame.Empty() {
		if path, err := d.dump(frame); err != nil {
			d.logWarn("unable to write debug audio dump", err)
		} else if d.logger != nil {
			d.logger.Debug("debug audio dump written", "path", path, "samples", frame.Len())
		}
	}
	return d.next.Transcribe(ctx, frame, language)
}

func (d *DumpingBackend) dump(frame audio.Frame) (string, error) {
	path, err := d.debugPath("audio", "wav")
	if err != nil {
		return "", err
	}
	if err := audio.WriteWAVFile(path, frame); err != nil {
		return "", err
	}
	return path, nil
}

// debugPath returns a timestamped artifact path, creating the directory.
func (d *DumpingBackend) debugPath(prefix string, extension string) (string, error) {
	dir, err := d.dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}
	timestamp := d.now().Format("20060102-150405.000")
	return filepath.Join(dir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension)), nil
}

func (d *DumpingBackend) logWarn(message string, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Warn(message, "error", err.Error())
}

func debugDir() (string, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(stateDir, "debug"), nil
}
