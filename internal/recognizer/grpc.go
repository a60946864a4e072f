package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/transcript"
	"github.com/barakem/voicegame/internal/version"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "voicegame.recognizer.v1.Recognizer"

	transcribeMethod = "/" + ServiceName + "/Transcribe"

	MetadataLanguage   = "x-voicegame-language"
	MetadataSampleRate = "x-voicegame-sample-rate"

	defaultDialTimeout = 3 * time.Second
)

// GRPCConfig controls the gRPC recognizer client.
type GRPCConfig struct {
	Endpoint    string
	DialTimeout time.Duration
}

// GRPCBackend sends WAV payloads to a Recognizer service over unary calls.
//
// The connection is dialed lazily and reused; a failed dial is retried on the
// next Transcribe.
type GRPCBackend struct {
	cfg GRPCConfig

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewGRPCBackend validates cfg without dialing.
func NewGRPCBackend(cfg GRPCConfig) (*GRPCBackend, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, errors.New("recognizer endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &GRPCBackend{cfg: cfg}, nil
}

// Endpoint returns the configured target.
func (b *GRPCBackend) Endpoint() string { return b.cfg.Endpoint }

// Transcribe implements Backend.
func (b *GRPCBackend) Transcribe(ctx context.Context, frame audio.Frame, language string) (string, error) {
	conn, err := b.connection(ctx)
	if err != nil {
		return "", Network(err)
	}

	payload, err := audio.WAVBytes(frame)
	if err != nil {
		return "", Unknown(fmt.Errorf("encode request audio: %w", err))
	}

	callCtx := metadata.AppendToOutgoingContext(ctx,
		MetadataLanguage, language,
		MetadataSampleRate, strconv.Itoa(frame.SampleRate()),
		RequestIDHeader, uuid.NewString(),
	)

	resp := new(structpb.Struct)
	if err := conn.Invoke(callCtx, transcribeMethod, wrapperspb.Bytes(payload), resp); err != nil {
		return "", classifyStatus(err)
	}
	return transcript.Assemble(segmentsFrom(resp)), nil
}

// Ready dials if needed and checks that the recognizer reports serving.
func (b *GRPCBackend) Ready(ctx context.Context) error {
	conn, err := b.connection(ctx)
	if err != nil {
		return err
	}
	return checkServing(ctx, conn)
}

// Close releases the connection if one was established.
func (b *GRPCBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *GRPCBackend) connection(ctx context.Context) (*grpc.ClientConn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return b.conn, nil
	}

	conn, err := grpc.NewClient(
		b.cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial recognizer grpc %q: %w", b.cfg.Endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, b.cfg.DialTimeout)
	defer cancel()
	if err := awaitConnected(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for recognizer grpc readiness: %w", err)
	}

	b.conn = conn
	return conn, nil
}

// classifyStatus maps a call error onto the failure taxonomy.
func classifyStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return Network(err)
		}
		return Unknown(err)
	}

	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied, codes.ResourceExhausted:
		return QuotaOrAuth(err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return Network(err)
	case codes.NotFound:
		return NoSpeech(err)
	default:
		return Unknown(err)
	}
}

// segmentsFrom reads "segments" (list of strings) or falls back to "text".
func segmentsFrom(resp *structpb.Struct) []string {
	fields := resp.GetFields()
	if list := fields["segments"].GetListValue(); list != nil {
		segments := make([]string, 0, len(list.GetValues()))
		for _, value := range list.GetValues() {
			segments = append(segments, value.GetStringValue())
		}
		return segments
	}
	if text := fields["text"].GetStringValue(); text != "" {
		return []string{text}
	}
	return nil
}
