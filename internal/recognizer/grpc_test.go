package recognizer

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/barakem/voicegame/internal/audio"
)

type recognizerServerFunc func(ctx context.Context, wav *wrapperspb.BytesValue) (*structpb.Struct, error)

func (f recognizerServerFunc) Transcribe(ctx context.Context, wav *wrapperspb.BytesValue) (*structpb.Struct, error) {
	return f(ctx, wav)
}

func startTestRecognizerServer(t *testing.T, srv RecognizerServer) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(srv, nil)

	go func() {
		_ = server.Serve(lis)
	}()

	t.Cleanup(func() {
		server.Stop()
		_ = lis.Close()
	})

	return lis.Addr().String()
}

func testFrame() audio.Frame {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16((i % 64) * 100)
	}
	return audio.NewFrame(samples, 16000, 1, time.Now())
}

func TestNewGRPCBackendEmptyEndpoint(t *testing.T) {
	_, err := NewGRPCBackend(GRPCConfig{Endpoint: "  "})
	require.Error(t, err)
	require.Contains(t, err.Error(), "endpoint is empty")
}

func TestGRPCBackendReadinessTimeout(t *testing.T) {
	backend, err := NewGRPCBackend(GRPCConfig{
		Endpoint:    "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
	require.Contains(t, err.Error(), "readiness")
}

func TestGRPCBackendTranscribeRoundTrip(t *testing.T) {
	var gotLanguage string
	var gotSamples int
	addr := startTestRecognizerServer(t, BackendServer{
		Backend: BackendFunc(func(ctx context.Context, frame audio.Frame, language string) (string, error) {
			gotLanguage = language
			gotSamples = frame.Len()
			return "כלב", nil
		}),
	})

	backend, err := NewGRPCBackend(GRPCConfig{Endpoint: addr, DialTimeout: 2 * time.Second})
	require.NoError(t, err)
	defer backend.Close()

	text, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.NoError(t, err)
	require.Equal(t, "כלב", text)
	require.Equal(t, "he-IL", gotLanguage)
	require.Equal(t, 1600, gotSamples)
}

func TestGRPCBackendSendsSampleRateMetadata(t *testing.T) {
	var rate string
	addr := startTestRecognizerServer(t, recognizerServerFunc(func(ctx context.Context, _ *wrapperspb.BytesValue) (*structpb.Struct, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if values := md.Get(MetadataSampleRate); len(values) > 0 {
			rate = values[0]
		}
		return SegmentsResponse("ok")
	}))

	backend, err := NewGRPCBackend(GRPCConfig{Endpoint: addr})
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.Transcribe(context.Background(), testFrame(), "en-US")
	require.NoError(t, err)
	require.Equal(t, "16000", rate)
}

func TestGRPCBackendJoinsSegments(t *testing.T) {
	addr := startTestRecognizerServer(t, recognizerServerFunc(func(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error) {
		return SegmentsResponse("אני", "  ", "אוהב  ", "pizza")
	}))

	backend, err := NewGRPCBackend(GRPCConfig{Endpoint: addr})
	require.NoError(t, err)
	defer backend.Close()

	text, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.NoError(t, err)
	require.Equal(t, "אני אוהב pizza", text)
}

func TestGRPCBackendEmptyTranscriptIsSuccess(t *testing.T) {
	addr := startTestRecognizerServer(t, recognizerServerFunc(func(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error) {
		return SegmentsResponse()
	}))

	backend, err := NewGRPCBackend(GRPCConfig{Endpoint: addr})
	require.NoError(t, err)
	defer backend.Close()

	text, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestGRPCBackendMapsStatusCodes(t *testing.T) {
	tests := []struct {
		code codes.Code
		want Kind
	}{
		{code: codes.NotFound, want: KindNoSpeech},
		{code: codes.Unauthenticated, want: KindQuotaOrAuth},
		{code: codes.PermissionDenied, want: KindQuotaOrAuth},
		{code: codes.ResourceExhausted, want: KindQuotaOrAuth},
		{code: codes.Unavailable, want: KindNetwork},
		{code: codes.Internal, want: KindUnknown},
		{code: codes.InvalidArgument, want: KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.code.String(), func(t *testing.T) {
			addr := startTestRecognizerServer(t, recognizerServerFunc(func(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error) {
				return nil, status.Error(tc.code, "nope")
			}))

			backend, err := NewGRPCBackend(GRPCConfig{Endpoint: addr})
			require.NoError(t, err)
			defer backend.Close()

			_, err = backend.Transcribe(context.Background(), testFrame(), "he-IL")
			require.Error(t, err)
			require.Equal(t, tc.want, KindOf(err))
		})
	}
}

func TestGRPCBackendDeadlineIsNetwork(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	addr := startTestRecognizerServer(t, recognizerServerFunc(func(ctx context.Context, _ *wrapperspb.BytesValue) (*structpb.Struct, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	}))

	backend, err := NewGRPCBackend(GRPCConfig{Endpoint: addr})
	require.NoError(t, err)
	defer backend.Close()
	require.NoError(t, backend.Ready(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = backend.Transcribe(ctx, testFrame(), "he-IL")
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
}

func TestBackendServerTranslatesFailures(t *testing.T) {
	addr := startTestRecognizerServer(t, BackendServer{
		Backend: BackendFunc(func(context.Context, audio.Frame, string) (string, error) {
			return "", QuotaOrAuth(errors.New("key revoked"))
		}),
	})

	backend, err := NewGRPCBackend(GRPCConfig{Endpoint: addr})
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.Equal(t, KindQuotaOrAuth, KindOf(err))
	require.Contains(t, err.Error(), "key revoked")
}

func TestBackendServerRejectsInvalidWAV(t *testing.T) {
	srv := BackendServer{Backend: BackendFunc(func(context.Context, audio.Frame, string) (string, error) {
		t.Fatal("backend should not be called")
		return "", nil
	})}

	_, err := srv.Transcribe(context.Background(), wrapperspb.Bytes([]byte("not a wav")))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSegmentsFromTextFallback(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]any{"text": "שלום"})
	require.NoError(t, err)
	require.Equal(t, []string{"שלום"}, segmentsFrom(resp))

	empty, err := structpb.NewStruct(map[string]any{})
	require.NoError(t, err)
	require.Nil(t, segmentsFrom(empty))
}

func TestClassifyStatusNonStatusError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(classifyStatus(errors.New("plain"))))
}
