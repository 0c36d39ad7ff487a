package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
	bitrate    = 128000

	pcmFrameBytes = frameSize * channels * 2
	maxOpusBytes  = pcmFrameBytes
)

var (
	ErrAlreadyPlaying = errors.New("sink is already playing")
	ErrNotSubscribed  = errors.New("sink has no voice transport")
)

// Encoder encodes one PCM frame into an Opus packet. *gopus.Encoder satisfies it.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithDecoder replaces the ffmpeg decoder.
func WithDecoder(d Decoder) SinkOption {
	return func(s *Sink) { s.decode = d }
}

// WithEncoderFactory replaces the Opus encoder.
func WithEncoderFactory(f func() (Encoder, error)) SinkOption {
	return func(s *Sink) { s.newEncoder = f }
}

// WithSinkLogger sets the sink logger.
func WithSinkLogger(l zerolog.Logger) SinkOption {
	return func(s *Sink) { s.logger = l }
}

// Sink renders audio streams into a voice connection. Every successful Play is
// followed by exactly one Idle or Error event.
type Sink struct {
	decode     Decoder
	newEncoder func() (Encoder, error)
	logger     zerolog.Logger
	events     chan playback.SinkEvent

	mu     sync.Mutex
	target frameTarget
	cancel context.CancelFunc
	active bool
	paused chan struct{} // non-nil while paused, closed on resume
}

var _ playback.Sink = (*Sink)(nil)

// NewSink creates a sink decoding with the ffmpeg binary at ffmpegPath.
func NewSink(ffmpegPath string, opts ...SinkOption) *Sink {
	s := &Sink{
		newEncoder: newOpusEncoder,
		logger:     zerolog.Nop(),
		events:     make(chan playback.SinkEvent, 8),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.decode == nil {
		s.decode = FFmpegDecoder(ffmpegPath, s.logger)
	}
	return s
}

func newOpusEncoder() (Encoder, error) {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	encoder.SetBitrate(bitrate)
	return encoder, nil
}

// Subscribe routes audio to t. Transports that cannot carry voice are ignored.
func (s *Sink) Subscribe(t playback.Transport) {
	target, ok := t.(frameTarget)
	if !ok {
		s.logger.Warn().Type("transport", t).Msg("Transport cannot carry audio")
		return
	}
	s.mu.Lock()
	s.target = target
	s.mu.Unlock()
}

// Play starts rendering stream and takes ownership of it.
func (s *Sink) Play(stream io.ReadCloser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		stream.Close()
		return ErrAlreadyPlaying
	}
	if s.target == nil {
		stream.Close()
		return ErrNotSubscribed
	}

	encoder, err := s.newEncoder()
	if err != nil {
		stream.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	pcm, err := s.decode(ctx, stream)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start decoder: %w", err)
	}

	s.active = true
	s.cancel = cancel
	s.paused = nil
	go s.render(ctx, pcm, encoder, s.target)
	return nil
}

// Pause holds rendering of the current stream.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active && s.paused == nil {
		s.paused = make(chan struct{})
	}
}

// Resume continues a paused stream.
func (s *Sink) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused != nil {
		close(s.paused)
		s.paused = nil
	}
}

// Stop ends the current stream. The sink reports Idle once rendering has halted.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Events returns the channel of terminal playback events.
func (s *Sink) Events() <-chan playback.SinkEvent {
	return s.events
}

func (s *Sink) render(ctx context.Context, pcm io.ReadCloser, encoder Encoder, target frameTarget) {
	target.speaking(true)
	err := s.stream(ctx, pcm, encoder, target)
	pcm.Close()
	target.speaking(false)

	ev := playback.SinkEvent{Kind: playback.SinkIdle}
	if err != nil && ctx.Err() == nil {
		ev = playback.SinkEvent{Kind: playback.SinkError, Err: err}
	}

	s.mu.Lock()
	s.active = false
	s.cancel()
	s.cancel = nil
	if s.paused != nil {
		close(s.paused)
		s.paused = nil
	}
	s.mu.Unlock()

	select {
	case s.events <- ev:
	default:
		s.logger.Warn().Stringer("event", ev.Kind).Msg("Dropping sink event, nobody is listening")
	}
}

func (s *Sink) stream(ctx context.Context, pcm io.Reader, encoder Encoder, target frameTarget) error {
	buf := make([]byte, pcmFrameBytes)
	samples := make([]int16, frameSize*channels)
	frames := 0

	for {
		if err := s.waitWhilePaused(ctx); err != nil {
			return err
		}

		n, err := io.ReadFull(pcm, buf)
		if errors.Is(err, io.EOF) {
			s.logger.Debug().Int("frames", frames).Msg("Stream ended")
			return nil
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("error reading PCM data: %w", err)
		}

		// A short final frame is padded with silence
		clear(buf[n:])
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
		}

		packet, encErr := encoder.Encode(samples, frameSize, maxOpusBytes)
		if encErr != nil {
			return fmt.Errorf("opus encoding error: %w", encErr)
		}
		if sendErr := target.sendFrame(ctx, packet); sendErr != nil {
			return sendErr
		}
		frames++

		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
	}
}

func (s *Sink) waitWhilePaused(ctx context.Context) error {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()

	if paused == nil {
		return ctx.Err()
	}
	select {
	case <-paused:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
