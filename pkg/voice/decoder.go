package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Decoder turns a compressed audio stream into signed 16-bit little endian PCM at
// 48kHz stereo. Closing the returned reader releases the input stream too.
type Decoder func(ctx context.Context, stream io.ReadCloser) (io.ReadCloser, error)

// FFmpegDecoder decodes with an ffmpeg process reading from stdin.
func FFmpegDecoder(path string, logger zerolog.Logger) Decoder {
	return func(ctx context.Context, stream io.ReadCloser) (io.ReadCloser, error) {
		cmd := exec.CommandContext(ctx, path,
			"-i", "pipe:0",
			"-f", "s16le",
			"-acodec", "pcm_s16le",
			"-ar", strconv.Itoa(sampleRate),
			"-ac", strconv.Itoa(channels),
			"-loglevel", "warning",
			"pipe:1",
		)
		cmd.Stdin = stream

		stderr, err := cmd.StderrPipe()
		if err != nil {
			stream.Close()
			return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			stream.Close()
			return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			stream.Close()
			return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
		}

		go func() {
			scanner := bufio.NewScanner(stderr)
			for scanner.Scan() {
				logger.Debug().Str("ffmpeg", scanner.Text()).Msg("FFmpeg output")
			}
		}()

		return &ffmpegReader{ReadCloser: stdout, cmd: cmd, input: stream}, nil
	}
}

type ffmpegReader struct {
	io.ReadCloser
	cmd   *exec.Cmd
	input io.ReadCloser
	once  sync.Once
}

func (r *ffmpegReader) Close() error {
	r.once.Do(func() {
		if r.cmd.Process != nil {
			_ = r.cmd.Process.Kill()
		}
		// Wait joins the stdin copy, which only returns once the input read does
		_ = r.input.Close()
		_ = r.cmd.Wait()
	})
	return nil
}
