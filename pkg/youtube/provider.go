package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/rs/zerolog"
)

const requestTimeout = 15 * time.Second

var (
	ErrNoAudioFormats = errors.New("no audio formats found for video")
	ErrEmptyPlaylist  = errors.New("playlist has no playable videos")
)

// Provider fetches audio streams and metadata from YouTube.
type Provider struct {
	client *youtube.Client
	logger zerolog.Logger
}

var _ playback.StreamProvider = (*Provider)(nil)

// NewProvider creates a provider. A non-empty cookieHeader is sent with every
// request to YouTube.
func NewProvider(cookieHeader string, logger zerolog.Logger) *Provider {
	var transport http.RoundTripper = http.DefaultTransport
	if cookieHeader != "" {
		transport = &cookieTransport{cookie: cookieHeader, next: transport}
	}

	return &Provider{
		client: &youtube.Client{
			HTTPClient: &http.Client{Transport: transport},
		},
		logger: logger,
	}
}

// FetchStream opens the best audio-only stream of the video at locator.
func (p *Provider) FetchStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	video, err := p.video(ctx, locator)
	if err != nil {
		return nil, err
	}

	formats := video.Formats.WithAudioChannels().Type("audio")
	if len(formats) == 0 {
		// Some videos only expose muxed formats
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return nil, ErrNoAudioFormats
	}
	formats.Sort()
	format := &formats[0]

	stream, size, err := p.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	p.logger.Debug().
		Str("video_id", video.ID).
		Int("itag", format.ItagNo).
		Str("mime_type", format.MimeType).
		Int64("size", size).
		Msg("Opened audio stream")
	return stream, nil
}

// FetchMetadata returns the title of the video at locator.
func (p *Provider) FetchMetadata(ctx context.Context, locator string) (string, error) {
	video, err := p.video(ctx, locator)
	if err != nil {
		return "", err
	}
	return video.Title, nil
}

// ResolvePlaylist returns the title of the playlist at url and one track per
// video, in playlist order. Track titles are provisional until played.
func (p *Provider) ResolvePlaylist(ctx context.Context, url, requestedBy string) (string, []*playback.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	playlist, err := p.client.GetPlaylistContext(ctx, url)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	tracks := make([]*playback.Track, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		track := playback.NewTrack(WatchURL(entry.ID), requestedBy)
		if entry.Title != "" {
			track.Title = entry.Title
		}
		tracks = append(tracks, track)
	}
	if len(tracks) == 0 {
		return playlist.Title, nil, ErrEmptyPlaylist
	}

	p.logger.Info().
		Str("playlist_id", playlist.ID).
		Str("title", playlist.Title).
		Int("tracks", len(tracks)).
		Msg("Resolved playlist")
	return playlist.Title, tracks, nil
}

func (p *Provider) video(ctx context.Context, locator string) (*youtube.Video, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	video, err := p.client.GetVideoContext(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	return video, nil
}

// cookieTransport attaches a raw Cookie header to every request.
type cookieTransport struct {
	cookie string
	next   http.RoundTripper
}

func (t *cookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Cookie", t.cookie)
	return t.next.RoundTrip(req)
}
