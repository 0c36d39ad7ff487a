package commands

import (
	"context"
	"fmt"

	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/latoulicious/Baguetta/pkg/youtube"
)

// Play queues a single YouTube video and starts playback if nothing is playing.
func (m *Music) Play(ctx context.Context, req Request, rawURL string) string {
	if rawURL == "" {
		return "❌ Please provide a YouTube URL."
	}
	if !youtube.IsVideoURL(rawURL) {
		return "❌ Invalid YouTube URL!"
	}

	track := playback.NewTrack(youtube.Canonicalize(rawURL), req.Username)

	var created bool
	var position int
	err := m.withSession(ctx, req, func(s *playback.Session, c bool) error {
		created = c
		if err := s.Enqueue(ctx, track); err != nil {
			return err
		}
		if snap, err := s.Snapshot(ctx); err == nil {
			position = len(snap.Tracks)
		}
		return nil
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("guild_id", req.GuildID).Str("url", rawURL).Msg("Play failed")
		return errorMessage(err)
	}

	if created {
		return fmt.Sprintf("🥖 Now loading: %s", track.Locator)
	}
	return fmt.Sprintf("✅ Added to queue: %s (Position: %d)", track.Locator, position)
}

// Playlist queues every video of a YouTube playlist.
func (m *Music) Playlist(ctx context.Context, req Request, rawURL string) string {
	if m.playlists == nil {
		return "❌ Playlists are not supported."
	}
	if rawURL == "" || !youtube.IsPlaylistURL(rawURL) {
		return "❌ Invalid playlist URL!"
	}

	title, tracks, err := m.playlists.ResolvePlaylist(ctx, rawURL, req.Username)
	if err != nil {
		m.logger.Warn().Err(err).Str("url", rawURL).Msg("Failed to resolve playlist")
		return "❌ Invalid playlist URL!"
	}

	var created bool
	err = m.withSession(ctx, req, func(s *playback.Session, c bool) error {
		created = c
		return s.EnqueueBatch(ctx, tracks)
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("guild_id", req.GuildID).Str("url", rawURL).Msg("Playlist failed")
		return errorMessage(err)
	}

	if created {
		return fmt.Sprintf("🥖 Playing playlist: %s (%d songs)", title, len(tracks))
	}
	return fmt.Sprintf("✅ Added %d songs from playlist: %s", len(tracks), title)
}
