package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

const watchURL = "https://www.youtube.com/watch?v="

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

var videoHosts = map[string]bool{
	"youtube.com":        true,
	"www.youtube.com":    true,
	"m.youtube.com":      true,
	"music.youtube.com":  true,
	"gaming.youtube.com": true,
}

// WatchURL returns the canonical watch URL of a video ID.
func WatchURL(videoID string) string {
	return watchURL + videoID
}

// ExtractVideoID returns the video ID of a YouTube video URL, or "" when the URL
// does not point to a single video.
func ExtractVideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id = strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)[0]
	case videoHosts[host]:
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		// /embed/<id>, /shorts/<id>, /live/<id>
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id = strings.SplitN(strings.TrimPrefix(u.Path, prefix), "/", 2)[0]
				break
			}
		}
	}

	if !videoIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// IsVideoURL reports whether raw is a YouTube URL pointing to a single video.
func IsVideoURL(raw string) bool {
	return ExtractVideoID(raw) != ""
}

// IsPlaylistURL reports whether raw is a YouTube URL carrying a playlist ID.
func IsPlaylistURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return videoHosts[host] && u.Query().Get("list") != ""
}

// Canonicalize rewrites short links and watch URLs with extra query parameters
// into https://www.youtube.com/watch?v=<id>. Anything else is returned unchanged.
func Canonicalize(raw string) string {
	if id := ExtractVideoID(raw); id != "" {
		return WatchURL(id)
	}
	return raw
}
