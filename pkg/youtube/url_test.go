package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"short link with timestamp", "https://youtu.be/dQw4w9WgXcQ?t=42", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"watch with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&index=2", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"music host", "https://music.youtube.com/watch?v=dQw4w9WgXcQ&feature=share", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"already canonical", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"playlist only", "https://www.youtube.com/playlist?list=PL123", "https://www.youtube.com/playlist?list=PL123"},
		{"other site", "https://example.com/watch?v=dQw4w9WgXcQ", "https://example.com/watch?v=dQw4w9WgXcQ"},
		{"garbage", "not a url", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestIsVideoURL(t *testing.T) {
	assert.True(t, IsVideoURL("https://youtu.be/dQw4w9WgXcQ"))
	assert.True(t, IsVideoURL("  https://www.youtube.com/watch?v=dQw4w9WgXcQ  "))
	assert.False(t, IsVideoURL("https://www.youtube.com/watch?v=short"))
	assert.False(t, IsVideoURL("https://www.youtube.com/playlist?list=PL123"))
	assert.False(t, IsVideoURL("https://vimeo.com/123456"))
	assert.False(t, IsVideoURL(""))
}

func TestIsPlaylistURL(t *testing.T) {
	assert.True(t, IsPlaylistURL("https://www.youtube.com/playlist?list=PL123"))
	assert.True(t, IsPlaylistURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123"))
	assert.False(t, IsPlaylistURL("https://youtu.be/dQw4w9WgXcQ"))
	assert.False(t, IsPlaylistURL("https://example.com/playlist?list=PL123"))
}
