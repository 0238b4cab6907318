package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	youtubeLinkPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(?:youtube\.com|youtu\.be)(?:/|$)`)
	// A channel home or the site root names no single video.
	bareLinkPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(?:youtube\.com|youtu\.be)/?$`)
)

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isYouTubeURL(s string) bool {
	return youtubeLinkPattern.MatchString(s)
}

func isBareURL(s string) bool {
	return bareLinkPattern.MatchString(s)
}

// WatchURL is the canonical link for a video ID.
func WatchURL(id string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}

// CleanVideoURL drops tracking and playlist parameters from a video link.
func CleanVideoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch u.Hostname() {
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return WatchURL(id)
		}
	case "www.youtube.com", "youtube.com", "m.youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			if id := u.Query().Get("v"); id != "" {
				return WatchURL(id)
			}
		}
	}
	return raw
}
