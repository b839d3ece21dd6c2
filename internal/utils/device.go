package utils

import "strings"

// DeviceName derives a short human-readable label ("Chrome on Windows")
// from a User-Agent header.  It only needs to be good enough for the
// sessions list, so a token scan beats pulling in a full UA parser.
func DeviceName(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := strings.ToLower(userAgent)

	browser := "Unknown Browser"
	switch {
	// Order matters: Edge and Opera embed "chrome", Chrome embeds "safari".
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		browser = "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "chrome"), strings.Contains(ua, "crios"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	}

	os := "Unknown OS"
	switch {
	case strings.Contains(ua, "iphone"):
		os = "iPhone"
	case strings.Contains(ua, "ipad"):
		os = "iPad"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	}

	return browser + " on " + os
}

// ClientIP picks the original client address, preferring the first entry
// of an X-Forwarded-For chain over the direct peer address.
func ClientIP(remoteIP, forwardedFor string) string {
	if forwardedFor != "" {
		if first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0]); first != "" {
			return first
		}
	}
	if remoteIP == "" {
		return "unknown"
	}
	return remoteIP
}
