package capture

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildRTSPDescriptor composes an RTSP URL, percent-encoding a username and
// password that may contain URL-special characters (spec section 4.1).
func BuildRTSPDescriptor(host string, port int, username, password, path string) string {
	var userinfo string
	if username != "" || password != "" {
		userinfo = url.UserPassword(username, password).String()
	}
	hostport := host
	if port > 0 {
		hostport = fmt.Sprintf("%s:%d", host, port)
	}
	if !strings.HasPrefix(path, "/") && path != "" {
		path = "/" + path
	}
	if userinfo != "" {
		return fmt.Sprintf("rtsp://%s@%s%s", userinfo, hostport, path)
	}
	return fmt.Sprintf("rtsp://%s%s", hostport, path)
}

// AlternativeDescriptor builds a second descriptor from the same components
// that omits strict jitter buffering, for use after repeated decoder/format
// failures (spec section 4.1). We formalize this as forcing the TCP
// transport and disabling the player's jitter-buffer reordering query
// parameters, rather than guessing a protocol-level change.
func AlternativeDescriptor(primary string) string {
	sep := "?"
	if strings.Contains(primary, "?") {
		sep = "&"
	}
	return primary + sep + "rtsp_transport=tcp&reorder_queue_size=0"
}

// decoderFailureSubstrings is the closed, named set of error substrings that
// indicate a decoder/format problem rather than a connection problem (spec
// section 4.1 / Open Question in spec section 9). Connection-class errors
// (refused, timeout, unreachable, no route to host) are deliberately
// excluded so they only extend backoff, never trigger the alternative-
// pipeline switch.
var decoderFailureSubstrings = []string{
	"invalid data found",
	"could not find codec",
	"unsupported codec",
	"malformed",
	"decode error",
	"non-monotonic",
}

// connectionFailureSubstrings are never treated as decoder failures even if
// they happen to also match a decoder substring incidentally.
var connectionFailureSubstrings = []string{
	"connection refused",
	"timed out",
	"timeout",
	"no route to host",
	"network is unreachable",
	"name or service not known",
}

// IsDecoderFailure classifies err as a decoder/format failure (true) versus
// a connection-class failure (false) using the substring lists above.
func IsDecoderFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	for _, s := range connectionFailureSubstrings {
		if strings.Contains(msg, s) {
			return false
		}
	}
	for _, s := range decoderFailureSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
