package urlparse

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedURL holds the structured fields of a stream URL. It is a
// transient value: connection logic validates and consumes it
// immediately, nothing persists it.
type ParsedURL struct {
	Protocol string `json:"protocol"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
	Path     string `json:"path"`
	Query    string `json:"query,omitempty"`
	IsValid  bool   `json:"is_valid"`
}

// urlPattern matches scheme://[user[:pass]@]host[:port][/path][?query]
// for the stream schemes the engine accepts.
var urlPattern = regexp.MustCompile(
	`(?i)^(https?|icecast|shoutcast)://(?:([^:@/]+)(?::([^@/]+))?@)?([^:/?]+)(?::(\d+))?(/[^?]*)?(?:\?(.*))?$`)

// scriptPattern strips embedded script-tag payloads during sanitization
var scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)

var supportedProtocols = []string{"http", "https", "icecast", "shoutcast"}

// Parse parses a stream URL into its structured fields. It never fails:
// input that does not match the grammar yields a zero ParsedURL with
// IsValid false.
func Parse(rawURL string) ParsedURL {
	var result ParsedURL

	matches := urlPattern.FindStringSubmatch(rawURL)
	if matches == nil {
		return result
	}

	result.Protocol = strings.ToLower(matches[1])
	result.Username = matches[2]
	result.Password = matches[3]
	result.Hostname = matches[4]

	if matches[5] != "" {
		port, err := strconv.Atoi(matches[5])
		if err != nil {
			return ParsedURL{}
		}
		result.Port = port
	} else if result.Protocol == "https" {
		result.Port = 443
	} else {
		result.Port = 80
	}

	result.Path = matches[6]
	if result.Path == "" {
		result.Path = "/"
	}
	result.Query = matches[7]
	result.IsValid = true

	return result
}

// IsSupportedProtocol reports whether the scheme is one the engine
// will connect to.
func IsSupportedProtocol(protocol string) bool {
	protocol = strings.ToLower(protocol)
	for _, supported := range supportedProtocols {
		if protocol == supported {
			return true
		}
	}
	return false
}

// IsValidStreamURL reports whether the URL parses and carries a
// supported scheme. Connection logic must reject anything that fails
// this check before attempting a connection.
func IsValidStreamURL(rawURL string) bool {
	parsed := Parse(rawURL)
	return parsed.IsValid && IsSupportedProtocol(parsed.Protocol)
}

// Sanitize strips embedded script-tag payloads from a URL string.
// Best-effort hygiene for display and logging, not a substitute for
// the validator.
func Sanitize(rawURL string) string {
	return scriptPattern.ReplaceAllString(rawURL, "")
}
