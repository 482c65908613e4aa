// Package privacy scrubs data that identifies users or leaks credentials
// from messages before they leave the process.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern = regexp.MustCompile(`\b(?:https?|mqtts?|tcp|ssl|wss?|s3)://\S+`)

	// key=value pairs whose value is a credential, outside of URLs
	credentialPattern = regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password|passwd|dsn)(\s*[=:]\s*)("[^"]*"|\S+)`)

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// ScrubMessage anonymizes URLs and masks credentials and email addresses in
// message.
func ScrubMessage(message string) string {
	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	message = credentialPattern.ReplaceAllString(message, "${1}${2}[REDACTED]")
	return emailPattern.ReplaceAllString(message, "[EMAIL]")
}

// AnonymizeURL replaces a URL with a stable hash of its scheme, host class,
// port and path shape. Equal URLs map to equal tokens so reports can still be
// grouped.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if u.Port() != "" {
		parts = append(parts, "port-"+u.Port())
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, anonymizePath(u.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if ip := net.ParseIP(host); ip != nil {
		switch {
		case ip.IsLoopback():
			return "localhost"
		case ip.IsPrivate(), ip.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}

// anonymizePath keeps the number of segments and numeric segments such as
// barcodes collapse to one token.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		switch {
		case segment == "":
			continue
		case isNumeric(segment):
			segments = append(segments, "numeric")
		default:
			hash := sha256.Sum256([]byte(segment))
			segments = append(segments, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}
	return strings.Join(segments, "/")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
