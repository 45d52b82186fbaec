// Package device derives stable device identities from client metadata.
// Sessions are keyed by (user, device fingerprint), so the fingerprint must
// be deterministic and survive routine browser updates.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Service computes and compares device fingerprints. A disabled service
// returns empty fingerprints, which effectively collapses all of a user's
// devices into one session record.
type Service struct {
	enabled bool
}

// NewService constructs a device service.
func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ComputeFingerprint hashes the stable parts of a user-agent: browser name,
// browser major version, and OS. Minor and patch version bumps do not change
// the fingerprint; a major version change does.
func (s *Service) ComputeFingerprint(rawUserAgent string) string {
	if !s.enabled {
		return ""
	}
	ua := useragent.New(rawUserAgent)
	name, version := ua.Browser()
	osInfo := ua.OSInfo()

	material := strings.Join([]string{name, majorVersion(version), osInfo.FullName}, "|")
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// ParseUserAgent produces a human-readable device display name for session
// listings, e.g. "Chrome on Mac OS X".
func ParseUserAgent(rawUserAgent string) string {
	if rawUserAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(rawUserAgent)

	name, _ := ua.Browser()
	if name == "" {
		name = "Unknown Browser"
	}

	platform := strings.TrimSpace(ua.Platform())
	osName := strings.TrimSpace(ua.OSInfo().Name)
	if ua.Mobile() && platform != "" {
		osName = platform
	}
	if osName == "" {
		osName = platform
	}
	if osName == "" {
		osName = "Unknown OS"
	}

	return strings.Join(strings.Fields(name+" on "+osName), " ")
}

func majorVersion(version string) string {
	if i := strings.IndexByte(version, '.'); i >= 0 {
		return version[:i]
	}
	return version
}
