package utils

import (
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP returns the client address for request logs. A public
// X-Real-IP wins, then the first public X-Forwarded-For hop, then the first
// forwarded hop of any kind, then the connection address.
func GetRealIP(c *gin.Context) string {
	if addr, ok := parseAddr(c.GetHeader("X-Real-IP")); ok && isPublic(addr) {
		return addr.String()
	}

	var firstHop string
	for i, hop := range strings.Split(c.GetHeader("X-Forwarded-For"), ",") {
		addr, ok := parseAddr(hop)
		if !ok {
			continue
		}
		if isPublic(addr) {
			return addr.String()
		}
		if i == 0 {
			firstHop = addr.String()
		}
	}
	if firstHop != "" {
		return firstHop
	}

	return c.ClientIP()
}

// GetUserAgent returns the User-Agent header, "Unknown" when absent
func GetUserAgent(c *gin.Context) string {
	if ua := c.Request.UserAgent(); ua != "" {
		return ua
	}
	return "Unknown"
}

func parseAddr(raw string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isPublic(addr netip.Addr) bool {
	return !addr.IsPrivate() && !addr.IsLoopback() && !addr.IsLinkLocalUnicast() && !addr.IsUnspecified()
}
