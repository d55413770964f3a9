package types

import "sync"

const (
	ContextUserKey      = "user"
	ContextRequestIDKey = "request_id"
	TokenCookieName     = "token"
)

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	originsMu      sync.RWMutex
	allowedOrigins = append([]string(nil), defaultOrigins...)
)

// SetAllowedOrigins replaces the origin allow-list used by CORS and the
// websocket upgrader. An empty list restores the development defaults.
func SetAllowedOrigins(origins []string) {
	originsMu.Lock()
	defer originsMu.Unlock()

	if len(origins) == 0 {
		allowedOrigins = append([]string(nil), defaultOrigins...)
		return
	}

	allowedOrigins = append([]string(nil), origins...)
}

func AllowedOrigins() []string {
	originsMu.RLock()
	defer originsMu.RUnlock()

	return append([]string(nil), allowedOrigins...)
}

func IsAllowedOrigin(origin string) bool {
	for _, allowed := range AllowedOrigins() {
		if origin == allowed {
			return true
		}
	}
	return false
}
