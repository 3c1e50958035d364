package cache

import (
	"fmt"
	"time"
)

const (
	TopicStatsKey    = "topics:stats"
	CommunityKey     = "community:stats"
	SessionKeyPrefix = "session:%s"
)

const (
	TopicStatsTTL = 30 * time.Second
	SessionTTL    = 5 * time.Minute
)

// SessionKey is the cache key of an anonymous session row.
func SessionKey(sessionID string) string {
	return fmt.Sprintf(SessionKeyPrefix, sessionID)
}
