package config

import "time"

const (
	// Gate
	MaxTargets = 50

	// Push payload
	MaxPushTitleLen = 100
	MaxPushBodyLen  = 500
	PushTTLSeconds  = 60 * 60 * 24

	// Messages
	MaxMessageContentLen = 4000
	DefaultMessageLimit  = 500

	// Live location
	DefaultShareDuration = 60 * time.Minute
	MinShareDuration     = 1 * time.Minute
	MaxShareDuration     = 8 * time.Hour

	// Presence
	DefaultPresenceStaleAfter = 90 * time.Second
	PresenceHeartbeat         = 30 * time.Second

	// Telegram linking
	TelegramLinkCodeTTL = 10 * time.Minute

	// Side effects
	DefaultAuditTimeout = 3 * time.Second
)

// NotificationTypes lists the type tags the dispatcher accepts.
var NotificationTypes = map[string]bool{
	"request_received": true,
	"request_accepted": true,
	"request_declined": true,
	"new_message":      true,
	"location_shared":  true,
	"item_completed":   true,
	"system":           true,
}
