// internal/workers/matching/notify-match-partner/config.go
package notifymatchpartner

import "time"

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	PlatformURL  string
}
