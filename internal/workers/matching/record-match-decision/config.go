// internal/workers/matching/record-match-decision/config.go
package recordmatchdecision

import "time"

type Config struct {
	Timeout time.Duration
}
