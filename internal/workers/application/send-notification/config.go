// internal/workers/application/send-notification/config.go
package sendnotification

import "time"

type Config struct {
	EmailEnabled  bool
	SMSEnabled    bool
	FromEmail     string
	AWSRegion     string
	PriorityTypes []string // notification types that also go out by SMS
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		PriorityTypes: []string{"interview", "accepted"},
		Timeout:       30 * time.Second,
	}
}

func (c *Config) isPriority(notificationType string) bool {
	for _, t := range c.PriorityTypes {
		if t == notificationType {
			return true
		}
	}
	return false
}
