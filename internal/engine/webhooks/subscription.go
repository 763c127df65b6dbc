package webhooks

import (
	"net/url"
	"strings"
	"time"
)

// Subscription describes where and for which event types to deliver outbound
// notifications. The JSON shape is also the persisted shape.
type Subscription struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Events        []string   `json:"events"`
	Secret        string     `json:"secret,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastTriggered *time.Time `json:"lastTriggered,omitempty"`
}

// ValidationError rejects a malformed subscription mutation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Message: "name is required"}
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return &ValidationError{Message: "url is required"}
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Message: "url must use http or https scheme"}
	}
	return nil
}

// validateEvents checks the set is non-empty and known, and returns it
// deduplicated with order preserved.
func validateEvents(events []string) ([]string, error) {
	if len(events) == 0 {
		return nil, &ValidationError{Message: "events must be a non-empty array"}
	}

	seen := make(map[string]bool, len(events))
	deduped := make([]string, 0, len(events))
	for _, event := range events {
		if !validEvents[event] {
			return nil, &ValidationError{
				Message: "unknown event type: " + event + ". Must be one of: " + strings.Join(ValidEventTypes(), ", "),
			}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}
	return deduped, nil
}

func (s Subscription) wantsEvent(eventType string) bool {
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}
