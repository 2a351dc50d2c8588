package telemetry

import (
	"regexp"

	"github.com/getsentry/sentry-go"

	"github.com/lexiplay/soundtrack/internal/errors"
)

var urlPattern = regexp.MustCompile(`\b(?:https?|file|tcp|ssl|wss?|mqtts?)://[^\s"']+`)

// ScrubMessage strips credentials, query strings and fragments from every URL
// embedded in message.
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, errors.ScrubLocator)
}

// applyPrivacyFilters removes host and user identifying data from an event
// before it leaves the process.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	event.Message = ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = ScrubMessage(event.Exception[i].Value)
	}
	return event
}
