// Package telemetry forwards selected internal errors to Sentry. It is opt-in
// and reports nothing unless sentry.enabled is set.
package telemetry

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/lexiplay/soundtrack/internal/conf"
	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
)

const componentName = "telemetry"

// DefaultCategories are the error categories reported when none are configured.
var DefaultCategories = []errors.ErrorCategory{
	errors.CategoryAudioSource,
	errors.CategoryAudioDevice,
	errors.CategoryFileParsing,
	errors.CategoryTimeout,
}

// context keys copied onto the Sentry event as extra data
var forwardedContext = []string{"source", "source_kind", "channel", "generation", "load_id", "operation", "duration_ms", "format", "status_code"}

// Reporter implements errors.TelemetryReporter on a dedicated Sentry hub.
type Reporter struct {
	hub        *sentry.Hub
	categories map[errors.ErrorCategory]struct{}
	log        logger.Logger
}

// Option configures a Reporter.
type Option func(*options)

type options struct {
	transport  sentry.Transport
	categories []errors.ErrorCategory
	release    string
	log        logger.Logger
}

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(t sentry.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithCategories sets the error categories that are reported.
func WithCategories(categories ...errors.ErrorCategory) Option {
	return func(o *options) { o.categories = categories }
}

// WithRelease sets the release tag.
func WithRelease(release string) Option {
	return func(o *options) { o.release = release }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewReporter creates a Sentry client from settings. It returns an error when
// telemetry is disabled or the client cannot be created.
func NewReporter(settings conf.SentrySettings, opts ...Option) (*Reporter, error) {
	o := options{categories: DefaultCategories}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Global().Module(componentName)
	}

	if !settings.Enabled {
		return nil, errors.Newf("telemetry disabled").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	environment := settings.Environment
	if environment == "" {
		environment = "production"
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Debug:            settings.Debug,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		Release:          o.release,
		ServerName:       "",
		Transport:        o.transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		// not built through the errors builder to avoid reporting into a
		// reporter that does not exist yet
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}

	r := &Reporter{
		hub:        sentry.NewHub(client, sentry.NewScope()),
		categories: make(map[errors.ErrorCategory]struct{}, len(o.categories)),
		log:        o.log,
	}
	for _, c := range o.categories {
		r.categories[c] = struct{}{}
	}

	r.log.Info("sentry telemetry enabled",
		logger.String("environment", environment),
		logger.Int("categories", len(r.categories)))
	return r, nil
}

// IsEnabled implements errors.TelemetryReporter.
func (r *Reporter) IsEnabled() bool {
	return r != nil && r.hub.Client() != nil
}

// Reports tells whether errors of category c are forwarded.
func (r *Reporter) Reports(c errors.ErrorCategory) bool {
	_, ok := r.categories[c]
	return ok
}

// ReportError implements errors.TelemetryReporter. Errors outside the
// configured categories are ignored.
func (r *Reporter) ReportError(ee *errors.EnhancedError) {
	if !r.IsEnabled() || !r.Reports(ee.Category) {
		return
	}

	component := ee.GetComponent()
	message := ScrubMessage(ee.Error())
	title := fmt.Sprintf("%s %s error", component, ee.Category)
	ctx := ee.GetContext()
	priority := ee.GetPriority()
	if priority == "" {
		priority = errors.PriorityMedium
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("priority", priority)
		scope.SetFingerprint([]string{title, component})

		extra := make(map[string]any)
		for _, key := range forwardedContext {
			if v, ok := ctx[key]; ok {
				if s, isString := v.(string); isString {
					v = ScrubMessage(errors.ScrubLocator(s))
				}
				extra[key] = v
			}
		}

		event := sentry.NewEvent()
		event.Level = levelFor(priority)
		event.Message = message
		event.Timestamp = ee.GetTimestamp()
		event.Extra = extra
		event.Exception = []sentry.Exception{{
			Type:  title,
			Value: message,
		}}
		r.hub.CaptureEvent(event)
	})

	r.log.Debug("error reported",
		logger.String("component", component),
		logger.String("category", string(ee.Category)),
		logger.String("context_keys", fmt.Sprint(sortedKeys(ctx))))
}

// Flush waits for queued events.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.IsEnabled() {
		return true
	}
	return r.hub.Flush(timeout)
}

func levelFor(priority string) sentry.Level {
	switch priority {
	case errors.PriorityCritical:
		return sentry.LevelFatal
	case errors.PriorityHigh:
		return sentry.LevelError
	case errors.PriorityLow:
		return sentry.LevelInfo
	default:
		return sentry.LevelWarning
	}
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
