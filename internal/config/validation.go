package config

import (
	"fmt"
	"net/url"
	"strings"

	"projector/internal/scheduler"
	"projector/internal/template"
	"projector/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// addErr records err when it is a ValidationError.
func (ve *ValidationErrors) addErr(err error) {
	if err == nil {
		return
	}
	if v, ok := err.(ValidationError); ok {
		*ve = append(*ve, v)
		return
	}
	ve.Add("", err.Error())
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Value: value, Message: "is required"}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateURL checks that value is an absolute http(s) URL.
func ValidateURL(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{Field: field, Value: value, Message: "must be an absolute http or https URL"}
	}
	return nil
}

// ValidateTemplate checks that value parses as a text template.
func ValidateTemplate(field, value string) error {
	if value == "" {
		return nil
	}
	if err := template.New().Validate(value); err != nil {
		return ValidationError{Field: field, Value: value, Message: err.Error()}
	}
	return nil
}

func validateEngine(errs *ValidationErrors, prefix string, e EngineConfig) {
	errs.addErr(ValidateURL(prefix+".url", e.URL))
	if e.Timeout < 0 {
		errs.Add(prefix+".timeout", "must not be negative", e.Timeout)
	}
	if e.RetryMax < 0 {
		errs.Add(prefix+".retryMax", "must not be negative", e.RetryMax)
	}
}

// Validate checks the whole configuration. The returned error, if any, is a
// ConfigurationErrorCollection with one entry per invalid field.
func Validate(config Config, path string) error {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), config.Logging.Level)
	}
	errs.addErr(ValidateOneOf("logging.format", config.Logging.Format, []string{string(logging.FormatText), string(logging.FormatJSON)}))

	errs.addErr(ValidateOneOf("store.driver", config.Store.Driver, []string{StoreDriverFile, StoreDriverSQLite}))
	errs.addErr(ValidateRequired("store.path", config.Store.Path))
	if config.Store.Watch && config.Store.Driver != StoreDriverFile {
		errs.Add("store.watch", "is only supported by the file driver", config.Store.Watch)
	}

	validateEngine(&errs, "search", config.Search.EngineConfig)
	validateEngine(&errs, "dashboard", config.Dashboard.EngineConfig)
	errs.addErr(ValidateTemplate("dashboard.descriptionTemplate", config.Dashboard.DescriptionTemplate))
	if config.Reporting.Enabled {
		validateEngine(&errs, "reporting", config.Reporting.EngineConfig)
		errs.addErr(ValidateTemplate("reporting.namespaceNameTemplate", config.Reporting.NamespaceNameTemplate))
	}

	if config.Hooks.Debounce < 0 {
		errs.Add("hooks.debounce", "must not be negative", config.Hooks.Debounce)
	}
	if err := scheduler.Validate(config.Sync.Schedule); err != nil {
		errs.Add("sync.schedule", err.Error(), config.Sync.Schedule)
	}
	if config.Sync.Concurrency <= 0 {
		errs.Add("sync.concurrency", "must be greater than zero", config.Sync.Concurrency)
	}

	if config.Server.Enabled {
		errs.addErr(ValidateRequired("server.address", config.Server.Address))
	}
	errs.addErr(ValidateRequired("admin.username", config.Admin.Username))

	if len(errs) == 0 {
		return nil
	}

	collection := ConfigurationErrorCollection{}
	for _, ve := range errs {
		collection.Add(NewConfigurationError(path, ve.Field, "validation", ve.Message))
	}
	return collection
}
