package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConfigInvalid indicates the configuration file could not be read or decoded
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// RuleDatabaseMissing indicates the rule database directory does not exist
	RuleDatabaseMissing ErrorCode = "RULE_DATABASE_MISSING"
	// RulesetNotFound indicates a version-transition or platform rule file is absent
	RulesetNotFound ErrorCode = "RULESET_NOT_FOUND"
	// RulesetInvalid indicates a rule file could not be decoded
	RulesetInvalid ErrorCode = "RULESET_INVALID"
	// InvalidRegex indicates a rule's detection regex does not compile
	InvalidRegex ErrorCode = "INVALID_REGEX"
	// VersionRangeInvalid indicates an unknown version or from >= to
	VersionRangeInvalid ErrorCode = "VERSION_RANGE_INVALID"
	// PlatformUnknown indicates no rule data exists for a platform
	PlatformUnknown ErrorCode = "PLATFORM_UNKNOWN"
	// FileUnreadable indicates a source file could not be read
	FileUnreadable ErrorCode = "FILE_UNREADABLE"
	// ParseFailed indicates the structural parser produced no tree
	ParseFailed ErrorCode = "PARSE_FAILED"
	// Timeout indicates the analysis deadline expired
	Timeout ErrorCode = "TIMEOUT"
	// StorageUnavailable indicates the result cache could not be opened
	StorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// RunNotFound indicates no stored run has the requested ID
	RunNotFound ErrorCode = "RUN_NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// PmaError represents an analyzer error with code, message, and suggestions
type PmaError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a PmaError with the predefined fixes for its code.
func New(code ErrorCode, message string, cause error) *PmaError {
	return &PmaError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *PmaError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *PmaError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *PmaError) Unwrap() error {
	return e.cause
}

// Is matches any PmaError target carrying the same code.
func (e *PmaError) Is(target error) bool {
	t, ok := target.(*PmaError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *PmaError) WithDetails(details interface{}) *PmaError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first PmaError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	for err != nil {
		if pe, ok := err.(*PmaError); ok {
			return pe.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	RuleDatabaseMissing: {
		{
			Type:        EditConfig,
			Key:         "paths.database",
			Safe:        true,
			Description: "Point paths.database at a directory containing php-changes/ and platforms/",
		},
	},
	RulesetInvalid: {
		{
			Type:        RunCommand,
			Command:     "pma rules validate",
			Safe:        true,
			Description: "List every rule file problem in the database",
		},
	},
	InvalidRegex: {
		{
			Type:        RunCommand,
			Command:     "pma rules validate",
			Safe:        true,
			Description: "Find rules whose regex is not RE2-compatible",
		},
	},
	VersionRangeInvalid: {
		{
			Type:        RunCommand,
			Command:     "pma rules versions",
			Safe:        true,
			Description: "Show the known version ordering",
		},
	},
	RunNotFound: {
		{
			Type:        RunCommand,
			Command:     "pma history",
			Safe:        true,
			Description: "List stored run IDs",
		},
	},
	Timeout: {
		{
			Type:        EditConfig,
			Key:         "analysis.timeoutSeconds",
			Safe:        true,
			Description: "Raise the analysis deadline or narrow the scanned paths",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
