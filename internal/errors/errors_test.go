package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("open database/php-changes: no such file or directory")

	err := New(RuleDatabaseMissing, "rule database not found", cause)

	if err.Code != RuleDatabaseMissing {
		t.Errorf("Code = %v, want %v", err.Code, RuleDatabaseMissing)
	}
	if err.Message != "rule database not found" {
		t.Errorf("Message = %q, want %q", err.Message, "rule database not found")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestPmaError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      RulesetInvalid,
			message:   "decode 7.4-to-8.0.json",
			cause:     errors.New("unexpected end of JSON input"),
			wantParts: []string{"RULESET_INVALID", "decode 7.4-to-8.0.json", "unexpected end of JSON input"},
		},
		{
			name:      "without cause",
			code:      PlatformUnknown,
			message:   "no rules for platform joomla",
			cause:     nil,
			wantParts: []string{"PLATFORM_UNKNOWN", "no rules for platform joomla"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestPmaError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}

	if New(Timeout, "deadline exceeded", nil).Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestPmaError_IsByCode(t *testing.T) {
	err := fmt.Errorf("loading hop: %w", Newf(RulesetNotFound, "missing %s", "8.0-to-8.1.json"))

	if !errors.Is(err, &PmaError{Code: RulesetNotFound}) {
		t.Error("errors.Is should match on code through wrapping")
	}
	if errors.Is(err, &PmaError{Code: RulesetInvalid}) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain", errors.New("x"), ""},
		{"direct", Newf(InvalidRegex, "bad"), InvalidRegex},
		{"wrapped", fmt.Errorf("outer: %w", Newf(FileUnreadable, "f.php")), FileUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPmaError_WithDetails(t *testing.T) {
	err := Newf(VersionRangeInvalid, "8.3 does not precede 7.4")
	details := map[string]string{"from": "8.3", "to": "7.4"}

	if result := err.WithDetails(details); result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{RuleDatabaseMissing, false, 1},
		{RulesetInvalid, false, 1},
		{InvalidRegex, false, 1},
		{VersionRangeInvalid, false, 1},
		{Timeout, false, 1},
		{FileUnreadable, true, 0}, // No predefined fixes
		{ParseFailed, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ConfigInvalid,
		RuleDatabaseMissing,
		RulesetNotFound,
		RulesetInvalid,
		InvalidRegex,
		VersionRangeInvalid,
		PlatformUnknown,
		FileUnreadable,
		ParseFailed,
		Timeout,
		StorageUnavailable,
		RunNotFound,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
