package errors

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryInvalidInput      Category = "invalid_input"
	CategoryNotFound          Category = "not_found"
	CategoryVerification      Category = "verification_failed"
	CategoryApprovalRequired  Category = "approval_required"
	CategoryDependencyMissing Category = "dependency_missing"
	CategoryIOFailure         Category = "io_failure"
	CategoryStateContention   Category = "state_contention"
	CategoryInternalFailure   Category = "internal_failure"
)

// Codes name each failure kind a command can surface. Every code maps to its
// own process exit status in cmd/ds.
const (
	CodeRegistryMissing     = "registry_missing"
	CodeRegistryCorrupt     = "registry_corrupt"
	CodeNoPackagesFound     = "no_packages_found"
	CodeInvalidManifest     = "invalid_manifest"
	CodeManifestNotFound    = "manifest_not_found"
	CodeScriptDirNotFound   = "script_dir_not_found"
	CodePackageNotFound     = "package_not_found"
	CodeNoScriptGiven       = "no_script_given"
	CodeScriptFileMissing   = "script_file_missing"
	CodeScriptNotIndexed    = "script_not_indexed"
	CodeUnknownInterpreter  = "unknown_interpreter"
	CodeInterpreterNotFound = "interpreter_not_found"
	CodeIntegrityMismatch   = "integrity_mismatch"
	CodeDeclined            = "declined"
	CodeNotInitialized      = "not_initialized"
	CodeStateContention     = "state_contention"
	CodeInvalidInput        = "invalid_input"
	CodeIOFailure           = "io_failure"
)

type classifiedError struct {
	category  Category
	code      string
	hint      string
	retryable bool
	cause     error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func (e *classifiedError) Category() Category {
	return e.category
}

func (e *classifiedError) Code() string {
	return e.code
}

func (e *classifiedError) Hint() string {
	return e.hint
}

func (e *classifiedError) Retryable() bool {
	return e.retryable
}

func Wrap(cause error, category Category, code, hint string, retryable bool) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category:  category,
		code:      code,
		hint:      hint,
		retryable: retryable,
		cause:     cause,
	}
}

// New builds a non-retryable classified error from a formatted message.
func New(category Category, code, hint, format string, args ...any) error {
	return Wrap(fmt.Errorf(format, args...), category, code, hint, false)
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.hint
	}
	return ""
}

func RetryableOf(err error) bool {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.retryable
	}
	return false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
