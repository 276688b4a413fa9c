package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
)

// failure is embedded in every command output so error fields flatten into
// the JSON envelope.
type failure struct {
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorCategory string `json:"error_category,omitempty"`
	Hint          string `json:"hint,omitempty"`
}

func failureFrom(err error) failure {
	if err == nil {
		return failure{}
	}
	return failure{
		Error:         err.Error(),
		ErrorCode:     coreerrors.CodeOf(err),
		ErrorCategory: string(coreerrors.CategoryOf(err)),
		Hint:          coreerrors.HintOf(err),
	}
}

func failureText(message string) failure {
	return failure{Error: message}
}

// writeFailureText prints a failure for humans on stderr.
func writeFailureText(command string, output failure, exitCode int) {
	fmt.Fprintf(os.Stderr, "%s error: %s\n", command, output.Error)
	hint := strings.TrimSpace(output.Hint)
	if hint == "" {
		hint = defaultHint(exitCode)
	}
	if hint != "" {
		fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
	}
}

func writeJSONOutput(output any, exitCode int) int {
	encoded, err := marshalOutputWithErrorEnvelope(output, exitCode)
	if err != nil {
		fmt.Println(`{"ok":false,"error":"failed to encode output","error_code":"encode_failed","error_category":"internal_failure","retryable":false}`)
		return exitInternalFailure
	}
	fmt.Println(string(encoded))
	return exitCode
}

func marshalOutputWithErrorEnvelope(output any, exitCode int) ([]byte, error) {
	encoded, err := marshalJSON(output)
	if err != nil {
		return nil, err
	}
	result, err := unmarshalJSONToMap(encoded)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(asString(result["correlation_id"])) == "" {
		if correlationID := currentCorrelationID(); correlationID != "" {
			result["correlation_id"] = correlationID
		}
	}
	errorText := strings.TrimSpace(asString(result["error"]))
	if errorText == "" {
		return marshalJSON(result)
	}
	if strings.TrimSpace(asString(result["error_code"])) == "" {
		result["error_code"] = defaultErrorCode(exitCode)
	}
	if strings.TrimSpace(asString(result["error_category"])) == "" {
		result["error_category"] = string(defaultErrorCategory(exitCode))
	}
	if _, exists := result["retryable"]; !exists {
		category := coreerrors.Category(asString(result["error_category"]))
		result["retryable"] = defaultRetryable(category)
	}
	if strings.TrimSpace(asString(result["hint"])) == "" {
		result["hint"] = defaultHint(exitCode)
	}
	return marshalJSON(result)
}

func exitCodeForError(err error, fallbackExit int) int {
	if err == nil {
		return exitOK
	}
	if exitCode, ok := exitCodeByErrorCode[coreerrors.CodeOf(err)]; ok {
		return exitCode
	}
	switch coreerrors.CategoryOf(err) {
	case coreerrors.CategoryInvalidInput:
		return exitInvalidInput
	case coreerrors.CategoryVerification:
		return exitIntegrityMismatch
	case coreerrors.CategoryApprovalRequired:
		return exitDeclined
	case coreerrors.CategoryDependencyMissing:
		return exitInterpreterNotFound
	case coreerrors.CategoryStateContention:
		return exitStateContention
	case coreerrors.CategoryIOFailure, coreerrors.CategoryInternalFailure:
		return exitInternalFailure
	}
	return fallbackExit
}

func defaultErrorCategory(exitCode int) coreerrors.Category {
	switch exitCode {
	case exitInvalidInput, exitInvalidManifest, exitNoScriptGiven, exitUnknownInterpreter:
		return coreerrors.CategoryInvalidInput
	case exitNotInitialized, exitRegistryMissing, exitNoPackagesFound, exitManifestNotFound,
		exitScriptDirNotFound, exitPackageNotFound, exitScriptFileMissing, exitScriptNotIndexed:
		return coreerrors.CategoryNotFound
	case exitIntegrityMismatch, exitRegistryCorrupt:
		return coreerrors.CategoryVerification
	case exitDeclined:
		return coreerrors.CategoryApprovalRequired
	case exitInterpreterNotFound:
		return coreerrors.CategoryDependencyMissing
	case exitStateContention:
		return coreerrors.CategoryStateContention
	default:
		return coreerrors.CategoryInternalFailure
	}
}

func defaultErrorCode(exitCode int) string {
	if code, ok := errorCodeByExitCode[exitCode]; ok {
		return code
	}
	return "internal_failure"
}

func defaultHint(exitCode int) string {
	switch exitCode {
	case exitInvalidInput:
		return "check command usage with --help"
	case exitNotInitialized:
		return "run `ds init` first"
	case exitRegistryMissing, exitScriptNotIndexed, exitRegistryCorrupt:
		return "rebuild the script index with `ds compile`"
	case exitNoPackagesFound, exitPackageNotFound:
		return "list installed packages with `ds list`"
	case exitIntegrityMismatch:
		return "if the change is yours, run `ds hash rehash`"
	case exitDeclined:
		return "re-run and confirm, or pass --yes"
	case exitStateContention:
		return "another ds command is running; retry when it finishes"
	case exitInternalFailure:
		return "retry after checking the logs directory"
	default:
		return ""
	}
}

func defaultRetryable(category coreerrors.Category) bool {
	return category == coreerrors.CategoryStateContention
}

func marshalJSON(value any) ([]byte, error) {
	return json.Marshal(value)
}

func unmarshalJSONToMap(payload []byte) (map[string]any, error) {
	output := map[string]any{}
	if err := json.Unmarshal(payload, &output); err != nil {
		return nil, err
	}
	return output, nil
}

func asString(value any) string {
	text, _ := value.(string)
	return text
}
