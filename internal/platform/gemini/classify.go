package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/phrazzld/genstudio/internal/generation"
	"google.golang.org/genai"
)

// Detail type URLs carried in error details.
const (
	quotaFailureType = "type.googleapis.com/google.rpc.QuotaFailure"
	errorInfoType    = "type.googleapis.com/google.rpc.ErrorInfo"
)

// invalidKeyReasons are ErrorInfo reasons that mean the credential itself
// is bad, even when the HTTP code is 400.
var invalidKeyReasons = map[string]bool{
	"API_KEY_INVALID":                 true,
	"API_KEY_EXPIRED":                 true,
	"API_KEY_SERVICE_BLOCKED":         true,
	"CONSUMER_INVALID":                true,
	"SERVICE_DISABLED":                true,
	"ACCESS_TOKEN_SCOPE_INSUFFICIENT": true,
}

// contentPolicyReasons are ErrorInfo reasons for requests rejected by
// content safety. They mirror the service's block reasons.
var contentPolicyReasons = map[string]bool{
	"SAFETY":             true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
	"IMAGE_SAFETY":       true,
}

// grpcStatusNames maps google.rpc.Code values, as found in long-running
// operation errors, to their canonical names.
var grpcStatusNames = map[int]string{
	1:  "CANCELLED",
	2:  "UNKNOWN",
	3:  "INVALID_ARGUMENT",
	4:  "DEADLINE_EXCEEDED",
	5:  "NOT_FOUND",
	6:  "ALREADY_EXISTS",
	7:  "PERMISSION_DENIED",
	8:  "RESOURCE_EXHAUSTED",
	9:  "FAILED_PRECONDITION",
	10: "ABORTED",
	11: "OUT_OF_RANGE",
	12: "UNIMPLEMENTED",
	13: "INTERNAL",
	14: "UNAVAILABLE",
	15: "DATA_LOSS",
	16: "UNAUTHENTICATED",
}

// ClassifyPolicy tunes how ambiguous failures are classified.
type ClassifyPolicy struct {
	// RateLimitAsQuota treats every 429 / RESOURCE_EXHAUSTED response as a
	// quota failure, which rotates the credential. When false, only
	// responses that carry a QuotaFailure detail rotate and plain
	// throttling is retried on the same credential.
	RateLimitAsQuota bool
}

// DefaultClassifyPolicy rotates away from throttled credentials.
func DefaultClassifyPolicy() ClassifyPolicy {
	return ClassifyPolicy{RateLimitAsQuota: true}
}

// Classify converts an error from the genai client into a
// *generation.Error. Context errors and errors that are already
// classified are returned unchanged, and so are errors the policy does
// not recognise.
func (p ClassifyPolicy) Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var classified *generation.Error
	if errors.As(err, &classified) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return p.classifyAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return p.classifyAPIError(*apiErrPtr, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &generation.Error{
			Kind:    generation.KindTransient,
			Message: "network error talking to generation service",
			Err:     err,
		}
	}

	return err
}

func (p ClassifyPolicy) classifyAPIError(apiErr genai.APIError, cause error) *generation.Error {
	return &generation.Error{
		Kind:    p.kindFor(apiErr.Code, apiErr.Status, apiErr.Details),
		Code:    apiErr.Code,
		Status:  apiErr.Status,
		Message: apiErr.Message,
		Err:     cause,
	}
}

// kindFor decides the error kind from an HTTP code, a canonical status
// name and the structured error details.
func (p ClassifyPolicy) kindFor(code int, status string, details []map[string]any) generation.Kind {
	status = strings.ToUpper(status)

	if hasReason(details, invalidKeyReasons) {
		return generation.KindAuth
	}
	if hasReason(details, contentPolicyReasons) {
		return generation.KindContentPolicy
	}

	switch {
	case code == 401 || code == 403 || status == "PERMISSION_DENIED" || status == "UNAUTHENTICATED":
		return generation.KindAuth

	case code == 429 || status == "RESOURCE_EXHAUSTED":
		if p.RateLimitAsQuota || hasDetailType(details, quotaFailureType) {
			return generation.KindQuota
		}
		return generation.KindTransient

	case code == 500 || code == 502 || code == 503 || code == 504 ||
		status == "UNAVAILABLE" || status == "INTERNAL" || status == "DEADLINE_EXCEEDED":
		return generation.KindTransient

	case code >= 400 && code < 500:
		return generation.KindInvalidRequest

	case status == "INVALID_ARGUMENT" || status == "FAILED_PRECONDITION" ||
		status == "NOT_FOUND" || status == "OUT_OF_RANGE":
		return generation.KindInvalidRequest
	}

	return generation.KindUnknown
}

// classifyOperationError classifies the google.rpc.Status carried by a
// finished long-running operation.
func (p ClassifyPolicy) classifyOperationError(opErr map[string]any) *generation.Error {
	code := intField(opErr, "code")
	status := grpcStatusNames[code]
	message, _ := opErr["message"].(string)
	if message == "" {
		message = "video operation failed"
	}

	var details []map[string]any
	if raw, ok := opErr["details"].([]any); ok {
		for _, d := range raw {
			if m, ok := d.(map[string]any); ok {
				details = append(details, m)
			}
		}
	}

	return &generation.Error{
		Kind:    p.kindFor(0, status, details),
		Status:  status,
		Message: message,
		Err:     fmt.Errorf("operation error %d: %s", code, message),
	}
}

func hasDetailType(details []map[string]any, typeURL string) bool {
	for _, d := range details {
		if t, _ := d["@type"].(string); t == typeURL {
			return true
		}
	}
	return false
}

// hasReason reports whether an ErrorInfo detail carries one of reasons.
func hasReason(details []map[string]any, reasons map[string]bool) bool {
	for _, d := range details {
		if t, _ := d["@type"].(string); t != errorInfoType {
			continue
		}
		if reason, _ := d["reason"].(string); reasons[reason] {
			return true
		}
	}
	return false
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
