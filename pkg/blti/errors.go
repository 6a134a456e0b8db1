// pkg/blti/errors.go
package blti

import "fmt"

// Reason classifies why a launch was rejected. Reasons are surfaced to
// the consumer as message keys (via lti_msg), never as Go errors
// crossing the protocol boundary.
type Reason string

const (
	ReasonDisabled           Reason = "DISABLED"
	ReasonMissingField       Reason = "MISSING_FIELD"
	ReasonToolNotAllowed     Reason = "TOOL_NOT_ALLOWED"
	ReasonToolNotFound       Reason = "TOOL_NOT_FOUND"
	ReasonUnknownConsumer    Reason = "UNKNOWN_CONSUMER"
	ReasonSignatureInvalid   Reason = "SIGNATURE_INVALID"
	ReasonContextRequired    Reason = "CONTEXT_REQUIRED"
	ReasonSiteInvalid        Reason = "SITE_INVALID"
	ReasonUserInvalid        Reason = "USER_INVALID"
	ReasonUserMissing        Reason = "USER_MISSING_IN_CONTEXT"
	ReasonRoleUnresolved     Reason = "ROLE_UNRESOLVED"
	ReasonProvisioningFailed Reason = "PROVISIONING_FAILED"
)

// LaunchError is a terminal REJECT outcome. Code drives the message
// shown to the user; Detail is for the server log only and may contain
// identifiers that must not leak to the consumer.
type LaunchError struct {
	Code   Reason
	Detail string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func Reject(code Reason, detail string) *LaunchError {
	return &LaunchError{Code: code, Detail: detail}
}

// RejectErr wraps a collaborator failure (site save, user create, ...)
// so the underlying cause stays inspectable with errors.Is/As.
func RejectErr(code Reason, detail string, err error) *LaunchError {
	return &LaunchError{Code: code, Detail: detail, Err: err}
}
