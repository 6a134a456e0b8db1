package provider

import "github.com/mind-engage/lti-gateway/pkg/blti"

// messages maps reject reasons to the text shown to the person whose
// launch failed. Kept deliberately vague for the security-sensitive
// reasons; the log has the specifics.
var messages = map[blti.Reason]string{
	blti.ReasonDisabled:           "External tool launches are not enabled on this server.",
	blti.ReasonMissingField:       "The launch request is missing a required field.",
	blti.ReasonToolNotAllowed:     "This tool is not available.",
	blti.ReasonToolNotFound:       "This tool is not available.",
	blti.ReasonUnknownConsumer:    "The launch could not be authenticated.",
	blti.ReasonSignatureInvalid:   "The launch could not be authenticated.",
	blti.ReasonContextRequired:    "The launch request did not identify a course.",
	blti.ReasonSiteInvalid:        "The requested course does not exist on this server.",
	blti.ReasonUserInvalid:        "Your account does not exist on this server.",
	blti.ReasonUserMissing:        "You are not a member of the requested course.",
	blti.ReasonRoleUnresolved:     "Your role could not be mapped to a local role.",
	blti.ReasonProvisioningFailed: "The launch could not be completed. Please try again later.",
}

// MessageFor returns the user-facing text for a reject reason.
func MessageFor(code blti.Reason) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return "The launch could not be completed."
}
