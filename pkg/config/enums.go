package config

// SuccessPolicy defines success criteria for a stage that fans out to
// more than one agent (len(Agents) > 1 or Replicas > 1).
type SuccessPolicy string

const (
	// SuccessPolicyAll requires every agent in the stage to succeed.
	SuccessPolicyAll SuccessPolicy = "all"
	// SuccessPolicyAny requires at least one agent to succeed (default).
	SuccessPolicyAny SuccessPolicy = "any"
)

// IsValid reports whether the success policy is one of the known values.
func (p SuccessPolicy) IsValid() bool {
	return p == SuccessPolicyAll || p == SuccessPolicyAny
}

// DocumentPolicy controls whether a stage's executor requires an extractable
// final document from the stage output (see SPEC_FULL.md §4.2 step 8).
type DocumentPolicy string

const (
	// DocumentPolicyNone means no document extraction is attempted.
	DocumentPolicyNone DocumentPolicy = ""
	// DocumentPolicyOptional extracts a document when present but does not
	// fail the stage when absent.
	DocumentPolicyOptional DocumentPolicy = "optional"
	// DocumentPolicyRequired fails the stage when no document can be
	// extracted from the stage output.
	DocumentPolicyRequired DocumentPolicy = "required"
)

// IsValid reports whether the document policy is one of the known values.
func (p DocumentPolicy) IsValid() bool {
	switch p {
	case DocumentPolicyNone, DocumentPolicyOptional, DocumentPolicyRequired:
		return true
	default:
		return false
	}
}
