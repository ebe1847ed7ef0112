package access

import "strings"

// CreateOutcome classifies a failed user-create call against the
// membership platform.
type CreateOutcome int

const (
	// OutcomeCreated means the call succeeded and a new user exists.
	OutcomeCreated CreateOutcome = iota
	// OutcomeExisting means the email is already registered, so the
	// platform linked the products to the existing account.
	OutcomeExisting
	// OutcomeUnknown is any other failure. The platform gives no
	// structured error code, so the caller retries with a fresh
	// password assuming the account was deleted.
	OutcomeUnknown
)

// existingUserPhrases are the error message fragments the platform is
// known to return when the email is already registered.
var existingUserPhrases = []string{
	"already exists",
	"email already registered",
	"user exists",
	"email duplicate",
	"already registered",
	"email is already",
	"user already",
}

// ClassifyCreateError maps a user-create error to an outcome by
// matching the message against known phrasings.
func ClassifyCreateError(err error) CreateOutcome {
	if err == nil {
		return OutcomeCreated
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range existingUserPhrases {
		if strings.Contains(msg, phrase) {
			return OutcomeExisting
		}
	}
	return OutcomeUnknown
}
