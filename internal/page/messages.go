package page

import (
	"errors"

	"github.com/tazhibayda/dailyjobs/internal/identity"
	"github.com/tazhibayda/dailyjobs/internal/prefs"
	"github.com/tazhibayda/dailyjobs/internal/verify"
)

var (
	ErrNotSignedIn  = errors.New("not signed in")
	ErrEditorHidden = errors.New("preference editor is not visible")
	ErrUnknownPage  = errors.New("unknown page")
)

// StoreError wraps record read/write failures. They are shown generically.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

const (
	msgStore            = "Something went wrong. Please try again."
	msgSaveFailed       = "Error saving preferences. Please try again."
	msgLoadFailed       = "Error loading preferences. Please try again."
	msgSaved            = "Preferences saved successfully!"
	msgVerificationSent = "Verification email sent! Please check your inbox."
	msgResetSent        = "Password reset email sent! Please check your inbox."
	msgSignedOut        = "You have been signed out."
	msgDeleted          = "Your account has been deleted."
	msgCheckFailed      = "Could not check your verification status. Please try again."
	msgAlreadyVerified  = "Your email is already verified."
	msgNotVerifiedYet   = "Your email is not verified yet. Please check your inbox."
	msgVerifyFirst      = "Please verify your email address before continuing. Check your inbox for the verification link."
	msgSendThrottled    = "Failed to send verification email. Too many requests. Please wait a few minutes before trying again."
)

var codeMessages = map[identity.Code]string{
	identity.CodeUserNotFound:        "No account found with this email. Please sign up first.",
	identity.CodeWrongPassword:       "Incorrect password. Please try again.",
	identity.CodeEmailInUse:          "An account with this email already exists. Please sign in instead.",
	identity.CodeInvalidEmail:        "Please enter a valid email address.",
	identity.CodeWeakPassword:        "Password should be at least 6 characters.",
	identity.CodeTooManyRequests:     "Too many requests. Please wait a few minutes before trying again.",
	identity.CodeRequiresRecentLogin: "For security, please sign out and sign in again, then retry.",
	identity.CodeInvalidContinueURI:  "The verification link is misconfigured. Please contact support.",
	identity.CodePopupClosed:         "Sign-in was cancelled before it completed.",
	identity.CodeOperationNotAllowed: "This sign-in method is not enabled.",
	identity.CodeInvalidActionCode:   "This link is invalid or has expired.",
	identity.CodeTokenExpired:        "Your session has expired. Please sign in again.",
}

// verificationMessage words provider failures of a verification send.
func verificationMessage(err error) string {
	if identity.CodeOf(err) == identity.CodeTooManyRequests {
		return msgSendThrottled
	}
	return Message(err)
}

// Message is the user-facing text for any error a page operation returns.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, prefs.ErrValidation) {
		return prefs.Message(err)
	}
	var ce *verify.CooldownError
	var me *verify.MaxRetriesError
	switch {
	case errors.As(err, &ce), errors.As(err, &me):
		return err.Error()
	case errors.Is(err, ErrNotSignedIn):
		return "Please sign in first."
	case errors.Is(err, ErrEditorHidden):
		return "Please verify your email before editing preferences."
	}
	var se *StoreError
	if errors.As(err, &se) {
		return msgStore
	}
	if m, ok := codeMessages[identity.CodeOf(err)]; ok {
		return m
	}
	return msgStore
}
