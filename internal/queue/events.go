package queue

const (
	KeyUserRegistered        = "user.registered"
	KeyVerificationRequested = "verification.requested"
	KeyPasswordReset         = "password.reset_requested"
	KeyAccountDeleted        = "user.deleted"
	KeyDigestReady           = "digest.ready"
)

type UserRegistered struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// VerificationRequested carries everything the notifier needs to mail the link.
type VerificationRequested struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Link            string `json:"link"`
	ContinueURL     string `json:"continue_url"`
	HandleCodeInApp bool   `json:"handle_code_in_app"`
}

type PasswordResetRequested struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Link   string `json:"link"`
}

type AccountDeleted struct {
	UserID string `json:"user_id"`
}

type DigestJob struct {
	Company  string `json:"company"`
	Title    string `json:"title"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

// DigestReady is one subscriber's daily digest. Jobs may be empty.
type DigestReady struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Jobs   []DigestJob `json:"jobs"`
}
