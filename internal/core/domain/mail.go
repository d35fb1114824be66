package domain

import "time"

// EmailJobKind selects the template rendered by the mail worker.
type EmailJobKind string

const (
	EmailJobVerification  EmailJobKind = "verification"
	EmailJobPasswordReset EmailJobKind = "password_reset"
)

// EmailJob is the unit of work flowing through the mail queue. The raw
// action token travels inside the job only; it is never written to the
// database in clear.
type EmailJob struct {
	ID          string       `json:"id"`
	Kind        EmailJobKind `json:"kind"`
	Recipient   string       `json:"recipient"`
	Name        string       `json:"name"`
	Token       string       `json:"token"`
	RequestedAt time.Time    `json:"requested_at"`
}

// MailDeadLetter holds an email job that exhausted its delivery attempts.
// Dead letters are retained for inspection and can be retried or purged.
type MailDeadLetter struct {
	ID        string
	Job       EmailJob
	Attempts  int
	LastError string
	FailedAt  time.Time
}
