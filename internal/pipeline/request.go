package pipeline

import (
	"appforge/internal/attachment"
	"appforge/internal/ledger"
)

// Request is a validated, admitted unit of work handed to the background
// runner. The intake gate has already checked the secret, the required
// fields, and the ledger before one of these exists.
type Request struct {
	Email         string
	Task          string
	Round         int
	Nonce         string
	EvaluationURL string
	Brief         string
	Attachments   []attachment.Payload
	Checks        []string
}

func (r Request) Identity() ledger.Identity {
	return ledger.Identity{Email: r.Email, Task: r.Task, Round: r.Round, Nonce: r.Nonce}
}
