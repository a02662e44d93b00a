package ledger

import "fmt"

// Identity names one unit of work. Two requests carrying the same identity
// are the same logical work item and must complete at most once.
type Identity struct {
	Email string
	Task  string
	Round int
	Nonce string
}

// Key serializes the identity to the ledger key. The format is load-bearing:
// it is the primary key of the durable store and must stay stable so replays
// keep matching records written by older builds.
func (id Identity) Key() string {
	return fmt.Sprintf("%s::%s::round%d::nonce%s", id.Email, id.Task, id.Round, id.Nonce)
}
