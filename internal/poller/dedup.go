package poller

// slot remembers the last message delivered in one category.
// The status and error slots never look at each other.
type slot struct {
	last string
}

func (s *slot) changed(msg string) bool { return msg != s.last }

// commit records msg as delivered. Only call it after a successful send,
// so a message lost to a delivery failure is retried on the next cycle.
func (s *slot) commit(msg string) { s.last = msg }
