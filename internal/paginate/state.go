package paginate

// State is the only value carried from one page of a branch to the next.
type State struct {
	// ExpectedPage is the page number the next fetch must carry.
	ExpectedPage int `json:"expected_page"`
}

// NewState returns the state of a branch about to process its seed page.
func NewState() State {
	return State{ExpectedPage: 1}
}

// Advance returns the state after one more page was processed.
func (s State) Advance() State {
	s.ExpectedPage++
	return s
}
