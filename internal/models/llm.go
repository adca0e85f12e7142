package models

// TokenUsage reports token consumption for a single completion call.
// It is observational only: the provider records it per call and logs it
// for cost monitoring, nothing in the core persists it.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GuardResult is the outcome of the relevance check performed before any
// expensive processing. If Relevant is false, RejectionResponse holds the
// full text to return to the user.
type GuardResult struct {
	Relevant          bool   `json:"relevant"`
	RejectionResponse string `json:"rejection_response,omitempty"`
}

// SearchCriteria holds the structured filters extracted from a free-text
// request. All fields are pointers so that "not mentioned" is
// distinguishable from a zero value.
type SearchCriteria struct {
	PriceMax     *int64  `json:"price_max,omitempty"`
	PriceMin     *int64  `json:"price_min,omitempty"`
	BodyType     *string `json:"body_type,omitempty"`
	EngineType   *string `json:"engine_type,omitempty"`
	Brand        *string `json:"brand,omitempty"`
	Seats        *int    `json:"seats,omitempty"`
	Transmission *string `json:"transmission,omitempty"`
	Drive        *string `json:"drive,omitempty"`
	YearMin      *int    `json:"year_min,omitempty"`
	YearMax      *int    `json:"year_max,omitempty"`
}

// FilledExtras counts how many optional criteria fields (everything except
// the price bounds) are set. The search only proceeds when PriceMax is
// present and at least two extras are filled.
func (c *SearchCriteria) FilledExtras() int {
	if c == nil {
		return 0
	}
	count := 0
	if c.BodyType != nil {
		count++
	}
	if c.EngineType != nil {
		count++
	}
	if c.Brand != nil {
		count++
	}
	if c.Seats != nil {
		count++
	}
	if c.Transmission != nil {
		count++
	}
	if c.Drive != nil {
		count++
	}
	if c.YearMin != nil {
		count++
	}
	if c.YearMax != nil {
		count++
	}
	return count
}

// ExtractResult is the transient outcome of the criteria-extraction step.
// It lives only for the duration of one orchestration run.
//
// Invariant: ReadyToSearch implies Criteria is present and satisfies the
// readiness rule; !ReadyToSearch implies ClarificationQuestion is non-empty.
type ExtractResult struct {
	ReadyToSearch         bool
	Criteria              *SearchCriteria
	ClarificationQuestion string
	Summary               string
}

// CarSearchResult is a bounded page of catalog matches plus the total count.
type CarSearchResult struct {
	TotalCount int
	Items      []Car
}
