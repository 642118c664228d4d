package engine

// StateHistory remembers the model digests observed during one run.
//
// A digest that reappears means the graph has returned to a state it was in
// before. Because Simulate is deterministic for a given graph and step
// counter, step-independent models then repeat forever from that point.
//
// StateHistory is not safe for concurrent use; the engine owns one per run.
type StateHistory struct {
	seen map[string]int64 // digest -> first step it was observed after
	last string
}

// NewStateHistory creates an empty history.
func NewStateHistory() *StateHistory {
	return &StateHistory{seen: make(map[string]int64)}
}

// Observation describes how a digest relates to the run so far.
type Observation struct {
	// Unchanged is true when the digest equals the previous one.
	Unchanged bool

	// Repeat is true when the digest was observed before in this run.
	Repeat bool

	// FirstSeen is the step after which the digest was first observed.
	// Step 0 is the state the run started from.
	FirstSeen int64
}

// Observe records the digest reached after step and reports whether it was
// seen before. An empty digest (the model could not be fingerprinted) is
// never a repeat.
func (h *StateHistory) Observe(step int64, digest string) Observation {
	if digest == "" {
		h.last = ""
		return Observation{}
	}

	obs := Observation{Unchanged: digest == h.last}
	if first, ok := h.seen[digest]; ok {
		obs.Repeat = true
		obs.FirstSeen = first
	} else {
		h.seen[digest] = step
		obs.FirstSeen = step
	}
	h.last = digest
	return obs
}

// Len returns the number of distinct digests observed.
func (h *StateHistory) Len() int {
	return len(h.seen)
}
