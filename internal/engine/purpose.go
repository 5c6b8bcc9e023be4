package engine

// PurposeSet holds the closed set of visit purpose labels accepted by a
// deployment. The labels themselves are configuration, not engine policy.
type PurposeSet map[string]struct{}

// NewPurposeSet builds a purpose set from the provided labels. Empty labels
// are ignored.
func NewPurposeSet(labels ...string) PurposeSet {
	set := make(PurposeSet, len(labels))
	for _, label := range labels {
		if label == "" {
			continue
		}
		set[label] = struct{}{}
	}
	return set
}

// Contains reports whether the label is part of the set.
func (p PurposeSet) Contains(label string) bool {
	_, ok := p[label]
	return ok
}
