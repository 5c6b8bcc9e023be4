package engine

import "strings"

// Vote is the canonical answer token recorded for an evaluator on a candidate slot.
type Vote string

const (
	// VoteUnset indicates the evaluator has not cast a recognizable vote for the slot.
	VoteUnset Vote = ""
	// VoteApprove indicates the slot works for the evaluator.
	VoteApprove Vote = "O"
	// VoteMaybe indicates the evaluator could make the slot work if needed.
	VoteMaybe Vote = "M"
	// VoteReject indicates the slot does not work for the evaluator.
	VoteReject Vote = "X"
)

// Display glyphs accepted as input synonyms. The engine never emits these;
// its output alphabet is always the canonical tokens.
const (
	glyphApprove = "○"
	glyphMaybe   = "△"
	glyphReject  = "x"
)

// NormalizeVote maps an externally sourced answer value to a canonical vote
// token. It accepts canonical tokens in any case, the three display glyphs,
// and surrounding whitespace. Anything else degrades to VoteUnset rather
// than failing, so one bad cell cannot abort a batch update.
func NormalizeVote(raw string) Vote {
	s := strings.TrimSpace(raw)
	switch s {
	case glyphApprove:
		return VoteApprove
	case glyphMaybe:
		return VoteMaybe
	case glyphReject:
		return VoteReject
	}
	switch strings.ToUpper(s) {
	case string(VoteApprove):
		return VoteApprove
	case string(VoteMaybe):
		return VoteMaybe
	case string(VoteReject):
		return VoteReject
	}
	return VoteUnset
}

// Valid reports whether the vote is one of the canonical tokens, including unset.
func (v Vote) Valid() bool {
	switch v {
	case VoteUnset, VoteApprove, VoteMaybe, VoteReject:
		return true
	}
	return false
}
