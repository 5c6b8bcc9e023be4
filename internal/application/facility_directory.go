package application

import "context"

// DirectoryEvaluator is one roster member returned by a facility lookup.
type DirectoryEvaluator struct {
	Name  string
	Email string
}

// DirectoryFacility is the external party resolved from a reference URL,
// together with the evaluator roster assigned to it.
type DirectoryFacility struct {
	Name         string
	ContactName  string
	ContactEmail string
	Evaluators   []DirectoryEvaluator
}

// FacilityDirectory resolves a facility reference URL into the facility
// snapshot and evaluator roster used to draft a session.
type FacilityDirectory interface {
	LookupFacility(ctx context.Context, referenceURL string) (DirectoryFacility, error)
}
