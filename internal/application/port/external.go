package port

import "context"

// ScreeningSubject identifies the person screened against restricted lists
type ScreeningSubject struct {
	FullName   string
	FatherName string
	NationalID string
}

// ScreeningOutcome is the verdict of one sanction screening
type ScreeningOutcome struct {
	Flagged bool
	// Details describes the matched listing when Flagged
	Details string
}

// SanctionScreener checks a subject against sanction lists.
// Implementations honour ctx cancellation and deadlines.
type SanctionScreener interface {
	Screen(ctx context.Context, subject ScreeningSubject) (ScreeningOutcome, error)
}
