package domain

// Step identifies a stage of the article-creation workflow.
type Step string

const (
	StepUpload         Step = "upload"
	StepTypeSelection  Step = "type-selection"
	StepTitleSelection Step = "title-selection"
	StepContentEditing Step = "content-editing"
	StepImageSelection Step = "image-selection"
	StepFinalization   Step = "finalization"
)

// StepSequence is the fixed forward order of the workflow.
// Navigation only ever moves one position to the right.
var StepSequence = []Step{
	StepUpload,
	StepTypeSelection,
	StepTitleSelection,
	StepContentEditing,
	StepImageSelection,
	StepFinalization,
}

// Index returns the position of the step in StepSequence, or -1 if the
// value is not a known step.
func (s Step) Index() int {
	for i, step := range StepSequence {
		if step == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the step is one of the six known values.
func (s Step) Valid() bool {
	return s.Index() >= 0
}

// Next returns the following step in the sequence. The terminal step
// returns itself; advancing past finalization is a no-op, not an error.
func (s Step) Next() Step {
	i := s.Index()
	if i < 0 || i >= len(StepSequence)-1 {
		return s
	}
	return StepSequence[i+1]
}

// Before reports whether s comes strictly earlier than other in the
// sequence. Unknown steps are never before anything.
func (s Step) Before(other Step) bool {
	si, oi := s.Index(), other.Index()
	return si >= 0 && oi >= 0 && si < oi
}
