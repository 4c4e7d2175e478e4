package domain

// EmptyResultText is shown when the provider answered without usable content.
const EmptyResultText = "No response received. Try again."

// EmptyInputText is shown when the submitted text is blank.
const EmptyInputText = "Please enter a query to proceed."

// OutcomeKind tags a CompletionOutcome.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeEmpty   OutcomeKind = "empty"
	OutcomeFailure OutcomeKind = "failure"
)

// CompletionOutcome is the normalized result of one provider call.
// Text is set for OutcomeSuccess and Message for OutcomeFailure.
type CompletionOutcome struct {
	Kind    OutcomeKind `json:"kind"`
	Text    string      `json:"text,omitempty"`
	Message string      `json:"message,omitempty"`
}

func Success(text string) CompletionOutcome {
	return CompletionOutcome{Kind: OutcomeSuccess, Text: text}
}

func Empty() CompletionOutcome {
	return CompletionOutcome{Kind: OutcomeEmpty}
}

func Failure(message string) CompletionOutcome {
	return CompletionOutcome{Kind: OutcomeFailure, Message: message}
}

// PresentationKind tags a PresentationOutcome.
type PresentationKind string

const (
	PresentationText               PresentationKind = "text"
	PresentationError              PresentationKind = "error"
	PresentationValidationWarning  PresentationKind = "validation_warning"
	PresentationConfigurationError PresentationKind = "configuration_error"
)

// PresentationOutcome is what the presentation layer renders for one submission.
type PresentationOutcome struct {
	Kind    PresentationKind `json:"kind"`
	Text    string           `json:"text,omitempty"`
	Message string           `json:"message,omitempty"`
	// Cached is true when the outcome was served without calling the provider.
	Cached bool `json:"cached"`
}

func Text(text string) PresentationOutcome {
	return PresentationOutcome{Kind: PresentationText, Text: text}
}

func Error(message string) PresentationOutcome {
	return PresentationOutcome{Kind: PresentationError, Message: message}
}

func ValidationWarning(message string) PresentationOutcome {
	return PresentationOutcome{Kind: PresentationValidationWarning, Message: message}
}

func ConfigurationError(message string) PresentationOutcome {
	return PresentationOutcome{Kind: PresentationConfigurationError, Message: message}
}

// Present translates a completion outcome into what the user sees.
func Present(o CompletionOutcome) PresentationOutcome {
	switch o.Kind {
	case OutcomeSuccess:
		return Text(o.Text)
	case OutcomeEmpty:
		return Text(EmptyResultText)
	case OutcomeFailure:
		return Error(o.Message)
	default:
		return Error("unknown completion outcome: " + string(o.Kind))
	}
}
