package enums

// OnboardingStep is the explicit per-user conversation state. Transitions are
// selected by the current step value, never by dynamically installed handlers.
type OnboardingStep string

const (
	StepNone           OnboardingStep = ""
	StepLocationMethod OnboardingStep = "awaiting_location"
	StepCity           OnboardingStep = "awaiting_city"
	StepGeo            OnboardingStep = "awaiting_geo"
	StepAge            OnboardingStep = "awaiting_age"
	StepGender         OnboardingStep = "awaiting_gender"
	StepInterests      OnboardingStep = "awaiting_interests"
	StepPhoto          OnboardingStep = "awaiting_photo"
)
