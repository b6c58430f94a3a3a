package models

// UseCaseCategory groups entries in the popular-uses showcase
type UseCaseCategory string

const (
	CategoryExpenseTracking UseCaseCategory = "expense-tracking"
	CategoryTaxPlanning     UseCaseCategory = "tax-planning"
	CategoryReporting       UseCaseCategory = "reporting"
	CategoryCompliance      UseCaseCategory = "compliance"
	CategoryGrowth          UseCaseCategory = "growth"
)

// UseCaseDifficulty rates how much bookkeeping background an entry assumes
type UseCaseDifficulty string

const (
	DifficultyBeginner     UseCaseDifficulty = "beginner"
	DifficultyIntermediate UseCaseDifficulty = "intermediate"
	DifficultyAdvanced     UseCaseDifficulty = "advanced"
)

// UseCase is one entry of the popular-uses showcase: a worked example of
// what the bookkeeping assistant can do, filterable by category and
// difficulty.
type UseCase struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Example     string            `json:"example"`
	Category    UseCaseCategory   `json:"category"`
	Difficulty  UseCaseDifficulty `json:"difficulty"`
	TimeSaved   string            `json:"timeSaved"`
	Industry    string            `json:"industry,omitempty"`
}
