// Package usecases serves the popular-uses showcase: a static catalog of
// worked bookkeeping examples filterable by category and difficulty.
package usecases

import "github.com/myaibookkeeper/bookkeeper/internal/models"

var catalog = []models.UseCase{
	{
		ID:          "expense-categorization",
		Title:       "Expense Categorization",
		Category:    models.CategoryExpenseTracking,
		Difficulty:  models.DifficultyBeginner,
		TimeSaved:   "2-3 hours/week",
		Description: "Automatically categorize business expenses for accurate record-keeping and tax preparation.",
		Example:     `"I have a $47 receipt from Office Depot for printer paper and folders. How should I categorize this?"`,
		Industry:    "All Industries",
	},
	{
		ID:          "home-office-deduction",
		Title:       "Home Office Deductions",
		Category:    models.CategoryTaxPlanning,
		Difficulty:  models.DifficultyIntermediate,
		TimeSaved:   "5-8 hours during tax season",
		Description: "Calculate and optimize home office deductions for maximum tax savings.",
		Example:     `"My home office is 150 sq ft in a 1200 sq ft apartment. What can I deduct?"`,
		Industry:    "Freelancers & Remote Workers",
	},
	{
		ID:          "vehicle-expense-tracking",
		Title:       "Vehicle Expense Tracking",
		Category:    models.CategoryExpenseTracking,
		Difficulty:  models.DifficultyIntermediate,
		TimeSaved:   "1-2 hours/week",
		Description: "Track mileage and vehicle expenses using the most beneficial method for your business.",
		Example:     `"I drove 320 business miles this month. Standard mileage or actual expenses?"`,
		Industry:    "Service-Based Businesses",
	},
	{
		ID:          "cash-flow-analysis",
		Title:       "Cash Flow Management",
		Category:    models.CategoryReporting,
		Difficulty:  models.DifficultyIntermediate,
		TimeSaved:   "3-4 hours/month",
		Description: "Analyze cash flow patterns and predict future financial needs.",
		Example:     `"Revenue dips every January. How much cash should I hold back in Q4?"`,
		Industry:    "Seasonal Businesses",
	},
	{
		ID:          "quarterly-tax-planning",
		Title:       "Quarterly Tax Estimates",
		Category:    models.CategoryTaxPlanning,
		Difficulty:  models.DifficultyAdvanced,
		TimeSaved:   "4-6 hours/quarter",
		Description: "Calculate and plan quarterly estimated tax payments to avoid penalties.",
		Example:     `"I netted $28,000 this quarter as a sole proprietor. What should I send the IRS?"`,
		Industry:    "Self-Employed Professionals",
	},
	{
		ID:          "inventory-valuation",
		Title:       "Inventory Management",
		Category:    models.CategoryReporting,
		Difficulty:  models.DifficultyAdvanced,
		TimeSaved:   "6-8 hours/month",
		Description: "Track inventory costs and optimize valuation methods for tax purposes.",
		Example:     `"Should I use FIFO or weighted average for my online store's inventory?"`,
		Industry:    "Retail & E-commerce",
	},
	{
		ID:          "business-meal-deductions",
		Title:       "Business Meal Tracking",
		Category:    models.CategoryExpenseTracking,
		Difficulty:  models.DifficultyBeginner,
		TimeSaved:   "1-2 hours/month",
		Description: "Properly document and categorize business meals for tax deductions.",
		Example:     `"Client lunch came to $86 with tip. How much is deductible and what do I need to record?"`,
		Industry:    "Professional Services",
	},
	{
		ID:          "invoice-management",
		Title:       "Invoice Organization",
		Category:    models.CategoryCompliance,
		Difficulty:  models.DifficultyBeginner,
		TimeSaved:   "2-3 hours/week",
		Description: "Keep invoices organized and matched to payments for clean books.",
		Example:     `"Three invoices are 60 days overdue. How do I record them and chase payment?"`,
		Industry:    "Agencies & Contractors",
	},
	{
		ID:          "equipment-depreciation",
		Title:       "Equipment Depreciation",
		Category:    models.CategoryTaxPlanning,
		Difficulty:  models.DifficultyAdvanced,
		TimeSaved:   "3-5 hours/year",
		Description: "Calculate depreciation schedules for business equipment and assets.",
		Example:     `"I bought a $3,200 laptop for work. Section 179 or straight-line depreciation?"`,
		Industry:    "Technology & Consulting",
	},
	{
		ID:          "credit-card-reconciliation",
		Title:       "Credit Card Reconciliation",
		Category:    models.CategoryCompliance,
		Difficulty:  models.DifficultyIntermediate,
		TimeSaved:   "2-4 hours/month",
		Description: "Reconcile business credit card statements and categorize mixed-use expenses.",
		Example:     `"My statement mixes personal and business charges. How do I split and record them?"`,
		Industry:    "Small Business Owners",
	},
	{
		ID:          "profit-loss-analysis",
		Title:       "P&L Statement Review",
		Category:    models.CategoryReporting,
		Difficulty:  models.DifficultyIntermediate,
		TimeSaved:   "4-6 hours/quarter",
		Description: "Analyze profit and loss statements to identify trends and opportunities.",
		Example:     `"Margins dropped 4% this quarter. Which expense lines moved the most?"`,
		Industry:    "Growing Businesses",
	},
	{
		ID:          "sales-tax-compliance",
		Title:       "Sales Tax Management",
		Category:    models.CategoryCompliance,
		Difficulty:  models.DifficultyAdvanced,
		TimeSaved:   "3-4 hours/month",
		Description: "Navigate sales tax requirements across different states and jurisdictions.",
		Example:     `"I started shipping to customers in five new states. Where do I owe sales tax?"`,
		Industry:    "E-commerce & Retail",
	},
}

// All returns the full catalog in display order
func All() []models.UseCase {
	out := make([]models.UseCase, len(catalog))
	copy(out, catalog)
	return out
}

// Filter returns catalog entries matching the given category and difficulty.
// An empty (or "all") value matches everything for that dimension.
func Filter(category, difficulty string) []models.UseCase {
	var out []models.UseCase
	for _, uc := range catalog {
		if category != "" && category != "all" && string(uc.Category) != category {
			continue
		}
		if difficulty != "" && difficulty != "all" && string(uc.Difficulty) != difficulty {
			continue
		}
		out = append(out, uc)
	}
	return out
}

// Get returns a single use case by id
func Get(id string) (models.UseCase, bool) {
	for _, uc := range catalog {
		if uc.ID == id {
			return uc, true
		}
	}
	return models.UseCase{}, false
}
