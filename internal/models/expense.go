package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseCategory is a fixed classification for expense records.
type ExpenseCategory string

const (
	ExpenseCategoryAdvertising  ExpenseCategory = "advertising"
	ExpenseCategorySoftware     ExpenseCategory = "software"
	ExpenseCategoryOffice       ExpenseCategory = "office"
	ExpenseCategoryEquipment    ExpenseCategory = "equipment"
	ExpenseCategoryTravel       ExpenseCategory = "travel"
	ExpenseCategoryMeals        ExpenseCategory = "meals"
	ExpenseCategoryProfessional ExpenseCategory = "professional"
	ExpenseCategoryUtilities    ExpenseCategory = "utilities"
	ExpenseCategoryRent         ExpenseCategory = "rent"
	ExpenseCategoryInsurance    ExpenseCategory = "insurance"
	ExpenseCategoryTaxes        ExpenseCategory = "taxes"
	ExpenseCategoryShipping     ExpenseCategory = "shipping"
	ExpenseCategoryContractors  ExpenseCategory = "contractors"
	ExpenseCategoryEducation    ExpenseCategory = "education"
	ExpenseCategoryOther        ExpenseCategory = "other"
)

// ExpenseCategoryInfo describes one category for catalog listings.
type ExpenseCategoryInfo struct {
	ID   ExpenseCategory `json:"id"`
	Name string          `json:"name"`
}

// ExpenseCategories returns the fixed category catalog in display order.
func ExpenseCategories() []ExpenseCategoryInfo {
	return []ExpenseCategoryInfo{
		{ExpenseCategoryAdvertising, "Advertising & Marketing"},
		{ExpenseCategorySoftware, "Software & Subscriptions"},
		{ExpenseCategoryOffice, "Office Supplies"},
		{ExpenseCategoryEquipment, "Equipment"},
		{ExpenseCategoryTravel, "Travel"},
		{ExpenseCategoryMeals, "Meals & Entertainment"},
		{ExpenseCategoryProfessional, "Professional Services"},
		{ExpenseCategoryUtilities, "Utilities"},
		{ExpenseCategoryRent, "Rent & Lease"},
		{ExpenseCategoryInsurance, "Insurance"},
		{ExpenseCategoryTaxes, "Taxes & Licenses"},
		{ExpenseCategoryShipping, "Shipping & Delivery"},
		{ExpenseCategoryContractors, "Contractors"},
		{ExpenseCategoryEducation, "Education & Training"},
		{ExpenseCategoryOther, "Other"},
	}
}

// ValidExpenseCategory reports whether c is a known category.
func ValidExpenseCategory(c ExpenseCategory) bool {
	for _, info := range ExpenseCategories() {
		if info.ID == c {
			return true
		}
	}
	return false
}

// Expense is a cost record, optionally tied to a client or invoice for
// billable pass-through.
type Expense struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      ExpenseCategory `json:"category"`
	Date          time.Time       `json:"date"`
	ClientID      *uuid.UUID      `json:"client_id,omitempty"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Billable      bool            `json:"billable"`
	Reimbursable  bool            `json:"reimbursable"`
	TaxDeductible bool            `json:"tax_deductible"`
	Vendor        string          `json:"vendor,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Currency      string          `json:"currency"`
	ReceiptURL    string          `json:"receipt_url,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewExpense creates an Expense. Tax deductibility defaults to true.
func NewExpense(userID uuid.UUID, description string, amount decimal.Decimal, category ExpenseCategory, date time.Time) *Expense {
	now := time.Now().UTC()
	return &Expense{
		ID:            uuid.New(),
		UserID:        userID,
		Description:   description,
		Amount:        amount,
		Category:      category,
		Date:          date,
		TaxDeductible: true,
		Currency:      "USD",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CategoryTotal is one row of a category rollup.
type CategoryTotal struct {
	Category ExpenseCategory `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// ExpenseSummary aggregates spending over a period.
type ExpenseSummary struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Categories []CategoryTotal `json:"categories"`
}

// CreateExpenseRequest is the request body for creating an expense.
type CreateExpenseRequest struct {
	Description   string          `json:"description" binding:"required,min=1"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Category      ExpenseCategory `json:"category" binding:"required"`
	Date          time.Time       `json:"date" binding:"required"`
	ClientID      *uuid.UUID      `json:"client_id,omitempty"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Billable      bool            `json:"billable"`
	Reimbursable  bool            `json:"reimbursable"`
	TaxDeductible *bool           `json:"tax_deductible,omitempty"`
	Vendor        string          `json:"vendor,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	ReceiptURL    string          `json:"receipt_url,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// UpdateExpenseRequest is the request body for updating an expense.
type UpdateExpenseRequest struct {
	Description   *string          `json:"description,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Category      *ExpenseCategory `json:"category,omitempty"`
	Date          *time.Time       `json:"date,omitempty"`
	ClientID      *uuid.UUID       `json:"client_id,omitempty"`
	InvoiceID     *uuid.UUID       `json:"invoice_id,omitempty"`
	Billable      *bool            `json:"billable,omitempty"`
	Reimbursable  *bool            `json:"reimbursable,omitempty"`
	TaxDeductible *bool            `json:"tax_deductible,omitempty"`
	Vendor        *string          `json:"vendor,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	ReceiptURL    *string          `json:"receipt_url,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}
