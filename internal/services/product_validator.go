package services

import (
	"strings"
	"unicode/utf8"

	"github.com/shopdesk/catalog-service/internal/extract"
	"github.com/shopdesk/catalog-service/internal/models"
)

const (
	maxProductNameRunes = 255
	maxSKURunes         = 64
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ValidationWarning represents a non-critical issue
type ValidationWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating one product.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
}

// Error joins the error messages, for logging and API responses.
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// ProductValidator checks products before they are stored, whatever their
// source (manual entry, spreadsheet or OCR).
type ProductValidator struct{}

// NewProductValidator creates a validator.
func NewProductValidator() *ProductValidator {
	return &ProductValidator{}
}

// Validate normalizes p in place (trimmed text, defaulted category) and
// reports what is wrong with it.
func (v *ProductValidator) Validate(p *models.Product) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.TrimSpace(p.Category)
	p.SKU = strings.TrimSpace(p.SKU)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	if p.Category == "" {
		p.Category = string(extract.CategoryUncategorized)
	}

	v.validateName(p, result)
	v.validatePrice(p, result)
	v.validateSKU(p, result)
	v.validateCategory(p, result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *ProductValidator) validateName(p *models.Product, result *ValidationResult) {
	switch {
	case p.Name == "":
		result.Errors = append(result.Errors, ValidationError{
			Field:   "name",
			Code:    "name_required",
			Message: "name is required",
		})
	case utf8.RuneCountInString(p.Name) > maxProductNameRunes:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "name",
			Code:    "name_too_long",
			Message: "name must be at most 255 characters",
		})
	}
}

func (v *ProductValidator) validatePrice(p *models.Product, result *ValidationResult) {
	if !p.Price.IsPositive() {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "price",
			Code:    "price_not_positive",
			Message: "price must be greater than zero",
		})
		return
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "price",
			Code:    "price_rounded",
			Message: "price has more than two decimals and was rounded",
		})
		p.Price = models.NewMoney(p.Price.Round(2))
	}
}

func (v *ProductValidator) validateSKU(p *models.Product, result *ValidationResult) {
	if utf8.RuneCountInString(p.SKU) > maxSKURunes {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "sku",
			Code:    "sku_too_long",
			Message: "sku must be at most 64 characters",
		})
	}
}

// validateCategory only warns: spreadsheet imports may carry any label.
func (v *ProductValidator) validateCategory(p *models.Product, result *ValidationResult) {
	if !extract.IsKnownCategory(p.Category) {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "category",
			Code:    "category_unknown",
			Message: "category is not one of the built-in categories: " + p.Category,
		})
	}
}

// Filter validates every product and splits them into the valid ones and the
// per-row results of the rejected ones, keyed by input position.
func (v *ProductValidator) Filter(products []models.Product) ([]models.Product, map[int]*ValidationResult) {
	valid := make([]models.Product, 0, len(products))
	rejected := map[int]*ValidationResult{}
	for i := range products {
		p := products[i]
		if res := v.Validate(&p); res.Valid {
			valid = append(valid, p)
		} else {
			rejected[i] = res
		}
	}
	return valid, rejected
}

// ValidateUpdate applies the same rules to the fields a partial update sets.
func (v *ProductValidator) ValidateUpdate(u *models.ProductUpdate) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	p := models.Product{Name: "-", Price: models.MustMoney("1"), Category: string(extract.CategoryUncategorized)}
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
		u.Name = &p.Name
		v.validateName(&p, result)
	}
	if u.Price != nil {
		p.Price = *u.Price
		v.validatePrice(&p, result)
		u.Price = &p.Price
	}
	if u.SKU != nil {
		p.SKU = strings.TrimSpace(*u.SKU)
		u.SKU = &p.SKU
		v.validateSKU(&p, result)
	}
	if u.Category != nil {
		p.Category = strings.TrimSpace(*u.Category)
		if p.Category == "" {
			p.Category = string(extract.CategoryUncategorized)
		}
		u.Category = &p.Category
		v.validateCategory(&p, result)
	}

	result.Valid = len(result.Errors) == 0
	return result
}
