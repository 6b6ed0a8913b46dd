package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/questbank/backend/internal/models"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// Cyrillic-to-Latin pairs for embossed owner names. Multi-letter
// replacements (ZH, KH, ...) follow the banking transliteration table.
var ownerNameReplacer = strings.NewReplacer(
	"А", "A", "Б", "B", "В", "V",
	"Г", "G", "Д", "D", "Е", "E",
	"Ё", "E", "Ж", "ZH", "З", "Z",
	"И", "I", "Й", "Y", "К", "K",
	"Л", "L", "М", "M", "Н", "N",
	"О", "O", "П", "P", "Р", "R",
	"С", "S", "Т", "T", "У", "U",
	"Ф", "F", "Х", "KH", "Ц", "TS",
	"Ч", "CH", "Ш", "SH", "Щ", "SCH",
	"Ъ", "", "Ы", "Y", "Ь", "",
	"Э", "E", "Ю", "YU", "Я", "YA",
)

// NormalizeOwnerName trims, collapses whitespace, upper-cases and
// transliterates an owner name for embossing.
func NormalizeOwnerName(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	return ownerNameReplacer.Replace(strings.ToUpper(collapsed))
}

// ValidateOwnerName checks the login/name length bounds shared by users and
// card owners.
func ValidateOwnerName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return validationErrorf("User info cannot be null or empty")
	}
	if len(trimmed) < 2 {
		return validationErrorf("User info must be at least 2 characters long")
	}
	if len(trimmed) > 50 {
		return validationErrorf("User info cannot be longer than 50 characters")
	}
	return nil
}

// ValidateAmount parses a transfer amount. Transfer amounts must be strictly
// positive and representable at two decimal places.
func ValidateAmount(amount string) (models.Money, error) {
	m, err := models.ParseMoney(amount)
	if err != nil {
		return models.Money{}, &ValidationError{Reason: err.Error()}
	}
	if !m.IsPositive() {
		return models.Money{}, validationErrorf("Amount must be greater than zero")
	}
	return m, nil
}
