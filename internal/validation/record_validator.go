package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"mktyield/pkg/contracts/domain"
)

// RecordValidator applies the struct tags on domain types before rows are staged
type RecordValidator struct {
	validate *validator.Validate
}

// NewRecordValidator creates a validator; required on time fields rejects the zero time
func NewRecordValidator() *RecordValidator {
	return &RecordValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateRecord checks a quote record
func (r *RecordValidator) ValidateRecord(record domain.QuoteRecord) error {
	if err := r.validate.Struct(record); err != nil {
		return describe(err)
	}
	return nil
}

// ValidateSnapshot checks the run-wide values before extraction starts
func (r *RecordValidator) ValidateSnapshot(snap domain.Snapshot) error {
	if err := r.validate.Struct(snap); err != nil {
		return describe(err)
	}
	if snap.PrevDate.After(snap.AsOfDate) {
		return fmt.Errorf("previous business day %s is after as-of date %s",
			snap.PrevDate.Format("2006-01-02"), snap.AsOfDate.Format("2006-01-02"))
	}
	return nil
}

// describe flattens validator field errors into one readable error
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}
