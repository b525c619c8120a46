package scoring

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"fraudguard/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims the free-text fields that scoring and storage compare on.
func Normalize(tx models.RawTransaction) models.RawTransaction {
	tx.MerchantName = strings.TrimSpace(tx.MerchantName)
	tx.MerchantCategory = strings.TrimSpace(tx.MerchantCategory)
	tx.CardEntryMethod = strings.TrimSpace(tx.CardEntryMethod)
	tx.Location = strings.TrimSpace(tx.Location)
	tx.IPAddress = strings.TrimSpace(tx.IPAddress)
	return tx
}

// Validate checks the fields scoring depends on. It performs no I/O.
func Validate(tx models.RawTransaction) error {
	fields := make(map[string]string)

	if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
		fields["amount"] = "amount must be a finite number"
	}
	tx.MerchantCategory = strings.TrimSpace(tx.MerchantCategory)
	tx.CardEntryMethod = strings.TrimSpace(tx.CardEntryMethod)

	if err := validate.Struct(tx); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate transaction: %w", err)
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = fieldMessage(fe)
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "ipv4":
		return fmt.Sprintf("%s must be a dotted-quad IPv4 address", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
