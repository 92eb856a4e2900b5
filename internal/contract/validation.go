package contract

import (
	"errors"
	"fmt"

	"abo/pkg/models"
)

// ErrEndBeforeStart is reported when a contract ends before it starts.
var ErrEndBeforeStart = errors.New("end date precedes start date")

// ValidationError describes one missing or inconsistent field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

// Validate checks that the contract is complete enough to be billed. All
// problems are returned joined; nil means valid.
func Validate(c *models.Contract) error {
	if c == nil {
		return missing("contract")
	}

	var errs []error
	if c.Customer == nil {
		errs = append(errs, missing("customer"))
	}
	if c.Subscription == nil {
		errs = append(errs, missing("subscription"))
	}
	if c.BillingAddress == nil {
		errs = append(errs, missing("billing_address"))
	}
	if c.ShippingAddress == nil {
		errs = append(errs, missing("shipping_address"))
	}
	if c.StartDate.IsZero() {
		errs = append(errs, missing("start_date"))
	}
	if c.Subscription != nil && c.Subscription.ValueChangeable && c.Value.IsZero() {
		errs = append(errs, &ValidationError{Field: "value", Value: c.Value.String(), Message: "must not be zero for a changeable subscription value"})
	}
	if c.PaymentType == models.PaymentDirectWithdrawal && c.BankAccount == nil {
		errs = append(errs, &ValidationError{Field: "bank_account", Message: "is required for direct withdrawal"})
	}
	if c.EndDate != nil && !c.StartDate.IsZero() && c.EndDate.Before(c.StartDate) {
		errs = append(errs, &ValidationError{
			Field:   "end_date",
			Value:   c.EndDate.Format(models.DateLayout),
			Message: "must not precede the start date",
			Err:     ErrEndBeforeStart,
		})
	}
	return errors.Join(errs...)
}

// IsValid reports whether Validate finds no problem.
func IsValid(c *models.Contract) bool {
	return Validate(c) == nil
}

// ValidateAddress checks that an address can be printed on a letter.
func ValidateAddress(a *models.Address) error {
	if a == nil {
		return missing("address")
	}
	var errs []error
	if a.Recipient == "" {
		errs = append(errs, missing("recipient"))
	}
	if a.Street == "" {
		errs = append(errs, missing("street"))
	}
	if a.Postcode == "" {
		errs = append(errs, missing("postcode"))
	}
	if a.City == "" {
		errs = append(errs, missing("city"))
	}
	return errors.Join(errs...)
}

// ValidateCustomer checks the customer and all of its addresses.
func ValidateCustomer(customer *models.Customer) error {
	if customer == nil {
		return missing("customer")
	}
	var errs []error
	if customer.Name == "" {
		errs = append(errs, missing("name"))
	}
	for i, a := range customer.Addresses {
		if err := ValidateAddress(a); err != nil {
			errs = append(errs, fmt.Errorf("address %d: %w", i+1, err))
		}
	}
	for i, b := range customer.BankAccounts {
		if b.IBAN == "" {
			errs = append(errs, fmt.Errorf("bank account %d: %w", i+1, missing("iban")))
		}
	}
	return errors.Join(errs...)
}
