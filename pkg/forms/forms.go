// Package forms validates the data collected by the checkout wizard before it
// is handed to the backend. Validators are pure: each pass produces a full
// replacement error map and a boolean summary, never an incremental merge.
package forms

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ContactShippingInfo holds the contact and shipping fields collected on the
// first wizard step.
type ContactShippingInfo struct {
	Email     string `json:"email" validate:"required,simple_email"`
	Phone     string `json:"phone" validate:"required,uk_phone"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	Postcode  string `json:"postcode" validate:"required"`
}

// BillingInfo mirrors the shipping shape. When SameAsShipping is set the
// remaining fields are not required and the backend reuses shipping values.
type BillingInfo struct {
	SameAsShipping bool   `json:"sameAsShipping"`
	FirstName      string `json:"billingFirstName" validate:"required"`
	LastName       string `json:"billingLastName" validate:"required"`
	Address        string `json:"billingAddress" validate:"required"`
	City           string `json:"billingCity" validate:"required"`
	Postcode       string `json:"billingPostcode" validate:"required"`
}

// CardDetails is the in-memory representation produced by the external
// tokenization widget. The orchestrator holds it only for the duration of the
// payment step.
type CardDetails struct {
	Bin         string
	Brand       string
	Number      string
	LastFour    string
	ExpiryMonth string
	ExpiryYear  string
	CVC         string
	Name        string
	IsValid     bool
	IsComplete  bool
}

var (
	simpleEmailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	ukPhonePattern     = regexp.MustCompile(`^0\d{9,10}$`)
	nonDigitPattern    = regexp.MustCompile(`\D`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	must(v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return simpleEmailPattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("uk_phone", func(fl validator.FieldLevel) bool {
		digits := nonDigitPattern.ReplaceAllString(fl.Field().String(), "")
		return ukPhonePattern.MatchString(digits)
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

var fieldLabels = map[string]string{
	"email":            "Email",
	"phone":            "Phone number",
	"firstName":        "First name",
	"lastName":         "Last name",
	"address":          "Address",
	"city":             "City",
	"postcode":         "Postcode",
	"billingFirstName": "Billing first name",
	"billingLastName":  "Billing last name",
	"billingAddress":   "Billing address",
	"billingCity":      "Billing city",
	"billingPostcode":  "Billing postcode",
}

// ValidateContact checks the contact/shipping step. The returned map replaces
// any previous error state wholesale.
func ValidateContact(info ContactShippingInfo) (map[string]string, bool) {
	errs := collectErrors(trimContact(info))
	return errs, len(errs) == 0
}

// ValidateBilling checks the billing section. With SameAsShipping set no
// billing field is required.
func ValidateBilling(info BillingInfo) (map[string]string, bool) {
	if info.SameAsShipping {
		return map[string]string{}, true
	}
	errs := collectErrors(trimBilling(info))
	return errs, len(errs) == 0
}

// ValidatePayment checks the payment step. An invalid card surfaces on the
// nameOnCard field, matching where the message renders.
func ValidatePayment(nameOnCard string, card CardDetails) (map[string]string, bool) {
	errs := map[string]string{}
	if strings.TrimSpace(nameOnCard) == "" {
		errs["nameOnCard"] = "Name on card is required"
	}
	if !card.IsValid {
		errs["nameOnCard"] = "Please enter valid card details"
	}
	return errs, len(errs) == 0
}

// ContactComplete reports whether every contact/shipping field has a value.
// It gates whether the continue action is enabled, separately from validation
// messaging.
func ContactComplete(info ContactShippingInfo) bool {
	trimmed := trimContact(info)
	return trimmed.Email != "" && trimmed.Phone != "" && trimmed.FirstName != "" &&
		trimmed.LastName != "" && trimmed.Address != "" && trimmed.City != "" &&
		trimmed.Postcode != ""
}

// PaymentComplete reports whether the submit action should be enabled. A card
// can be valid but not yet complete, so this is distinct from ValidatePayment.
func PaymentComplete(nameOnCard string, card CardDetails) bool {
	return strings.TrimSpace(nameOnCard) != "" && card.IsValid && card.IsComplete
}

func collectErrors(dest any) map[string]string {
	errs := map[string]string{}
	err := validate.Struct(dest)
	if err == nil {
		return errs
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = "is invalid"
		return errs
	}
	for _, fieldErr := range verrs {
		errs[fieldErr.Field()] = validationMessage(fieldErr)
	}
	return errs
}

func validationMessage(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	}
	return label + " is invalid"
}

func trimContact(info ContactShippingInfo) ContactShippingInfo {
	info.Email = strings.TrimSpace(info.Email)
	info.Phone = strings.TrimSpace(info.Phone)
	info.FirstName = strings.TrimSpace(info.FirstName)
	info.LastName = strings.TrimSpace(info.LastName)
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	info.Postcode = strings.TrimSpace(info.Postcode)
	return info
}

func trimBilling(info BillingInfo) BillingInfo {
	info.FirstName = strings.TrimSpace(info.FirstName)
	info.LastName = strings.TrimSpace(info.LastName)
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	info.Postcode = strings.TrimSpace(info.Postcode)
	return info
}
