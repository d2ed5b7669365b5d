package forms

import "testing"

func validContact() ContactShippingInfo {
	return ContactShippingInfo{
		Email:     "jane@example.com",
		Phone:     "07911123456",
		FirstName: "Jane",
		LastName:  "Doe",
		Address:   "12 High Street",
		City:      "London",
		Postcode:  "SW1A 1AA",
	}
}

func TestValidateContactAllFieldsMissing(t *testing.T) {
	errs, ok := ValidateContact(ContactShippingInfo{})
	if ok {
		t.Fatalf("expected validation to fail")
	}
	if len(errs) != 7 {
		t.Fatalf("expected 7 errors, got %d: %v", len(errs), errs)
	}
	expected := map[string]string{
		"email":     "Email is required",
		"phone":     "Phone number is required",
		"firstName": "First name is required",
		"lastName":  "Last name is required",
		"address":   "Address is required",
		"city":      "City is required",
		"postcode":  "Postcode is required",
	}
	for field, msg := range expected {
		if errs[field] != msg {
			t.Fatalf("field %s: expected %q, got %q", field, msg, errs[field])
		}
	}
}

func TestValidateContactValid(t *testing.T) {
	errs, ok := ValidateContact(validContact())
	if !ok {
		t.Fatalf("expected valid contact, got errors: %v", errs)
	}
	if len(errs) != 0 {
		t.Fatalf("expected empty error map, got %v", errs)
	}
}

func TestValidateContactEmailFormats(t *testing.T) {
	cases := []struct {
		email string
		valid bool
	}{
		{"jane@example.com", true},
		{"a@b.co", true},
		{"no-at-sign.com", false},
		{"missing@domain", false},
		{"spaces in@mail.com", false},
	}
	for _, tc := range cases {
		info := validContact()
		info.Email = tc.email
		errs, ok := ValidateContact(info)
		if ok != tc.valid {
			t.Fatalf("email %q: expected valid=%v, got errors %v", tc.email, tc.valid, errs)
		}
		if !tc.valid && errs["email"] != "Email is invalid" {
			t.Fatalf("email %q: expected invalid message, got %q", tc.email, errs["email"])
		}
	}
}

func TestValidateContactPhoneFormats(t *testing.T) {
	cases := []struct {
		phone string
		valid bool
	}{
		{"07911123456", true},
		{"0791112345", true},
		{"07911 123 456", true},
		{"(0791) 112-3456", true},
		{"791112345", false},
		{"0791", false},
		{"079111234567", false},
	}
	for _, tc := range cases {
		info := validContact()
		info.Phone = tc.phone
		errs, ok := ValidateContact(info)
		if ok != tc.valid {
			t.Fatalf("phone %q: expected valid=%v, got errors %v", tc.phone, tc.valid, errs)
		}
	}
}

func TestValidateContactTrimsWhitespace(t *testing.T) {
	info := validContact()
	info.FirstName = "   "
	errs, ok := ValidateContact(info)
	if ok {
		t.Fatalf("expected whitespace-only first name to fail")
	}
	if errs["firstName"] != "First name is required" {
		t.Fatalf("unexpected message %q", errs["firstName"])
	}
}

func TestValidateBillingSameAsShipping(t *testing.T) {
	errs, ok := ValidateBilling(BillingInfo{SameAsShipping: true})
	if !ok {
		t.Fatalf("same-as-shipping billing must always validate, got %v", errs)
	}
}

func TestValidateBillingSeparateAddress(t *testing.T) {
	errs, ok := ValidateBilling(BillingInfo{SameAsShipping: false})
	if ok {
		t.Fatalf("expected separate billing to require fields")
	}
	if errs["billingPostcode"] != "Billing postcode is required" {
		t.Fatalf("unexpected message %q", errs["billingPostcode"])
	}

	errs, ok = ValidateBilling(BillingInfo{
		FirstName: "Jane",
		LastName:  "Doe",
		Address:   "1 Side Road",
		City:      "Leeds",
		Postcode:  "LS1 1AA",
	})
	if !ok {
		t.Fatalf("expected complete billing to validate, got %v", errs)
	}
}

func TestValidatePayment(t *testing.T) {
	card := CardDetails{IsValid: true, IsComplete: true}

	if errs, ok := ValidatePayment("Jane Doe", card); !ok {
		t.Fatalf("expected valid payment, got %v", errs)
	}

	errs, ok := ValidatePayment("", card)
	if ok {
		t.Fatalf("expected missing name to fail")
	}
	if errs["nameOnCard"] != "Name on card is required" {
		t.Fatalf("unexpected message %q", errs["nameOnCard"])
	}

	// An invalid card overrides the missing-name message on the same field.
	errs, ok = ValidatePayment("", CardDetails{})
	if ok {
		t.Fatalf("expected invalid card to fail")
	}
	if errs["nameOnCard"] != "Please enter valid card details" {
		t.Fatalf("unexpected message %q", errs["nameOnCard"])
	}
}

func TestContactComplete(t *testing.T) {
	if ContactComplete(ContactShippingInfo{}) {
		t.Fatalf("empty contact must not be complete")
	}
	if !ContactComplete(validContact()) {
		t.Fatalf("filled contact must be complete")
	}
	partial := validContact()
	partial.City = " "
	if ContactComplete(partial) {
		t.Fatalf("whitespace-only field must not count as complete")
	}
}

func TestPaymentComplete(t *testing.T) {
	if PaymentComplete("Jane", CardDetails{IsValid: true}) {
		t.Fatalf("valid but incomplete card must not be submit-ready")
	}
	if !PaymentComplete("Jane", CardDetails{IsValid: true, IsComplete: true}) {
		t.Fatalf("valid complete card with name must be submit-ready")
	}
	if PaymentComplete("", CardDetails{IsValid: true, IsComplete: true}) {
		t.Fatalf("missing name must not be submit-ready")
	}
}
