package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// DetailEnvelope is the legacy error shape the embedded widget parses on the
// checkout path.
type DetailEnvelope struct {
	Detail string `json:"detail"`
}
