package dto

import apperrors "github.com/spec-kit/case-service/pkg/util"

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// Success wraps data in a SUCCESS envelope.
func Success(data any) Envelope {
	return Envelope{Status: apperrors.StatusSuccess, Data: data}
}

// SuccessMessage is Success with a human readable message.
func SuccessMessage(message string, data any) Envelope {
	return Envelope{Status: apperrors.StatusSuccess, Message: message, Data: data}
}

// Failure renders a DomainError. Field level details travel in data.
func Failure(err *apperrors.DomainError) Envelope {
	env := Envelope{Status: err.EnvelopeStatus(), Code: err.Code, Message: err.Message}
	if len(err.Details) > 0 {
		env.Data = err.Details
	}
	return env
}
