package fitsync

import "errors"

// Envelope is the serializable {data, error} result of an operation.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody describes a failed operation.
type ErrorBody struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// NewEnvelope wraps an operation's result. Data is dropped when err is set.
func NewEnvelope(data any, err error) Envelope {
	if err == nil {
		return Envelope{Data: data}
	}
	body := &ErrorBody{Kind: KindOf(err), Message: err.Error()}
	var re *RemoteError
	if errors.As(err, &re) {
		body.Message = re.Message
		body.Code = re.Code
		body.Details = re.Details
		body.Hint = re.Hint
	}
	return Envelope{Error: body}
}
