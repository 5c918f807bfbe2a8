package dto

import "encoding/json"

// VerifyInput keeps raw values so a wrong JSON type can be reported per field.
type VerifyInput struct {
	Otp   json.RawMessage `json:"otp"`
	Reset json.RawMessage `json:"reset"`
}

type OtpOutput struct {
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	ExpiryTime int64   `json:"expiryTime"`
}

type OtpStatusOutput struct {
	ExpiryTime int64  `json:"expiryTime"`
	Message    string `json:"message"`
	Attempts   int    `json:"attempts"`
}
