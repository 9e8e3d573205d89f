package model

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims are JWT claims for staff operating the program
type OperatorClaims struct {
	OperatorID string `json:"operatorId"`
	jwt.RegisteredClaims
}

// ParticipantClaims are JWT claims for a participant's own program
type ParticipantClaims struct {
	ParticipantID string `json:"participantId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for operator login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token      string `json:"token"`
	OperatorID string `json:"operatorId"`
}

// EnrollmentResponse is returned when a participant program is created
type EnrollmentResponse struct {
	ParticipantID string              `json:"participantId"`
	Token         string              `json:"token"`
	Program       *ParticipantProgram `json:"program"`
}
