package entities

import "errors"

// Domain errors
var (
	// Channel errors
	ErrUnknownChannel  = errors.New("unknown channel")
	ErrChannelInactive = errors.New("channel is inactive")

	// Transmission errors
	ErrTransmissionNotFound = errors.New("transmission not found")
	ErrStatusRegression     = errors.New("transmission status cannot move backwards")

	// Policy errors
	ErrPolicyNotFound    = errors.New("policy not found")
	ErrPolicyEvaluation  = errors.New("policy evaluation failed")
	ErrInvalidPolicyMode = errors.New("invalid policy mode")

	// Execution errors
	ErrExecutionNotFound      = errors.New("policy execution not found")
	ErrInvalidStateTransition = errors.New("invalid execution state transition")
	ErrActionExecutionFault   = errors.New("action execution fault")

	// Collaborator errors
	ErrCollaboratorTimeout = errors.New("collaborator call timed out")

	// Realtime errors
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRoom     = errors.New("invalid room identifier")
	ErrAuthentication  = errors.New("authentication failed")
	ErrAuthorization   = errors.New("authorization failed")
)
