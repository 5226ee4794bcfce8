package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Pairing errors
	ErrInvalidEndpoint = fmt.Errorf("invalid endpoint")
	ErrInvalidPayload  = fmt.Errorf("unreadable pairing payload")
	ErrTimeout         = fmt.Errorf("connection timed out")
	ErrRejected        = fmt.Errorf("connection rejected")
	ErrInvalidResponse = fmt.Errorf("received an invalid response while connecting")
	ErrTransport       = fmt.Errorf("request failed")

	// Session errors
	ErrNotConnected      = fmt.Errorf("not connected")
	ErrAlreadyConnecting = fmt.Errorf("a connection attempt is already in progress")

	// Storage errors
	ErrStorage = fmt.Errorf("storage operation failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
