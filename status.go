package gudavision

import "fmt"

// Status is a vendor-neutral runtime status code. Values line up with the
// cudaError_t/hipError_t codes they stand for.
type Status int

const (
	Success                    Status = 0
	ErrorInvalidValue          Status = 1
	ErrorMemoryAllocation      Status = 2
	ErrorInitializationError   Status = 3
	ErrorInvalidConfiguration  Status = 9
	ErrorInvalidDevicePointer  Status = 17
	ErrorInvalidResourceHandle Status = 400
	ErrorNotReady              Status = 600
	ErrorLaunchFailure         Status = 719
)

var statusTokens = map[Status]string{
	Success:                    "Success",
	ErrorInvalidValue:          "ErrorInvalidValue",
	ErrorMemoryAllocation:      "ErrorMemoryAllocation",
	ErrorInitializationError:   "ErrorInitializationError",
	ErrorInvalidConfiguration:  "ErrorInvalidConfiguration",
	ErrorInvalidDevicePointer:  "ErrorInvalidDevicePointer",
	ErrorInvalidResourceHandle: "ErrorInvalidResourceHandle",
	ErrorNotReady:              "ErrorNotReady",
	ErrorLaunchFailure:         "ErrorLaunchFailure",
}

// Token returns the neutral token of the status, e.g. "ErrorMemoryAllocation".
func (s Status) Token() string {
	if t, ok := statusTokens[s]; ok {
		return t
	}
	return fmt.Sprintf("Error(%d)", int(s))
}

// Name renders the status as the vendor symbol, e.g. "hipErrorMemoryAllocation".
func (s Status) Name(v Vendor) string {
	return v.Dispatch(s.Token())
}

// String uses the active vendor's naming.
func (s Status) String() string {
	return s.Name(ActiveVendor())
}

// Err converts a non-success status into a structured error for op.
// It returns nil for Success.
func (s Status) Err(op string) error {
	if s == Success {
		return nil
	}
	typ := ErrTypeRuntime
	switch s {
	case ErrorMemoryAllocation, ErrorInvalidDevicePointer:
		typ = ErrTypeMemory
	case ErrorInvalidValue, ErrorInvalidConfiguration, ErrorInvalidResourceHandle:
		typ = ErrTypeInvalidArg
	case ErrorLaunchFailure:
		typ = ErrTypeExecution
	}
	return &Error{
		Type:    typ,
		Op:      ActiveVendor().Dispatch(op),
		Message: s.String(),
		Status:  s,
	}
}
