package preview

import "errors"

var (
	ErrNilConfig        = errors.New("capture config is nil")
	ErrInvalidConfig    = errors.New("invalid capture config")
	ErrTargetAllocation = errors.New("offscreen target allocation failed")
	ErrSchedulerClosed  = errors.New("scheduler is closed")
	ErrEngineClosed     = errors.New("preview engine is closed")
	ErrIllegalState     = errors.New("illegal capture state transition")
)
