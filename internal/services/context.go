package services

import "context"

type contextKey string

const (
	machineKey   contextKey = "machine"
	phaseKey     contextKey = "phase"
	requestIDKey contextKey = "request_id"
)

// WithMachine annotates context with the machine being processed.
func WithMachine(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, machineKey, name)
}

// MachineFromContext returns the machine name if present.
func MachineFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(machineKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhase annotates context with the processing phase (resolve, hash, verify).
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
