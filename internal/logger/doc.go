// Package logger wraps zap with a console encoder writing to stderr and
// carries the logger inside context.Context (ToContext/FromContext/WithName/WithKV).
//
// Services take a context and log through it, so fields such as the run
// identifier added once at the entry point appear on every line of a run.
package logger
