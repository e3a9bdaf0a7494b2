// Package logx is a thin structured-logging wrapper around zerolog.
//
// It exists so the rest of the codebase can log through a stable, small API
// while sinks (console, file, the operator Telegram chat) are reconfigured at
// runtime via Service.Apply without re-plumbing loggers.
package logx
