// Package errors provides structured error types for the host object bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: member path, expected Go type, actual script
// type, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("User", "setName", "0").
//		GoType("string").
//		ScriptType("number").
//		Build()
//
// Or use convenience constructors for the bridge taxonomy:
//
//	errors.NameConflict(object, name, "getter", "method") // declaration, fatal
//	errors.TypeConversion(phase, path, expected, actual)  // invocation failure
//	errors.StaleRuntime(runtime, what)                    // non-fatal, side channel
//	errors.MissingObject(what)                            // fatal
//
// All errors implement the standard error interface and support errors.Is/As.
// The Err* sentinels match on Kind regardless of Phase.
package errors
