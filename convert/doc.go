// Package convert translates values between Go and the goja script runtime.
//
// A Table resolves a Converter per Go type. Lookup order is:
//
//  1. converters registered for the exact type
//  2. converters registered for an interface the type implements
//  3. built-in rules by reflect.Kind (bool, numbers, strings, slices,
//     string-keyed maps, pointers, empty interfaces)
//
// Decoding is strict: a string is never coerced to a number, a number never
// to a string. Mismatches fail with an errors.KindTypeMismatch error whose
// Expected and Actual name the Go type and the script type.
//
// Packages that bridge their own types install converters from init:
//
//	func init() {
//		convert.Install(func(t *convert.Table) {
//			t.RegisterInterface(reflect.TypeFor[Exposer](), exposerConverter{})
//		})
//	}
//
// Every Table created by NewTable, including Default, applies the installed
// steps.
package convert
