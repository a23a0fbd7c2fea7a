// Package errors classifies pagewrap failures.
//
// Every error that crosses a package boundary is a ClassifiedError built
// with the fluent ErrorBuilder. The category decides the default severity,
// whether a retry can help, and the exit code of one-shot commands:
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, "write output").
//		WithContext("path", dest).
//		Build()
//
// Per-file failures during a pass (template, not_found) are logged and
// counted; fatal categories (filesystem, config, validation) abort.
package errors
