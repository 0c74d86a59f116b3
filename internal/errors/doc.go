// Package errors provides coded, actionable error messages for the cascade
// CLI.
//
// Every error the CLI prints has a code (e.g. "C020") that maps to a
// short message and a longer explanation. Errors raised by the scheduler
// are classified with [Classify], which keeps the failing node and hook:
//
//	err := sched.Run(ctx, fn)
//	fmt.Print(errors.Classify(err).Format())
//	// Output:
//	// ERROR C020: Lifecycle hook failed
//	//
//	//   in my-middle (didUpdate)
//	//
//	//   A lifecycle hook returned an error. The remaining notifications of
//	//   the node and its in-flight ancestors were abandoned.
//	//
//	//   Caused by: cascade: my-middle:didUpdate failed: boom
//
// Scenario files add a source location with [Error.WithLocation], which
// prints the surrounding lines of the YAML document.
//
// # Categories
//
//   - structural: unresolvable components and templates
//   - notification: failing or panicking lifecycle hooks
//   - scheduling: re-entrancy and tree misuse
//   - scenario: fixture files and expectations
//   - config: cascade.json
//   - trace: recorded trace storage
//   - cli: command usage
package errors
