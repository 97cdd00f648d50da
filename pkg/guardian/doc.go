// Package guardian is the Go client for the FAS Guardian content-safety
// scanning service.
//
// A Client issues scan and usage requests against the remote service with
// bounded retries, timeout budgets, and rate-limit passthrough, and exposes
// the local ad-isolation engine for stripping marked advertisement content
// from text and conversation histories before it reaches a downstream model.
//
//	client, err := guardian.New(os.Getenv("GUARDIAN_API_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.Scan(ctx, userInput)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if result.Blocked {
//		// reject the input
//	}
//
// Clients are immutable after construction and safe for concurrent use.
package guardian
