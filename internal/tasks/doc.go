// Package tasks runs background and batch work around the web player with real-time progress reporting.
//
// # Operations
//
//  1. [Sweeper] : Expired session purge
//     - Deletes sessions whose expiry has passed, once per interval
//     - Runs until its context is cancelled; failures are logged, not fatal
//
//  2. [BuildReport] : Top artists report
//     - Fetches the user's top artists
//     - Resolves each artist's top tracks with a rate-limited worker pool
//     - Optionally writes the result with the formatter package
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Updates are sent with
// select and default so a slow or absent reader never blocks the work.
package tasks
