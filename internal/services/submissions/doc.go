// Package submissions is the synchronous entry point of the grading
// pipeline. The gateway validates requests, enforces the one-in-flight
// rule per user, deduplicates exact resubmissions, and publishes grading
// tasks. It also answers course-progress queries: current assignment and
// score.
package submissions
