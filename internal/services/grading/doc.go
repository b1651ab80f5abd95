// Package grading runs the asynchronous half of the pipeline: workers
// that execute submissions in the sandbox and the consumer that lands
// results back on the submission rows. Both sides ack only after their
// output is durable, which makes delivery at-least-once but never
// lossy.
package grading
