// Package cache provides an in-process read-through cache for assignment
// reads. Handout and progression lookups dominate read traffic and
// assignments change only when an operator adds one, so the invalidation
// policy is blunt: any write flushes the entire cache.
package cache
