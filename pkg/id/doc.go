// Package id provides 128-bit, lexicographically sortable identifiers:
// 8 bytes of millisecond timestamp followed by 8 bytes of per-process
// sequence. Within one process IDs are strictly increasing even when the
// wall clock stalls or steps backwards.
//
// The platform uses it to mint explicit consumer identities for queue
// subscriptions:
//
//	consumer := id.ConsumerID("grading-worker") // "grading-worker-00000000a1b2"
package id
