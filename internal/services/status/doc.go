// Package status delivers grading outcomes to waiting clients. Each
// watcher polls its submission row until the result consumer marks it
// processed, then sends one notification and stops. Operators can also
// follow the raw result stream live, optionally narrowed by a CEL
// expression.
package status
