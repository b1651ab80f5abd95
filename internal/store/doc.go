// Package store defines the relational data model of the platform:
// assignments and submissions, plus the store contracts implemented by
// the postgres and inmem subpackages.
package store
