// Package store defines the persistence contracts for review schedules and
// review history, along with the sentinel errors every implementation maps
// its failures to.
//
// Writes that must land together run through a Transactor, which hands the
// callback stores bound to a single transaction.
package store
