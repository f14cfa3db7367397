// Package store exports reported buildings and their restrooms to a SQLite
// database used to seed the flushfinder web API.
//
// The schema matches what the API serves: a building table, a rooms table of
// restrooms keyed by building record number, and an initially empty reviews
// table.
package store
