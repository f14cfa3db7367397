// Package report writes restroom reports.
//
// Two outputs exist. WriteRoomsJSON serializes the restrooms of one building
// as an indented JSON array. Runner walks every building, sorted by long
// description, and writes one tuple literal per reported building:
//
//	(0, 'Angell Hall', '435', 'S State St', 'Ann Arbor', 'MI', '48109', 42.2766, -83.7398, '1000066', 12)
//
// Buildings outside the required city or on the excluded campus are skipped.
// A geocoding failure that the provider marks recoverable yields 0.0, 0.0
// coordinates and the run continues.
//
// With one worker the run is sequential and the first unrecoverable error
// aborts it, leaving the lines written so far in place. With more workers,
// buildings are processed concurrently on a bounded pool; a failing building
// is logged, counted and left out while the others are still written in
// sorted order.
package report
