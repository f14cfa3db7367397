// Package restroom classifies rooms as restrooms by keyword.
//
// Classification has two stages. The inclusion stage keeps a room when its
// lower-cased RoomTypeDescription contains any inclusion keyword. The
// exclusion stage drops rooms whose description contains an exclusion
// keyword; it is disabled unless the Filter is built with WithExclusions.
//
// Note that the inclusion keyword "men" also matches descriptions such as
// "Basement Storage". The exclusion stage exists to suppress such matches once
// the right exclusion list is settled.
package restroom
