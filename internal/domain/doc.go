// Package domain models the data watchlink exchanges with its map surface
// and the wearable: intensity-coded feed points, live position samples and
// accelerometer notifications.
//
// # Point Feed
//
// The point feed is UTF-8 text. The first line is a header and is always
// discarded. Every following line is
//
//	latitude,longitude[,value][,label fragments...]
//
// Latitude and longitude are decimal degrees and must parse as finite
// numbers, otherwise the row is dropped. The value column is optional: when
// it parses as a number it is clamped to [0,1] and used as the intensity;
// when it does not, the intensity is 0 and the column is folded into the
// label. Remaining fields are rejoined with commas. Quoting is not
// supported, so a numeric-looking label fragment in the value position is
// read as a value.
//
// Rows with fewer than three comma-separated fields are dropped. Dropped rows
// never abort the feed; see [FeedParser.Parse].
//
// # Color Ramps
//
// Intensities are rendered as "rgb(r,g,b)" strings. [RampLinear] is the
// default single segment from green (0) to red (1):
//
//	r = round(255·v)   g = round(255·(1−v))   b = 0
//
// [RampTrafficLight] passes through yellow at v=0.5. Both ramps are monotonic:
// red never decreases and green never increases as v grows. NaN is treated
// as 0.
//
// # Wearable Payloads
//
// Every position fix is written to the wearable as a single CSV line, see
// [EncodeSampleCSV]. The wearable notifies accelerometer readings as a JSON
// object with x, y and z members, see [ParseAccelReading].
package domain
