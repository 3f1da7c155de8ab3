// Package domain models the AORC precipitation extraction: coordinate
// selection, area weighting, and the QA rules applied to the hourly series.
//
// # Data Source
//
// AORC (Analysis of Record for Calibration, version 1.1) is NOAA's hourly
// ~1km meteorological reanalysis for the conterminous United States. The
// Office of Water Prediction publishes it as a Zarr v2 store in a public S3
// bucket (s3://noaa-nws-aorc-v1-1-1km, anonymous access). The precipitation
// variable is "apcp", accumulated precipitation per hour.
//
// # CF Conventions
//
// Coordinates follow CF/xarray conventions:
//
//	Time is stored numerically with a units attribute "<unit> since <epoch>",
//	e.g. "seconds since 1979-02-01 00:00:00", calendar proleptic_gregorian.
//	All timestamps are UTC.
//
//	Latitude and longitude are 1-D axes named "latitude"/"longitude" in
//	current releases; older mirrors use "lat"/"lon". Either spelling is
//	accepted. Axes are monotonic but may be stored ascending or descending,
//	so index selection must be order-safe: a [min, max] request selects the
//	same set of values regardless of storage direction.
//
// # Area Weighting
//
// Grid cells share a constant angular size, so their true area shrinks with
// the cosine of latitude. The spatial mean therefore weights each row by
// cos(lat), broadcast across longitude:
//
//	mean = Σ w(lat)·v / Σ w(lat)   over finite cells
//
// Rows at 0° and 60° latitude weigh 2:1, which is the reference check used
// in tests. Cells holding NaN (the archive's fill for off-grid points) are
// excluded from both sums; an all-NaN step yields NaN.
//
// # QA Rules
//
// The archive is nominally complete at hourly cadence. Completeness is
// checked by building the expected hourly UTC index from window start to end
// inclusive and counting expected hours absent from the data; series
// timestamps are truncated to the hour before comparison. The maximum
// area-mean value is reported with its timestamp, ties resolving to the
// earliest occurrence.
package domain
