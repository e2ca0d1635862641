package domain

import "errors"

var (
	// ErrNoDataForDate reports that a time-indexed collection has no slice
	// for the requested date. It is never coerced into an all-false raster.
	ErrNoDataForDate = errors.New("no data for date")

	// ErrEmptyCollection is returned when a reduction receives no rasters.
	ErrEmptyCollection = errors.New("empty raster collection")

	// ErrGridMismatch is returned when two rasters combined cell-wise are not aligned.
	ErrGridMismatch = errors.New("raster grids are not aligned")

	// ErrPixelBudgetExceeded is returned by AreaOf when the evaluation grid
	// exceeds the pixel budget and best effort is disabled.
	ErrPixelBudgetExceeded = errors.New("pixel budget exceeded")

	// ErrInvalidRegion reports a region that is empty or not a polygon.
	ErrInvalidRegion = errors.New("invalid region")

	// ErrInvalidDateRange reports a date range whose end is not after its start.
	ErrInvalidDateRange = errors.New("invalid date range")
)
