package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coverGrid spans lon -121..-118, lat 36..40 in half-degree cells.
var coverGrid = Grid{OriginLon: -121, OriginLat: 40, CellSize: 0.5, Cols: 6, Rows: 8}

func squareRegion(t *testing.T) Region {
	t.Helper()
	region, err := BBoxRegion("square", -120, 38, -119, 39)
	require.NoError(t, err)
	return region
}

func TestAreaOf_AllTrueApproachesRegionArea(t *testing.T) {
	region := squareRegion(t)

	res, err := AreaOf(Fill(coverGrid, True), region, DefaultAreaOptions())
	require.NoError(t, err)

	assert.InEpsilon(t, region.Area(), res.SquareMeters, 0.02)
	assert.LessOrEqual(t, res.SquareMeters, region.Area())
	assert.Equal(t, DefaultAreaScale, res.Scale)
	assert.False(t, res.Approximate)
	assert.Positive(t, res.Pixels)
	assert.InEpsilon(t, res.SquareMeters/1e6, res.SquareKilometers(), 1e-12)
}

func TestAreaOf_Target(t *testing.T) {
	region := squareRegion(t)
	allFalse := Fill(coverGrid, False)

	res, err := AreaOf(allFalse, region, DefaultAreaOptions())
	require.NoError(t, err)
	assert.Zero(t, res.SquareMeters)

	opts := DefaultAreaOptions()
	opts.Target = False
	res, err = AreaOf(allFalse, region, opts)
	require.NoError(t, err)
	assert.InEpsilon(t, region.Area(), res.SquareMeters, 0.02)
}

func TestAreaOf_HalfCovered(t *testing.T) {
	region := squareRegion(t)
	// West half of the square is True.
	r := mustRaster(t, Grid{OriginLon: -120, OriginLat: 39, CellSize: 0.5, Cols: 2, Rows: 2}, []float64{
		1, 0,
		1, 0,
	})

	res, err := AreaOf(r, region, DefaultAreaOptions())
	require.NoError(t, err)
	assert.InEpsilon(t, 0.5, res.SquareMeters/region.Area(), 0.03)
}

func TestAreaOf_NoDataCellsDoNotCount(t *testing.T) {
	region := squareRegion(t)

	res, err := AreaOf(NewRaster(coverGrid), region, DefaultAreaOptions())
	require.NoError(t, err)
	assert.Zero(t, res.SquareMeters)

	res, err = AreaOf(Raster{}, region, DefaultAreaOptions())
	require.NoError(t, err)
	assert.Zero(t, res.SquareMeters)
}

func TestAreaOf_PixelBudget(t *testing.T) {
	region := squareRegion(t)
	opts := AreaOptions{Target: True, Scale: 1000, MaxPixels: 100}

	_, err := AreaOf(Fill(coverGrid, True), region, opts)
	assert.True(t, errors.Is(err, ErrPixelBudgetExceeded))

	opts.BestEffort = true
	res, err := AreaOf(Fill(coverGrid, True), region, opts)
	require.NoError(t, err)
	assert.True(t, res.Approximate)
	assert.Equal(t, 16000.0, res.Scale)
	assert.LessOrEqual(t, res.Pixels, int64(100))
	assert.LessOrEqual(t, res.SquareMeters, region.Area())
}

func TestAreaOf_ZeroRegion(t *testing.T) {
	_, err := AreaOf(Fill(coverGrid, True), Region{}, DefaultAreaOptions())
	assert.True(t, errors.Is(err, ErrInvalidRegion))
}
