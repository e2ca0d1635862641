package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// testGrid is a 4x3 grid of half-degree cells over lon -120..-118, lat 37.5..39.
var testGrid = Grid{OriginLon: -120, OriginLat: 39, CellSize: 0.5, Cols: 4, Rows: 3}

func mustRaster(t *testing.T, g Grid, values []float64) Raster {
	t.Helper()
	r, err := FromValues(g, values)
	require.NoError(t, err)
	return r
}

func TestGrid_CellLookup(t *testing.T) {
	lon, lat := testGrid.CellCenter(1, 2)
	assert.InDelta(t, -119.25, lon, 1e-12)
	assert.InDelta(t, 37.75, lat, 1e-12)

	col, row, ok := testGrid.CellAt(lon, lat)
	require.True(t, ok)
	assert.Equal(t, 1, col)
	assert.Equal(t, 2, row)

	_, _, ok = testGrid.CellAt(-121, 38)
	assert.False(t, ok)
	_, _, ok = testGrid.CellAt(-119, 39.01)
	assert.False(t, ok)
}

func TestGrid_CellAreaShrinksPoleward(t *testing.T) {
	equator := Grid{OriginLon: 0, OriginLat: 0.5, CellSize: 0.5, Cols: 1, Rows: 1}
	north := Grid{OriginLon: 0, OriginLat: 60.5, CellSize: 0.5, Cols: 1, Rows: 1}

	eqArea := equator.CellArea(0)
	// A half-degree cell at the equator is roughly 55.6 km on a side.
	assert.InEpsilon(t, 55.6e3*55.6e3, eqArea, 0.01)
	assert.InEpsilon(t, 0.5, north.CellArea(0)/eqArea, 0.01)
}

func TestGrid_Crop(t *testing.T) {
	b := geom.NewBounds(geom.XY).Set(-119.4, 37.6, -118.6, 38.4)
	g := testGrid.Crop(b)

	assert.Equal(t, Grid{OriginLon: -119.5, OriginLat: 38.5, CellSize: 0.5, Cols: 2, Rows: 2}, g)

	outside := geom.NewBounds(geom.XY).Set(10, 10, 11, 11)
	assert.True(t, testGrid.Crop(outside).IsEmpty())
}

func TestThreshold(t *testing.T) {
	r := mustRaster(t, testGrid, []float64{
		10, 33, 34, 50,
		0, 40, 33.1, 20,
		-5, 100, 32.9, 33,
	})
	r.Unset(0, 0)

	out := Threshold(r, DefaultHighTemp)

	v, ok := out.At(0, 0)
	assert.False(t, ok, "no data stays no data")
	assert.Equal(t, False, v)
	v, _ = out.At(1, 0)
	assert.Equal(t, False, v, "threshold is strict")
	v, _ = out.At(2, 0)
	assert.Equal(t, True, v)
	assert.Equal(t, 5, out.Count(True))
	assert.Equal(t, 6, out.Count(False))
}

func TestMaxReduce(t *testing.T) {
	a := mustRaster(t, testGrid, []float64{1, 5, 3, 0, 0, 0, 0, 0, 0, 0, 0, 9})
	b := mustRaster(t, testGrid, []float64{4, 2, 3, 0, 0, 0, 0, 0, 0, 0, 0, 1})
	b.Unset(0, 0)
	a.Unset(1, 1)
	b.Unset(1, 1)

	out, err := MaxReduce([]Raster{a, b})
	require.NoError(t, err)

	want := []float64{1, 5, 3, 0, 0, 0, 0, 0, 0, 0, 0, 9}
	if diff := cmp.Diff(want, out.Values); diff != "" {
		t.Fatalf("max mismatch (-want +got):\n%s", diff)
	}
	_, ok := out.At(1, 1)
	assert.False(t, ok, "cell missing from every input stays no data")

	_, err = MaxReduce(nil)
	assert.True(t, errors.Is(err, ErrEmptyCollection))
}

func TestMaxReduce_ResamplesMisalignedInputs(t *testing.T) {
	coarse := Fill(Grid{OriginLon: -120, OriginLat: 39, CellSize: 1, Cols: 2, Rows: 2}, 50)
	fine := Fill(testGrid, 10)

	out, err := MaxReduce([]Raster{fine, coarse})
	require.NoError(t, err)
	assert.Equal(t, testGrid, out.Grid)
	// The coarse grid covers lat 37..39, so every fine cell sees 50.
	assert.Equal(t, testGrid.Len(), out.Count(50))
}

func TestMaskBy(t *testing.T) {
	r := Fill(testGrid, True)
	mask := mustRaster(t, testGrid, []float64{
		1, 0, 1, 1,
		1, 1, 1, 1,
		1, 1, 1, 1,
	})
	mask.Unset(3, 2)

	out, err := MaskBy(r, mask)
	require.NoError(t, err)

	_, ok := out.At(1, 0)
	assert.False(t, ok, "false mask cells become no data, not false")
	_, ok = out.At(3, 2)
	assert.False(t, ok)
	assert.Equal(t, 10, out.Count(True))

	_, err = MaskBy(r, Fill(Grid{CellSize: 1, Cols: 1, Rows: 1}, 1))
	assert.True(t, errors.Is(err, ErrGridMismatch))
}

func TestResample_NearestNeighbour(t *testing.T) {
	src := mustRaster(t, Grid{OriginLon: -120, OriginLat: 39, CellSize: 1, Cols: 2, Rows: 1}, []float64{1, 2})
	target := Grid{OriginLon: -120.5, OriginLat: 39, CellSize: 0.5, Cols: 5, Rows: 1}

	out := Resample(src, target)

	_, ok := out.At(0, 0)
	assert.False(t, ok, "target cell outside source is no data")
	for col, want := range map[int]float64{1: 1, 2: 1, 3: 2, 4: 2} {
		v, ok := out.At(col, 0)
		require.True(t, ok)
		assert.Equal(t, want, v, "col %d", col)
	}
}

func TestClip(t *testing.T) {
	// Triangle above the grid's south-west to north-east diagonal.
	region, err := RegionFromGeoJSON("tri", []byte(`{"type":"Polygon","coordinates":[[[-120,37.5],[-118,39],[-120,39],[-120,37.5]]]}`))
	require.NoError(t, err)

	out := Clip(Fill(testGrid, True), region)

	for row := 0; row < out.Grid.Rows; row++ {
		for col := 0; col < out.Grid.Cols; col++ {
			lon, lat := out.Grid.CellCenter(col, row)
			_, ok := out.At(col, row)
			assert.Equal(t, region.Contains(lon, lat), ok, "cell %d,%d", col, row)
		}
	}
	assert.Less(t, out.ValidCount(), out.Grid.Len())

	assert.True(t, Clip(Fill(testGrid, True), Region{}).Empty())
}

func TestClip_OutsideFootprint(t *testing.T) {
	region, err := BBoxRegion("far", 10, 10, 11, 11)
	require.NoError(t, err)

	out := Clip(Fill(testGrid, True), region)
	assert.True(t, out.Empty())
	assert.True(t, out.Grid.IsEmpty())
}

func TestRasterJSON(t *testing.T) {
	r := mustRaster(t, Grid{OriginLon: 1, OriginLat: 2, CellSize: 0.25, Cols: 3, Rows: 1}, []float64{1.5, 0, 7})
	r.Unset(1, 0)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"grid":{"origin_lon":1,"origin_lat":2,"cell_size":0.25,"cols":3,"rows":1},"values":[1.5,null,7]}`, string(data))

	var back Raster
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(r, back); diff != "" {
		t.Fatalf("raster mismatch (-want +got):\n%s", diff)
	}

	err = json.Unmarshal([]byte(`{"grid":{"cell_size":1,"cols":2,"rows":2},"values":[1]}`), &back)
	assert.Error(t, err)
}

func TestSliceJSON(t *testing.T) {
	s := Slice{
		Time:   time.Date(2024, 7, 15, 6, 0, 0, 0, time.UTC),
		Raster: Fill(Grid{CellSize: 1, Cols: 1, Rows: 1}, 36.5),
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"time":"2024-07-15T06:00:00Z"`)

	var back Slice
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.Time, back.Time)
	assert.Equal(t, 1, back.Raster.Count(36.5))

	assert.Error(t, json.Unmarshal([]byte(`{"grid":{"cell_size":1,"cols":1,"rows":1},"values":[1]}`), &back))
}
