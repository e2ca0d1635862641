// Package domain models the raster layers and geometry used to classify
// wildfire risk.
//
// # Data Sources
//
// Rasters are read from a hosted imagery catalog organised as time-indexed
// collections. Three collections are consumed:
//
//	USGS/NLCD           land cover, effectively static for this use
//	  shrubland_litter    percent shrubland litter/herbaceous cover (0-100)
//	  percent_tree_cover  percent canopy cover (0-100)
//	NOAA/GFS0P25        Global Forecast System, 0.25 degree grid
//	  temperature_2m_above_ground  forecast air temperature in degrees C
//	MODIS/006/MOD14A1   daily thermal anomalies
//	  MaxFRP              peak fire radiative power in megawatts
//
// A single query returns every slice of a band whose timestamp falls in a
// half-open [start, end) window, optionally restricted to a bounding box.
// Forecast runs publish several sub-slices per day (one per forecast hour);
// they are collapsed by per-cell maximum.
//
// # Grid Conventions
//
// Grids are regular lon/lat grids in EPSG:4326:
//
//	origin    north-west corner of the top-left cell (lon, lat)
//	cell_size cell edge in degrees, equal in both axes
//	order     row-major, row 0 is the northernmost row
//
// Cell footprints are computed on a sphere of radius 6,371,008.8 m (the
// IUGG mean Earth radius), so a cell's area shrinks with the cosine of its
// latitude. Point sampling uses the cell whose footprint contains the point;
// resampling between grids is nearest-neighbour on cell centres.
//
// # No-Data
//
// Every cell carries a validity flag. Invalid cells are "no data": they are
// never at risk, never counted by area reductions and serialise as JSON
// null. Boolean rasters encode true as 1 and false as 0 (see [True] and
// [False]) so they can travel through the same numeric pipeline.
//
// # Masking
//
// [MaskBy] follows update-mask semantics: a cell survives only where the
// mask is valid and non-zero. Masked-out cells become no data rather than
// false, which is what restricts the risk classification to cells with
// shrubland litter cover.
package domain
