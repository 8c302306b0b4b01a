// Package domain models United States Drought Monitor (USDM) map data.
//
// # Data Source
//
// Drought extent data is published weekly by the U.S. Drought Monitor at
// https://droughtmonitor.unl.edu/. Two endpoints matter here:
//
//	/tabular/total.xml            index of published weeks, newest first
//	/data/shapefiles_m/<archive>  zipped shapefile for one week
//
// The index document is a flat XML list of <week> elements, each carrying a
// date attribute in compact YYYYMMDD form:
//
//	<total>
//	  <week date="20140624">...</week>
//	  <week date="20140617">...</week>
//	</total>
//
// The first week listed is the most recent. That ordering is a convention of
// the data source and is trusted, not verified.
//
// # Archive Naming
//
// Weekly M-series archives follow a fixed naming scheme embedding the release
// date: USDM_20140624_M.zip. The archive holds the usual shapefile sidecar
// set (.shp, .shx, .dbf, .prj) for one layer of drought severity polygons.
//
// # Severity Categories
//
// Each polygon carries a DM attribute encoding its drought category on the
// five-level USDM scale:
//
//	D0  Abnormally Dry
//	D1  Moderate Drought
//	D2  Severe Drought
//	D3  Extreme Drought
//	D4  Exceptional Drought
//
// Source files store the attribute as a bare integer ("2"); some derived
// products prefix it ("D2"). [CategoryFromAttribute] accepts both. Values
// outside 0-4 are rejected rather than clamped: an unknown category has no
// color in the stylesheet, and guessing one would produce a misleading map.
//
// Polygons for higher categories nest inside lower ones (a D4 zone always
// sits inside a D3 zone), so rendering in file order paints severe zones
// over mild ones.
package domain
