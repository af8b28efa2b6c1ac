// Command layoutctl dry-runs the catalog's layout rules and playlist
// parser from the command line, and prints catalog statistics.
//
//	layoutctl classify --kind audio --meta artist=Artist --meta album=Album --meta date=2018
//	layoutctl playlist ~/Music/Lists/road.m3u --root ~/Music
//	layoutctl stats --db /database/catalog.db
//
// Layout rules come from --layout or LAYOUT_CONFIG; a .env file in the
// working directory is loaded first.
package main
