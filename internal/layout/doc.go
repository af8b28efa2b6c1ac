// Package layout derives the virtual catalog locations of a media item.
//
// A Builder evaluates an ordered set of rules against one Item. Each rule
// returns zero or more Placements: a container chain from the catalog root
// plus the title the item is displayed under in that container. Rules are
// evaluated in a fixed order and their output is concatenated without
// deduplication.
//
// # Audio layout
//
// Audio items are filed by album, artist, genre, track and year:
//
//	-Album-/-ABCD-/A/Album - Artist          Audio Title
//	-Artist-/--all--/Artist                  Audio Title (Album, 2018)
//	-Genre-/Genre/--all--                    Audio Title - Artist
//	-Track-/-ABCD-/A                         Audio Title - Artist (Album, 2018)
//	-Year-/2010 - 2019/2018/Artist/Album     Audio Title
//
// Alphabetic buckets come from AlphaBucket, decades from DecadeBucket. The
// bucket size for each axis and the divider character are read from a TOML
// file (see LoadConfig).
//
// # Persistence
//
// The builder never writes to storage itself. Classify hands every chain to
// a ChainResolver which returns the id of the leaf container, creating
// missing containers on the way. Resolvers must be idempotent because the
// same chain is requested again on every re-import and by concurrent items.
package layout
