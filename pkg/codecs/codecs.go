// Package codecs registers every built-in table codec.
//
// Importing this package (blank) makes the csv, parquet, arrow snapshot
// and sqlite formats available in the codec registry. pkg/serialize imports
// it so reading and writing work out of the box.
package codecs

import (
	_ "github.com/leapstack-labs/frameset/pkg/codecs/csv"
	_ "github.com/leapstack-labs/frameset/pkg/codecs/parquet"
	_ "github.com/leapstack-labs/frameset/pkg/codecs/snapshot"
	_ "github.com/leapstack-labs/frameset/pkg/codecs/sqlite"
)
