// Package serialize writes entity sets to disk and reads them back.
//
// An entityset directory holds a data_description manifest plus a data/
// subdirectory with one table file per entity, in whichever format the
// writer chose. The manifest is self-describing: it records per entity the
// table location, the format tag, the writer params and the exact column
// dtypes captured before any codec coercion, so a reader reconstructs the
// set without being told how it was written.
package serialize

import (
	// Register the built-in table codecs.
	_ "github.com/leapstack-labs/frameset/pkg/codecs"
)

// ManifestBasename is the manifest filename without its extension. The
// extension selects the manifest encoding: .json, .yaml or .yml.
const ManifestBasename = "data_description"
