// SPDX-License-Identifier: Apache-2.0

// Package readers provides the dataset formats understood by corpus.Loader.
package readers

import "github.com/gemaraproj/casrel/internal/corpus"

// Default returns a loader with every reader registered. Order matters:
// structured formats are tried before the plain text fallback.
func Default() *corpus.Loader {
	return corpus.NewLoader(
		NewJSONReader(),
		NewJSONLReader(),
		NewTextReader(),
	)
}
