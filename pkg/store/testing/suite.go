// Package testing provides a reusable conformance suite for store.Store
// implementations. It tests the interface contract, not implementation
// details, so the same suite runs against the memory and badger backends.
package testing

import (
	"testing"

	"github.com/fileverse/omnifs/pkg/store"
)

// StoreTestSuite runs the store.Store contract tests.
type StoreTestSuite struct {
	// NewStore creates a fresh store for each test, seeded with an admin
	// account named "admin" with password "admin-secret" and a total
	// capacity of at least 1 MiB. Test isolation depends on each call
	// returning independent state.
	NewStore func(t *testing.T) store.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("Directory", suite.RunDirectoryTests)
	test.Run("File", suite.RunFileTests)
	test.Run("Rename", suite.RunRenameTests)
	test.Run("Metadata", suite.RunMetadataTests)
	test.Run("Users", suite.RunUserTests)
	test.Run("Stats", suite.RunStatsTests)
}
