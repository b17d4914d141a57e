package funcps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	funcps "github.com/funvibe/funcps"
)

// LocateFunction resolves a real top-level function in this module to its
// declaration site, the Go-native substitute for inspect.getsource.
func TestLocateFunctionFindsDeclarationSite(t *testing.T) {
	site, err := funcps.LocateFunction(".", "Compile")
	require.NoError(t, err)

	assert.Equal(t, "Compile", site.Name)
	assert.Contains(t, site.File, "funcps.go")
	assert.Greater(t, site.Line, 0)
}

func TestLocateFunctionMissingNameErrors(t *testing.T) {
	_, err := funcps.LocateFunction(".", "NoSuchFunctionAnywhere")
	assert.Error(t, err)
}
