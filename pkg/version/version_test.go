package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/rb2js/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	assert.Contains(t, version.String(), "rb2js ")
	assert.Contains(t, version.String(), "commit: ")
}

func TestInitBinaryVersion_KeepsValues(t *testing.T) {
	version.InitBinaryVersion()

	assert.NotEmpty(t, version.Version)
	assert.NotEmpty(t, version.Commit)
	assert.NotEmpty(t, version.Date)
}
