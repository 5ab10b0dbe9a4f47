// ABOUTME: Tests for the root gcdesc package
// ABOUTME: Checks the version constant is a development semver

package gcdesc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prateek/gcdesc"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, gcdesc.Version)
	assert.True(t, strings.HasPrefix(gcdesc.Version, "0."), "got %q", gcdesc.Version)
}
