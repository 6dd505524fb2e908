package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/gitorigin/pkg/version"
)

func TestString(t *testing.T) {
	assert.Equal(t, "dev (<unknown>)", version.String())

	version.Date = "2024-05-01"

	t.Cleanup(func() { version.Date = "" })

	assert.Equal(t, "dev (<unknown>, 2024-05-01)", version.String())
}
