package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecReader(t *testing.T) {
	t.Parallel()
	lines := []string{}
	ExecReader(strings.NewReader("devices\n\n  last dev1 3  \n"), func(line string) {
		lines = append(lines, line)
	})
	assert.Equal(t, []string{"devices", "last dev1 3"}, lines)
}
