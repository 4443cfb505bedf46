package plot_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/tabrl"
	"github.com/sw965/tabrl/plot"
)

func TestRender(t *testing.T) {
	states := []int{1, 2, 3}
	v := tabrl.StateValues[int]{1: 0.1, 2: 0.4, 3: 0.9}
	pi := tabrl.Policy[int, int]{1: {1}, 2: {0, 2}, 3: {1}}

	var buf bytes.Buffer
	err := plot.Render(&buf, plot.Values("gambler V", v, states), plot.Policy("gambler pi", pi, states))
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "gambler V")
	assert.Contains(t, html, "gambler pi")
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "v.html")
	v := tabrl.StateValues[string]{"a": 1}
	require.NoError(t, plot.Save(path, plot.Values("values", v, []string{"a"})))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "values")
}
