package packs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compact = `{
  "white": ["a", "b", "c", "d"],
  "black": [{"text": "Why ____?", "pick": 1}, {"text": "____ and ____.", "pick": 2}],
  "packs": [
    {"abbr": "small", "name": "Small", "official": false, "white": [0, 1, 2], "black": [0]},
    {"abbr": "tiny", "name": "Tiny", "official": true, "white": [3], "black": [1]},
    {"abbr": "big", "name": "Big", "official": false, "white": [0, 1, 2, 3], "black": [0, 1]}
  ]
}`

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(compact))
	require.NoError(t, err)

	p, ok := c.Pack("big")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Responses)
	require.Len(t, p.Prompts, 2)
	assert.Equal(t, 2, p.Prompts[1].Pick)

	_, ok = c.Pack("nope")
	assert.False(t, ok)

	var order []string
	for _, info := range c.List() {
		order = append(order, info.Abbr)
	}
	assert.Equal(t, []string{"tiny", "big", "small"}, order)
}

func TestLoadRejectsBadIndex(t *testing.T) {
	_, err := Load(strings.NewReader(`{"white": [], "black": [], "packs": [{"abbr": "x", "white": [3]}]}`))
	assert.Error(t, err)

	_, err = Load(strings.NewReader(`{"packs": [{"abbr": "x"}, {"abbr": "x"}]}`))
	assert.Error(t, err)

	_, err = Load(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	list := c.List()
	require.NotEmpty(t, list)
	assert.True(t, list[0].Official)

	p, ok := c.Pack(list[0].Abbr)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(p.Responses), 60, "enough cards for a table of five")
}
