package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"revenue_by_country", "region_for_retail_customers"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Marshal(t *testing.T) {
	s := Snapshot{
		Scenario:    "s",
		Nested:      false,
		Fallback:    "metric x cannot nest",
		InnerFilter: "TRUE",
		OuterFilter: "TRUE",
		SQL:         `SELECT 1 AS "x"`,
		Params:      []string{},
		Rows:        [][]string{{"1"}},
	}
	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"fallback":"metric x cannot nest","inner_filter":"TRUE","nested":false,"outer_filter":"TRUE","params":[],"rows":[["1"]],"scenario":"s","sql":"SELECT 1 AS \"x\""}`,
		string(data))
}
