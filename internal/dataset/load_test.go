package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telmetric/churnsight/internal/common"
)

func TestReadInfersRoles(t *testing.T) {
	ds := loadSample(t, 50)

	tests := []struct {
		column string
		want   Role
	}{
		{"customerID", RoleIdentifier},
		{"gender", RoleCategorical},
		{"SeniorCitizen", RoleNumeric},
		{"tenure", RoleNumeric},
		{"MonthlyCharges", RoleNumeric},
		{"TotalCharges", RoleNumeric},
		{"Contract", RoleCategorical},
		{"Churn", RoleTarget},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			role, ok := ds.Schema.RoleOf(tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.want, role, "column %s", tt.column)
		})
	}

	assert.Equal(t, 50, ds.NumRows())
	assert.Equal(t, "Churn", ds.Schema.Target)
	assert.Equal(t, "Yes", ds.Schema.Positive)
}

func TestReadInfersUnlistedIdentifier(t *testing.T) {
	// The unique-per-row string column is an identifier even without being
	// named in the options.
	ds, err := Read(strings.NewReader(sampleCSV(30)), Options{Target: "Churn", Positive: "Yes"})
	require.NoError(t, err)

	role, ok := ds.Schema.RoleOf("customerID")
	require.True(t, ok)
	assert.Equal(t, RoleIdentifier, role)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		opts Options
		want error
	}{
		{
			name: "missing target column",
			csv:  "a,b\n1,2\n",
			opts: Options{Target: "Churn"},
			want: common.ErrMissingColumn,
		},
		{
			name: "empty target name",
			csv:  "a,b\n1,2\n",
			opts: Options{},
			want: common.ErrMissingColumn,
		},
		{
			name: "ragged rows",
			csv:  "a,b,Churn\n1,2\n",
			opts: Options{Target: "Churn"},
			want: common.ErrParse,
		},
		{
			name: "no data rows",
			csv:  "a,b,Churn\n",
			opts: Options{Target: "Churn"},
			want: common.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.csv), tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.csv", sampleOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open dataset")
}

func TestLabelCounts(t *testing.T) {
	ds := loadSample(t, 60)

	counts, err := ds.LabelCounts()
	require.NoError(t, err)

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 60, total)
	assert.Positive(t, counts["Yes"])
	assert.Positive(t, counts["No"])
}
