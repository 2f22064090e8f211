package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telmetric/churnsight/internal/common"
)

func TestCleanDropsIdentifierAndMissingRows(t *testing.T) {
	// Blank TotalCharges on two rows, matching the zero-tenure pattern of
	// the real dataset.
	orig := sampleCSV(40)
	csv := strings.Replace(orig, "c-0003,Male,0,3,23.00,69.00", "c-0003,Male,0,3,23.00, ", 1)
	csv = strings.Replace(csv, "c-0007,Male,0,7,27.00,189.00", "c-0007,Male,0,7,27.00, ", 1)
	require.NotEqual(t, orig, csv, "fixture rows did not match for blanking")
	ds, err := Read(strings.NewReader(csv), sampleOptions())
	require.NoError(t, err)

	clean, report, err := Clean(ds, CleanOptions{RecastCategorical: []string{"SeniorCitizen"}})
	require.NoError(t, err)

	assert.Equal(t, 40, report.InputRows)
	assert.Equal(t, 2, report.RemovedRows)
	assert.Equal(t, []string{"customerID"}, report.DroppedColumns)
	assert.Equal(t, []string{"SeniorCitizen"}, report.RecastColumns)
	assert.Equal(t, 38, clean.NumRows())

	// No identifier column survives.
	_, ok := clean.Schema.RoleOf("customerID")
	assert.False(t, ok)
	assert.NotContains(t, clean.Frame.Names(), "customerID")

	// No missing value survives.
	for _, name := range clean.Frame.Names() {
		for i, isNaN := range clean.Frame.Col(name).IsNaN() {
			assert.False(t, isNaN, "column %s row %d still missing", name, i)
		}
	}

	// The recast column models as a factor now.
	role, ok := clean.Schema.RoleOf("SeniorCitizen")
	require.True(t, ok)
	assert.Equal(t, RoleCategorical, role)
}

func TestCleanLeavesInputUntouched(t *testing.T) {
	ds := loadSample(t, 30)
	before := ds.NumCols()

	_, _, err := Clean(ds, CleanOptions{RecastCategorical: []string{"SeniorCitizen"}})
	require.NoError(t, err)

	assert.Equal(t, before, ds.NumCols())
	role, ok := ds.Schema.RoleOf("SeniorCitizen")
	require.True(t, ok)
	assert.Equal(t, RoleNumeric, role)
}

func TestCleanRecastUnknownColumn(t *testing.T) {
	ds := loadSample(t, 20)

	_, _, err := Clean(ds, CleanOptions{RecastCategorical: []string{"NoSuchColumn"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingColumn)
}

func TestCleanNothingToDo(t *testing.T) {
	ds := loadSample(t, 25)

	clean, report, err := Clean(ds, CleanOptions{})
	require.NoError(t, err)

	assert.Zero(t, report.RemovedRows)
	assert.Empty(t, report.RecastColumns)
	assert.Equal(t, 25, clean.NumRows())
}
