package dataset

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleCSV builds a churn-like CSV with n customers. Churn follows a
// deterministic rule so both labels are always present: month-to-month
// customers with short tenure churn.
func sampleCSV(n int) string {
	var b strings.Builder
	b.WriteString("customerID,gender,SeniorCitizen,tenure,MonthlyCharges,TotalCharges,Contract,Churn\n")
	contracts := []string{"Month-to-month", "One year", "Two year"}
	genders := []string{"Female", "Male"}
	for i := 0; i < n; i++ {
		tenure := i % 60
		monthly := 20.0 + float64(i%80)
		contract := contracts[i%3]
		churn := "No"
		if contract == "Month-to-month" && tenure < 20 {
			churn = "Yes"
		}
		fmt.Fprintf(&b, "c-%04d,%s,%d,%d,%.2f,%.2f,%s,%s\n",
			i, genders[i%2], i%5/4, tenure, monthly, monthly*float64(tenure), contract, churn)
	}
	return b.String()
}

// sampleOptions matches the stock telco configuration.
func sampleOptions() Options {
	return Options{Target: "Churn", Positive: "Yes", Identifiers: []string{"customerID"}}
}

// loadSample parses a generated CSV into a Dataset.
func loadSample(t *testing.T, n int) Dataset {
	t.Helper()
	ds, err := Read(strings.NewReader(sampleCSV(n)), sampleOptions())
	require.NoError(t, err)
	return ds
}
