package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		ratesFile = ""
		ratesConfirm = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRatesShow(t *testing.T) {
	out, err := execute(t, "rates", "show", "EVENT_SUPPORT")
	require.NoError(t, err)
	assert.Contains(t, out, "EVENT_SUPPORT")
	assert.Contains(t, out, "ambulance_standby")
	assert.NotContains(t, out, "AIR_TRANSPORT")

	_, err = execute(t, "rates", "show", "SPACE_TRAVEL")
	assert.Error(t, err)
}

func TestRatesValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`currency: KRW
categories:
  EVENT_SUPPORT:
    - item: staffing
      unitPrice: 400000
      formula: PER_DAY_PER_CREW
`), 0o600))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`currency: KRW
categories:
  EVENT_SUPPORT:
    - item: ambulance
      unitPrice: 900
      formula: PER_KM
`), 0o600))

	out, err := execute(t, "rates", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "staffing")

	_, err = execute(t, "rates", "validate", bad)
	assert.Error(t, err, "event support cannot be priced by distance")
}

func TestRatesImport_RequiresConfirmation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`currency: KRW
categories:
  EVENT_SUPPORT:
    - item: staffing
      unitPrice: 1
      formula: FLAT
`), 0o600))

	_, err := execute(t, "rates", "import", "--dsn", "postgres://unused", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--confirm")
}
