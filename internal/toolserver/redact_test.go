package toolserver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

var hrUnmasked = models.RoleSet{models.RoleHRWrite}

func TestMaskedNumberHiddenForReadOnlyCaller(t *testing.T) {
	caller := models.CallerContext{Roles: models.RoleSet{models.RoleHRRead}}

	out, err := json.Marshal(Number(95000, caller, hrUnmasked))
	require.NoError(t, err)
	assert.Equal(t, `"*** (Hidden)"`, string(out))
}

func TestMaskedNumberVisibleForUnmaskingRole(t *testing.T) {
	caller := models.CallerContext{Roles: models.RoleSet{models.RoleHRWrite}}

	out, err := json.Marshal(Number(95000, caller, hrUnmasked))
	require.NoError(t, err)
	assert.Equal(t, `95000`, string(out))
}

func TestExecutiveUnmasksEverything(t *testing.T) {
	caller := models.CallerContext{Roles: models.RoleSet{models.RoleExecutive}}

	num, err := json.Marshal(Number(95000, caller, hrUnmasked))
	require.NoError(t, err)
	assert.Equal(t, `95000`, string(num))

	str, err := json.Marshal(String("123-45-6789", caller, hrUnmasked))
	require.NoError(t, err)
	assert.Equal(t, `"123-45-6789"`, string(str))
}

func TestMaskedStringHidden(t *testing.T) {
	caller := models.CallerContext{Roles: models.RoleSet{models.RoleHRRead}}

	out, err := json.Marshal(String("123-45-6789", caller, hrUnmasked))
	require.NoError(t, err)
	assert.Equal(t, `"*** (Hidden)"`, string(out))
}
