package detect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTristateJSON(t *testing.T) {
	// Consumers read found as true, false, or null; null means "could not
	// be verified", which is distinct from a confident false.
	data, err := json.Marshal(Result{Found: Found, Method: MethodBrowser})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"found":true`)

	data, err = json.Marshal(Result{Found: NotFound, Method: MethodBrowser})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"found":false`)

	data, err = json.Marshal(Result{Found: Unknown, Method: MethodTimeout})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"found":null`)

	var round Result
	require.NoError(t, json.Unmarshal(data, &round))
	assert.Equal(t, Unknown, round.Found)
}

func TestResultConclusive(t *testing.T) {
	assert.True(t, Result{Found: Found}.Conclusive())
	assert.True(t, Result{Found: NotFound}.Conclusive())
	assert.False(t, Result{Found: Unknown}.Conclusive())
	assert.False(t, Result{Found: Found, Error: "boom"}.Conclusive())
}
