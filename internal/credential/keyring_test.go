package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPrefersEnvironment(t *testing.T) {
	t.Setenv("LECTUREBOARD_STORE_API_KEY", "from-env")

	v, err := Lookup(KeyStoreAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}
