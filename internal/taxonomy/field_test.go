package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ByKey(t *testing.T) {
	reg := NewRegistry()

	f := reg.ByKey(FieldEmail)
	require.NotNil(t, f)
	assert.Equal(t, FormatEmail, f.Format)
	assert.Equal(t, 1.0, f.Cost)

	assert.Nil(t, reg.ByKey("nope"))
}

func TestRegistry_ByExternalName(t *testing.T) {
	reg := NewRegistry()

	f := reg.ByExternalName("LinkedIn URL")
	require.NotNil(t, f)
	assert.Equal(t, FieldLinkedinURL, f.Key)
}

func TestRegistry_Known(t *testing.T) {
	reg := NewRegistry()

	assert.True(t, reg.Known(FieldBuyingIntent))
	assert.False(t, reg.Known("favoriteColor"))
}

func TestRegistry_DefaultsAreKnown(t *testing.T) {
	reg := NewRegistry()

	defaults := reg.Defaults()
	require.NotEmpty(t, defaults)
	for _, k := range defaults {
		assert.True(t, reg.Known(k), "default %s must be in the taxonomy", k)
	}
}

func TestRegistry_IntentFieldsCarryOptions(t *testing.T) {
	reg := NewRegistry()

	for _, key := range []string{FieldBuyingIntent, FieldPartnershipIntentLevel} {
		f := reg.ByKey(key)
		require.NotNil(t, f)
		assert.Equal(t, FormatOptions, f.Format)
		assert.Equal(t, []string{"High", "Medium", "Low"}, f.Options)
	}
}

func TestRegistry_EveryFieldHasInstruction(t *testing.T) {
	reg := NewRegistry()

	for _, f := range reg.All() {
		assert.NotEmpty(t, f.Instruction, "field %s", f.Key)
		assert.Greater(t, f.Cost, 0.0, "field %s", f.Key)
	}
}
