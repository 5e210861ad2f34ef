package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ORG_TIMEZONE", "")
	t.Setenv("ORG_DOMAINS", "")
	t.Setenv("SCAN_DAYS", "")

	require.NoError(t, Load())

	assert.Equal(t, "America/Mexico_City", AppConfig.Organization.Timezone.String())
	assert.Equal(t, "52", AppConfig.Organization.DefaultCountryCode)
	assert.Equal(t, 21, AppConfig.Engine.ScanDays)
	assert.Equal(t, 1, AppConfig.Engine.SnoozeDays)
	assert.Empty(t, AppConfig.Organization.Domains)
}

func TestLoadOrganizationOverrides(t *testing.T) {
	t.Setenv("ORG_TIMEZONE", "Europe/Madrid")
	t.Setenv("ORG_DOMAINS", " Acme.com, ventas.acme.com ,,")
	t.Setenv("DEFAULT_COUNTRY_CODE", "+34")
	t.Setenv("CALENDAR_OWNER_EMAIL", "Owner@Acme.com")

	require.NoError(t, Load())

	assert.Equal(t, "Europe/Madrid", AppConfig.Organization.TimezoneName)
	assert.Equal(t, []string{"acme.com", "ventas.acme.com"}, AppConfig.Organization.Domains)
	assert.Equal(t, "34", AppConfig.Organization.DefaultCountryCode)
	assert.Equal(t, "owner@acme.com", AppConfig.Organization.OwnerEmail)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("Unknown timezone", func(t *testing.T) {
		t.Setenv("ORG_TIMEZONE", "Mars/Olympus")
		assert.Error(t, Load())
	})

	t.Run("Non-positive scan window", func(t *testing.T) {
		t.Setenv("ORG_TIMEZONE", "UTC")
		t.Setenv("SCAN_DAYS", "0")
		assert.Error(t, Load())
	})

	t.Run("Non-numeric int falls back to default", func(t *testing.T) {
		t.Setenv("ORG_TIMEZONE", "UTC")
		t.Setenv("SCAN_DAYS", "")
		t.Setenv("SNOOZE_DAYS", "soon")
		require.NoError(t, Load())
		assert.Equal(t, 1, AppConfig.Engine.SnoozeDays)
	})
}
