package localization_test

import (
	"testing"
	"testing/fstest"

	"hostelgrievance/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_FormatsBundledMessages(t *testing.T) {
	l := localization.Default()

	msg := l.Format("en", "notify.emergency.warden", "Fire", "Block A - 101", "Asha")
	assert.Equal(t, "🚨 EMERGENCY: Fire in Block A - 101 by Asha", msg)

	msg = l.Format("en", "notify.emergency.resolved", "Fire")
	assert.Equal(t, `Your emergency complaint "Fire" has been resolved`, msg)
}

func TestGetString_FallsBackToEnglishThenKey(t *testing.T) {
	fsys := fstest.MapFS{
		"i18n/en.json": {Data: []byte(`{"greeting": "hello", "bye": "bye"}`)},
		"i18n/uk.json": {Data: []byte(`{"greeting": "привіт"}`)},
		"i18n/README":  {Data: []byte("ignored")},
	}
	l, err := localization.NewLocalizer(fsys, "i18n")
	require.NoError(t, err)

	assert.Equal(t, "привіт", l.GetString("uk", "greeting"))
	assert.Equal(t, "bye", l.GetString("uk", "bye"))
	assert.Equal(t, "missing.key", l.GetString("uk", "missing.key"))
}

func TestNewLocalizer_InvalidJSON(t *testing.T) {
	fsys := fstest.MapFS{"i18n/en.json": {Data: []byte(`{`)}}
	_, err := localization.NewLocalizer(fsys, "i18n")
	assert.Error(t, err)
}
