package source_test

import (
	"testing"

	"codeberg.org/mutker/printwatch/internal/source"
	"github.com/stretchr/testify/assert"
)

func TestStatusFlagHasAndString(t *testing.T) {
	f := source.StatusPaused | source.StatusPrinting

	assert.True(t, f.Has(source.StatusPaused))
	assert.True(t, f.Has(source.StatusPrinting))
	assert.False(t, f.Has(source.StatusError))
	assert.Equal(t, "paused|printing", f.String())
	assert.Equal(t, "", source.StatusFlag(0).String())
}

func TestParseStatusFlag(t *testing.T) {
	f, ok := source.ParseStatusFlag(" Paper_Out ")
	assert.True(t, ok)
	assert.Equal(t, source.StatusPaperOut, f)

	_, ok = source.ParseStatusFlag("jammed")
	assert.False(t, ok)
}

func TestDeviceSettingsHas(t *testing.T) {
	var nilSettings *source.DeviceSettings
	assert.False(t, nilSettings.Has(source.FieldColor))

	s := &source.DeviceSettings{Fields: source.FieldColor | source.FieldPaperSize}
	assert.True(t, s.Has(source.FieldColor))
	assert.False(t, s.Has(source.FieldDuplex))
	assert.True(t, s.Has(source.FieldPaperSize))
}
