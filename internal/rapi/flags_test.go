package rapi

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_0229(t *testing.T) {
	flags, err := ParseFlags("0229")
	require.NoError(t, err)
	assert.Equal(t, 2, flags.ServiceLevel())
	assert.False(t, flags.GFISelfTest())
	assert.False(t, flags.GroundCheck())
	assert.False(t, flags.AutoServiceLevel())
	assert.True(t, flags.DiodeCheck())
	assert.True(t, flags.TempCheck())
	assert.Equal(t, LCDRGB, flags.LCDType())
}

func TestParseFlags_Invalid(t *testing.T) {
	_, err := ParseFlags("zz")
	assert.True(t, errors.Is(err, ErrParseError))
	_, err = ParseFlags("10000")
	assert.True(t, errors.Is(err, ErrParseError))
}

func TestFlags_SingleBits(t *testing.T) {
	for _, bit := range FlagTable {
		t.Run(bit.Name, func(t *testing.T) {
			settings := Flags(bit.Mask).Settings()
			zero := Flags(0).Settings()
			for name, value := range settings {
				if name != bit.Name {
					assert.Equal(t, zero[name], value, "bit %04X changed %s", bit.Mask, name)
				}
			}
			switch bit.Name {
			case FlagServiceLevel:
				assert.Equal(t, 2, settings[bit.Name])
				assert.Equal(t, 1, zero[bit.Name])
			case FlagLCDType:
				assert.Equal(t, LCDMonochrome, settings[bit.Name])
				assert.Equal(t, LCDRGB, zero[bit.Name])
			case FlagSerialDebug:
				assert.Equal(t, true, settings[bit.Name])
				assert.Equal(t, false, zero[bit.Name])
			default:
				assert.Equal(t, false, settings[bit.Name])
				assert.Equal(t, true, zero[bit.Name])
			}
		})
	}
}

func TestFlags_With(t *testing.T) {
	flags := Flags(0)
	flags = flags.With(FlagDiodeCheck, false)
	assert.Equal(t, Flags(0x0002), flags)
	flags = flags.With(FlagSerialDebug, true)
	assert.Equal(t, Flags(0x0082), flags)
	flags = flags.With(FlagDiodeCheck, true)
	assert.Equal(t, Flags(0x0080), flags)
	assert.Equal(t, flags, flags.With("unknown", true))
	assert.Equal(t, "0080", flags.Hex())
	for _, bit := range FlagTable {
		for _, on := range []bool{true, false} {
			assert.Equal(t, on, Flags(0x0229).With(bit.Name, on).Enabled(bit.Name), bit.Name)
		}
	}
}

func TestFlags_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Flags(0x0100))
	require.NoError(t, err)
	var settings map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &settings))
	assert.Equal(t, "monochrome", settings[FlagLCDType])
	assert.Equal(t, float64(1), settings[FlagServiceLevel])
	assert.Equal(t, true, settings[FlagTempCheck])
}
