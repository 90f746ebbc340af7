package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractVehicleEntityColorMakeModel(t *testing.T) {
	info := ExtractVehicleEntity("A white Toyota Camry pulled into the driveway")
	require.NotNil(t, info)
	require.Equal(t, "white", *info.Color)
	require.Equal(t, "toyota", *info.Make)
	require.Equal(t, "camry", *info.Model)
	require.Equal(t, "white-toyota-camry", *info.Signature)
}

func TestExtractVehicleEntityHyphenatedModelNormalized(t *testing.T) {
	info := ExtractVehicleEntity("Black Ford F-150 parked on street")
	require.NotNil(t, info)
	require.Equal(t, "black", *info.Color)
	require.Equal(t, "ford", *info.Make)
	require.Equal(t, "f150", *info.Model)
	require.Equal(t, "black-ford-f150", *info.Signature)
}

func TestExtractVehicleEntityInsufficientDataReturnsNil(t *testing.T) {
	require.Nil(t, ExtractVehicleEntity("A red car passed by"))
}

func TestExtractVehicleEntityEmptyDescription(t *testing.T) {
	require.Nil(t, ExtractVehicleEntity(""))
}

func TestExtractVehicleEntitySynonymNormalization(t *testing.T) {
	info := ExtractVehicleEntity("A grey Chevy truck drove past")
	require.NotNil(t, info)
	require.Equal(t, "gray", *info.Color)
	require.Equal(t, "chevrolet", *info.Make)
}

func TestExtractVehicleEntityVWNormalizedToVolkswagen(t *testing.T) {
	info := ExtractVehicleEntity("A blue VW Golf arrived")
	require.NotNil(t, info)
	require.Equal(t, "volkswagen", *info.Make)
}

func TestExtractVehicleEntityEarliestMakeWins(t *testing.T) {
	// "Honda" appears after "Ford" in this sentence; Ford should win even
	// though the model below belongs to Honda's lineup in the word list.
	info := ExtractVehicleEntity("A white Ford near a blue Honda Civic")
	require.NotNil(t, info)
	require.Equal(t, "ford", *info.Make)
}

func TestExtractVehicleEntityPatternFallbackModel(t *testing.T) {
	info := ExtractVehicleEntity("A white Toyota Supra in the lot")
	require.NotNil(t, info)
	require.Equal(t, "toyota", *info.Make)
	require.Equal(t, "supra", *info.Model)
}
