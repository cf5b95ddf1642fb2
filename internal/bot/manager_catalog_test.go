package bot

import (
	"testing"

	"shamshouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceArgs(t *testing.T) {
	svc, err := parseServiceArgs("Yoga class ; 12,50 € ; fixed ; wellness ; Morning session")
	require.NoError(t, err)
	assert.Equal(t, "Yoga class", svc.Name)
	assert.InDelta(t, 12.5, svc.Price, 0.001)
	assert.Equal(t, models.PriceFixed, svc.PriceType)
	assert.Equal(t, models.CategoryWellness, svc.Category)
	assert.Equal(t, "Morning session", svc.Description)

	_, err = parseServiceArgs("Yoga; twelve; FIXED; WELLNESS")
	assert.Error(t, err)

	_, err = parseServiceArgs("Yoga; 12")
	assert.ErrorIs(t, err, errCatalogFormat)
}

func TestParsePackArgs(t *testing.T) {
	in, err := parsePackArgs("Surf Week; 7; dormitory; 240; 300; 5, 6")
	require.NoError(t, err)
	assert.Equal(t, "Surf Week", in.Name)
	assert.Equal(t, 7, in.DurationDays)
	assert.Equal(t, models.RoomDormitory, in.RoomType)
	assert.InDelta(t, 240, in.PromoPrice, 0.001)
	require.NotNil(t, in.OriginalPrice)
	assert.InDelta(t, 300, *in.OriginalPrice, 0.001)
	assert.Equal(t, []int64{5, 6}, in.IncludedServiceIDs)

	in, err = parsePackArgs("City Break; 3; DOUBLE; 150; -; 5")
	require.NoError(t, err)
	assert.Nil(t, in.OriginalPrice)

	_, err = parsePackArgs("City Break; three; DOUBLE; 150; -; 5")
	assert.Error(t, err)

	_, err = parsePackArgs("City Break; 3; DOUBLE; 150; -; five")
	assert.Error(t, err)
}
