package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"auto_sniper/models"
)

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Kraków", "Kraków"},
		{"Kraków, Podgórze", "Kraków"},
		{"Warszawa (Mazowieckie)", "Warszawa"},
		{"Warszawa (Mazowieckie), Mokotów", "Warszawa"},
		{"Gdańsk,  ", "Gdańsk"},
		{"  Poznań , Jeżyce", "Poznań"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLocation(tt.in), tt.in)
	}
}

func TestMergeKey(t *testing.T) {
	a := models.Listing{
		Car:      models.Car{Year: 2018, Mileage: 90000},
		Metadata: models.ListingMetadata{Price: 59900, Location: "Kraków, Nowa Huta"},
	}
	b := a
	b.Metadata.Location = "Kraków (Małopolskie)"

	assert.Equal(t, "2018|90000|59900|Kraków", MergeKey(a))
	assert.Equal(t, MergeKey(a), MergeKey(b))
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	b.Metadata.Price = 59899
	assert.NotEqual(t, MergeKey(a), MergeKey(b))
}
