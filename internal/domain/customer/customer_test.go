package customer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"012345678", "012345678"},
		{" 012 345 678 ", "012345678"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in))
	}
}

func TestCustomer_Rename(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	c := &Customer{FullName: "Sok Dara", UpdatedAt: created}

	assert.False(t, c.Rename("Sok Dara", later))
	assert.Equal(t, created, c.UpdatedAt)

	assert.False(t, c.Rename("  ", later))

	assert.True(t, c.Rename("Sok Dara Chan", later))
	assert.Equal(t, "Sok Dara Chan", c.FullName)
	assert.Equal(t, later, c.UpdatedAt)
}
