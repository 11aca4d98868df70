package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidProduct(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	p, err := New("prod-1", "  Linen Shirt ", "Summer line", now)

	require.NoError(t, err)
	assert.Equal(t, "prod-1", p.ID)
	assert.Equal(t, "Linen Shirt", p.Name)
	assert.Equal(t, "Summer line", p.Description)
	assert.True(t, p.IsActive)
	assert.Equal(t, now, p.CreatedAt)
}

func TestNew_EmptyName(t *testing.T) {
	p, err := New("prod-1", "   ", "", time.Now())

	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Nil(t, p)
}
