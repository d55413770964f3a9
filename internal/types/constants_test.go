package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedOrigins(t *testing.T) {
	t.Cleanup(func() { SetAllowedOrigins(nil) })

	assert.True(t, IsAllowedOrigin("http://localhost:5173"))

	SetAllowedOrigins([]string{"https://pms.example"})
	assert.True(t, IsAllowedOrigin("https://pms.example"))
	assert.False(t, IsAllowedOrigin("http://localhost:5173"))

	SetAllowedOrigins(nil)
	assert.Equal(t, defaultOrigins, AllowedOrigins())
}
