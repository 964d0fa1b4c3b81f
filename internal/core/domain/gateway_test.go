package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayRefund_NotesShapes(t *testing.T) {
	var empty domain.GatewayRefund
	require.NoError(t, json.Unmarshal([]byte(`{"id":"rfnd_1","notes":[]}`), &empty))
	assert.Empty(t, empty.Notes)

	var filled domain.GatewayRefund
	require.NoError(t, json.Unmarshal([]byte(`{"id":"rfnd_2","notes":{"reason":"duplicate"}}`), &filled))
	assert.Equal(t, "duplicate", filled.Notes["reason"])
}
