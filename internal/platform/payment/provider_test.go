package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/escrow-ledger/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(&config.PaymentConfig{Provider: "static"})
	require.NoError(t, err)
	assert.IsType(t, StaticProvider{}, p)

	_, err = NewProvider(&config.PaymentConfig{Provider: "paystack"})
	assert.ErrorContains(t, err, "unknown payment provider")
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	p := StaticProvider{}

	in, err := p.Collect(ctx, CollectRequest{OwnerID: uuid.New(), Amount: 5000, Currency: "NGN", Reference: "VRN_1"})
	require.NoError(t, err)
	out, err := p.Payout(ctx, PayoutRequest{OwnerID: uuid.New(), Amount: 5000, Currency: "NGN", Reference: "VRN_2"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(in.ExternalReference, "PSP-"))
	assert.NotEqual(t, in.ExternalReference, out.ExternalReference)
	assert.Equal(t, "approved", out.Status)
}
