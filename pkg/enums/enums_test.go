package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseApprovalStatus(t *testing.T) {
	status, err := ParseApprovalStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, ApprovalStatusApproved, status)

	_, err = ParseApprovalStatus("maybe")
	assert.Error(t, err)
	assert.False(t, ApprovalStatus("").IsValid())
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPendingPayment.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusPaymentFailed.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusPendingPayment))
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatusPaid.IsTerminal())
}

func TestPaymentProviderIsEuPago(t *testing.T) {
	assert.True(t, PaymentProviderMBWay.IsEuPago())
	assert.True(t, PaymentProviderMultibanco.IsEuPago())
	assert.False(t, PaymentProviderStripe.IsEuPago())

	provider, err := ParsePaymentProvider("paypal")
	require.NoError(t, err)
	assert.Equal(t, PaymentProviderPayPal, provider)
}
