package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, raw := range []string{"pending", "accepted", "declined", "approved", "shipped", "delivered", "denied"} {
		got, err := ParseOrderStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, got.String())
	}
	_, err := ParseOrderStatus("cancelled")
	require.Error(t, err)
	_, err = ParseOrderStatus("Pending")
	require.Error(t, err)
}

func TestShipmentStatusIncludesCancelled(t *testing.T) {
	assert.True(t, ShipmentStatusCancelled.IsValid())
	assert.False(t, ShipmentStatus("pending").IsValid())
}

func TestReturnStatusOpen(t *testing.T) {
	assert.True(t, ReturnStatusPending.IsOpen())
	assert.True(t, ReturnStatusApproved.IsOpen())
	assert.True(t, ReturnStatusReceived.IsOpen())
	assert.False(t, ReturnStatusRejected.IsOpen())
	assert.False(t, ReturnStatusRefunded.IsOpen())
}

func TestReturnSourceType(t *testing.T) {
	src, err := ParseReturnSourceType("to_be_shipped")
	require.NoError(t, err)
	assert.Equal(t, ReturnSourceShipment, src)
	_, err = ParseReturnSourceType("invoice")
	require.Error(t, err)
}

func TestPaymentEnums(t *testing.T) {
	status, err := ParsePaymentStatus(" PAID ")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, status)
	_, err = ParsePaymentStatus("settled")
	require.Error(t, err)

	_, err = ParsePaymentMethod("cash_on_delivery")
	require.NoError(t, err)
	assert.False(t, PaymentMethod("crypto").IsValid())
}

func TestProductCategoryAndRole(t *testing.T) {
	assert.True(t, ProductCategoryPhones.IsValid())
	_, err := ParseProductCategory("flower")
	require.Error(t, err)

	role, err := ParseUserRole("admin")
	require.NoError(t, err)
	assert.Equal(t, UserRoleAdmin, role)
}

func TestParseErrorQuotesInput(t *testing.T) {
	_, err := ParseShipmentStatus("lost")
	assert.EqualError(t, err, `invalid shipment status "lost"`)

	_, err = ParsePaymentStatus(" Settled ")
	assert.EqualError(t, err, `invalid payment status " Settled "`)
}
