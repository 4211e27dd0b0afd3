package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBuyerInput(name string) *BuyerInput {
	return &BuyerInput{
		BuyerNTNCNIC:          "7000887841177",
		BuyerBusinessName:     name,
		BuyerProvince:         "Sindh",
		BuyerAddress:          "Karachi",
		BuyerRegistrationType: "Registered",
	}
}

func TestBuyerService_Create(t *testing.T) {
	h := setupHandle(t, "svc_buyer_create")
	svc := NewBuyerService()

	buyer, err := svc.Create(context.Background(), h, sampleBuyerInput("Retail Mart"))
	require.NoError(t, err)
	assert.NotZero(t, buyer.ID)
	assert.Equal(t, "Retail Mart", buyer.BusinessName)
}

func TestBuyerService_Create_Validation(t *testing.T) {
	h := setupHandle(t, "svc_buyer_validation")
	svc := NewBuyerService()
	ctx := context.Background()

	in := sampleBuyerInput("No Province")
	in.BuyerProvince = ""
	_, err := svc.Create(ctx, h, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = sampleBuyerInput("No Registration Type")
	in.BuyerRegistrationType = ""
	_, err = svc.Create(ctx, h, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = sampleBuyerInput("")
	_, err = svc.Create(ctx, h, in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuyerService_List(t *testing.T) {
	h := setupHandle(t, "svc_buyer_list")
	svc := NewBuyerService()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := svc.Create(ctx, h, sampleBuyerInput(fmt.Sprintf("Buyer %d", i)))
		require.NoError(t, err)
	}
	special := sampleBuyerInput("Unique Traders")
	special.BuyerNTNCNIC = "9999999999999"
	_, err := svc.Create(ctx, h, special)
	require.NoError(t, err)

	buyers, pagination, err := svc.List(ctx, h, ListBuyersParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, buyers, 2)
	assert.Equal(t, int64(4), pagination.TotalRecords)

	buyers, _, err = svc.List(ctx, h, ListBuyersParams{Search: "Unique"})
	require.NoError(t, err)
	require.Len(t, buyers, 1)
	assert.Equal(t, "Unique Traders", buyers[0].BusinessName)

	buyers, _, err = svc.List(ctx, h, ListBuyersParams{Search: "9999999999999"})
	require.NoError(t, err)
	assert.Len(t, buyers, 1)
}

func TestBuyerService_UpdateAndDelete(t *testing.T) {
	h := setupHandle(t, "svc_buyer_update_delete")
	svc := NewBuyerService()
	ctx := context.Background()

	buyer, err := svc.Create(ctx, h, sampleBuyerInput("Old Name"))
	require.NoError(t, err)

	in := sampleBuyerInput("New Name")
	updated, err := svc.Update(ctx, h, buyer.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.BusinessName)

	require.NoError(t, svc.Delete(ctx, h, buyer.ID))

	_, err = svc.GetByID(ctx, h, buyer.ID)
	assert.ErrorIs(t, err, ErrBuyerNotFound)

	err = svc.Delete(ctx, h, 12345)
	assert.ErrorIs(t, err, ErrBuyerNotFound)
}
