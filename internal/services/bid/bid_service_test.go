package bid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/logger"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/notify"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/testutil"
)

type counter struct{ n int }

func (c *counter) BidCreated() { c.n++ }

func TestCreate(t *testing.T) {
	gdb := testutil.NewDB(t)
	rec := &testutil.Recorder{}
	obs := &counter{}
	svc := NewService(gdb, rec, logger.Discard())
	svc.Observer = obs
	ctx := context.Background()

	buyer := testutil.CreateUser(t, gdb, models.RoleBuyer, "Bea")
	seller := testutil.CreateUser(t, gdb, models.RoleSeller, "Sam")
	p := testutil.CreateProject(t, gdb, buyer)

	in := CreateInput{ProjectID: p.ID, Amount: 150, DeliveryTime: 3, Message: "I can do it"}
	b, err := svc.Create(ctx, seller, in)
	require.NoError(t, err)
	assert.Equal(t, models.BidPending, b.Status)
	assert.Equal(t, seller.ID, b.SellerID)
	assert.Equal(t, 1, obs.n)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.BidCreated, events[0].Kind)
	assert.Equal(t, buyer.ID, events[0].UserID)
	assert.Equal(t, "Sam", events[0].ActorName)

	_, err = svc.Create(ctx, seller, in)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Create(ctx, buyer, in)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	in.ProjectID = uuid.New()
	_, err = svc.Create(ctx, seller, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Len(t, rec.Events(), 1)
}

func TestCreateValidation(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, notify.Nop{}, logger.Discard())
	seller := testutil.CreateUser(t, gdb, models.RoleSeller, "Sam")
	p := testutil.CreateProject(t, gdb, testutil.CreateUser(t, gdb, models.RoleBuyer, "Bea"))

	_, err := svc.Create(context.Background(), seller, CreateInput{ProjectID: p.ID, Amount: 0, DeliveryTime: -1, Message: " "})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "amount")
	assert.Contains(t, ae.Fields, "delivery_time")
	assert.Contains(t, ae.Fields, "message")
}

func TestCreateOnClosedProject(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, notify.Nop{}, logger.Discard())
	seller := testutil.CreateUser(t, gdb, models.RoleSeller, "Sam")
	p := testutil.CreateProject(t, gdb, testutil.CreateUser(t, gdb, models.RoleBuyer, "Bea"))
	require.NoError(t, gdb.Model(p).Updates(map[string]any{"status": models.ProjectInProgress, "seller_id": seller.ID}).Error)

	_, err := svc.Create(context.Background(), seller, CreateInput{ProjectID: p.ID, Amount: 10, DeliveryTime: 1, Message: "late"})
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
}

func TestUpdateAndDelete(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, notify.Nop{}, logger.Discard())
	ctx := context.Background()
	buyer := testutil.CreateUser(t, gdb, models.RoleBuyer, "Bea")
	seller := testutil.CreateUser(t, gdb, models.RoleSeller, "Sam")
	other := testutil.CreateUser(t, gdb, models.RoleSeller, "Sid")
	p := testutil.CreateProject(t, gdb, buyer)
	b := testutil.CreateBid(t, gdb, p, seller, 150)

	amount := int64(140)
	got, err := svc.Update(ctx, seller, b.ID, UpdateInput{Amount: &amount})
	require.NoError(t, err)
	assert.EqualValues(t, 140, got.Amount)
	assert.Equal(t, b.Message, got.Message)

	_, err = svc.Update(ctx, other, b.ID, UpdateInput{Amount: &amount})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	zero := int64(0)
	_, err = svc.Update(ctx, seller, b.ID, UpdateInput{Amount: &zero})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.ErrorIs(t, svc.Delete(ctx, other, b.ID), apperr.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, seller, b.ID))
	assert.ErrorIs(t, svc.Delete(ctx, seller, b.ID), apperr.ErrNotFound)
}

func TestChangesBlockedAfterSelection(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, notify.Nop{}, logger.Discard())
	ctx := context.Background()
	seller := testutil.CreateUser(t, gdb, models.RoleSeller, "Sam")
	p := testutil.CreateProject(t, gdb, testutil.CreateUser(t, gdb, models.RoleBuyer, "Bea"))
	b := testutil.CreateBid(t, gdb, p, seller, 150)
	require.NoError(t, gdb.Model(p).Updates(map[string]any{"status": models.ProjectInProgress, "seller_id": seller.ID}).Error)
	require.NoError(t, gdb.Model(b).Update("status", models.BidAccepted).Error)

	amount := int64(1)
	_, err := svc.Update(ctx, seller, b.ID, UpdateInput{Amount: &amount})
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
	assert.ErrorIs(t, svc.Delete(ctx, seller, b.ID), apperr.ErrPrecondition)
}

func TestGetAndListForSeller(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, notify.Nop{}, logger.Discard())
	ctx := context.Background()
	buyer := testutil.CreateUser(t, gdb, models.RoleBuyer, "Bea")
	seller := testutil.CreateUser(t, gdb, models.RoleSeller, "Sam")
	stranger := testutil.CreateUser(t, gdb, models.RoleSeller, "Sid")
	p := testutil.CreateProject(t, gdb, buyer)
	b := testutil.CreateBid(t, gdb, p, seller, 150)

	_, err := svc.Get(ctx, seller, b.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, buyer, b.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, stranger, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	list, err := svc.ListForSeller(ctx, seller)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Project)
	assert.Equal(t, p.Title, list[0].Project.Title)
	require.NotNil(t, list[0].Project.Buyer)
	assert.Equal(t, "Bea", list[0].Project.Buyer.Name)
	assert.Empty(t, list[0].Project.Buyer.Email)

	_, err = svc.ListForSeller(ctx, buyer)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
