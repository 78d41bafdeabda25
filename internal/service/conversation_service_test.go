package service

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/pkg/listing"
	"Homestead/internal/pkg/realtime"
	"context"
	"sync"
	"testing"
	"time"
)

func newConversationFixture() (*fakeConversationRepo, *fakePresenceRepo, *fakeMessageRepo, *fakeListingClient, ConversationService) {
	convRepo := newFakeConversationRepo()
	presenceRepo := newFakePresenceRepo()
	msgRepo := newFakeMessageRepo()
	listingClient := newFakeListingClient()
	router := realtime.NewRouter(realtime.NewMemoryBroker())
	svc := NewConversationService(convRepo, presenceRepo, msgRepo, listingClient, router)
	return convRepo, presenceRepo, msgRepo, listingClient, svc
}

func TestGetOrCreate_CreatesWithSnapshot(t *testing.T) {
	_, _, _, listingClient, svc := newConversationFixture()
	listingClient.listings[100] = &listing.Info{
		ListingID: 100, SellerID: 2, Title: "海景两居室", ImageURL: "https://img/1.jpg",
	}

	conv, err := svc.GetOrCreate(context.Background(), 1, &dto.CreateConversationReq{ListingID: 100, SellerID: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if conv.BuyerID != 1 || conv.SellerID != 2 || conv.ListingID != 100 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
	if conv.ListingTitle != "海景两居室" {
		t.Fatalf("listing snapshot not applied: %+v", conv)
	}
	if conv.PeerID != 2 {
		t.Fatalf("peer should be seller, got %d", conv.PeerID)
	}
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	_, _, _, _, svc := newConversationFixture()
	ctx := context.Background()
	req := &dto.CreateConversationReq{ListingID: 100, SellerID: 2}

	first, err := svc.GetOrCreate(ctx, 1, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := svc.GetOrCreate(ctx, 1, req)
	if err != nil {
		t.Fatalf("repeat create failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same conversation, got %d and %d", first.ID, second.ID)
	}
}

func TestGetOrCreate_ConcurrentConverges(t *testing.T) {
	_, _, _, _, svc := newConversationFixture()
	req := &dto.CreateConversationReq{ListingID: 100, SellerID: 2}

	const n = 16
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := svc.GetOrCreate(context.Background(), 1, req)
			if err != nil {
				t.Errorf("concurrent create failed: %v", err)
				return
			}
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent creates diverged: %v", ids)
		}
	}
}

func TestGetOrCreate_SelfConversationRejected(t *testing.T) {
	_, _, _, _, svc := newConversationFixture()
	_, err := svc.GetOrCreate(context.Background(), 2, &dto.CreateConversationReq{ListingID: 100, SellerID: 2})
	if err != ErrSelfConversation {
		t.Fatalf("expected ErrSelfConversation, got %v", err)
	}
}

func TestGetOrCreate_SellerMismatchRejected(t *testing.T) {
	_, _, _, listingClient, svc := newConversationFixture()
	listingClient.listings[100] = &listing.Info{ListingID: 100, SellerID: 9}

	_, err := svc.GetOrCreate(context.Background(), 1, &dto.CreateConversationReq{ListingID: 100, SellerID: 2})
	if err != ErrListingInvalid {
		t.Fatalf("expected ErrListingInvalid, got %v", err)
	}
}

func TestGetOrCreate_ListingServiceDownIsNotFatal(t *testing.T) {
	_, _, _, listingClient, svc := newConversationFixture()
	listingClient.fail = true

	conv, err := svc.GetOrCreate(context.Background(), 1, &dto.CreateConversationReq{ListingID: 100, SellerID: 2})
	if err != nil {
		t.Fatalf("create should survive listing outage: %v", err)
	}
	if conv.SellerID != 2 {
		t.Fatalf("should fall back to requested seller, got %d", conv.SellerID)
	}
}

func TestSoftDelete_HidesOnlyForRequester(t *testing.T) {
	_, _, _, _, svc := newConversationFixture()
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, 1, &dto.CreateConversationReq{ListingID: 100, SellerID: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err = svc.SoftDelete(ctx, 1, conv.ID); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	buyerList, err := svc.ListFor(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(buyerList) != 0 {
		t.Fatalf("conversation should be hidden for buyer, got %d items", len(buyerList))
	}

	sellerList, err := svc.ListFor(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sellerList) != 1 {
		t.Fatalf("conversation should stay visible for seller, got %d items", len(sellerList))
	}
}

func TestSoftDelete_RecontactRevives(t *testing.T) {
	_, _, _, _, svc := newConversationFixture()
	ctx := context.Background()
	req := &dto.CreateConversationReq{ListingID: 100, SellerID: 2}

	conv, err := svc.GetOrCreate(ctx, 1, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err = svc.SoftDelete(ctx, 1, conv.ID); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	// 再次发起会话应复用并复活同一条记录
	revived, err := svc.GetOrCreate(ctx, 1, req)
	if err != nil {
		t.Fatalf("recontact failed: %v", err)
	}
	if revived.ID != conv.ID {
		t.Fatalf("expected revived conversation %d, got %d", conv.ID, revived.ID)
	}

	list, err := svc.ListFor(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("revived conversation should be visible, got %d items", len(list))
	}
}

func TestSoftDelete_NonParticipantRejected(t *testing.T) {
	_, _, _, _, svc := newConversationFixture()
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, 1, &dto.CreateConversationReq{ListingID: 100, SellerID: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err = svc.SoftDelete(ctx, 99, conv.ID); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestListFor_PeerOnlineFlag(t *testing.T) {
	_, presenceRepo, _, _, svc := newConversationFixture()
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, 1, &dto.CreateConversationReq{ListingID: 100, SellerID: 2}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_ = presenceRepo.Touch(ctx, 2, time.Now())

	list, err := svc.ListFor(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || !list[0].PeerOnline {
		t.Fatalf("peer should be reported online: %+v", list)
	}

	_ = presenceRepo.Clear(ctx, 2)
	list, err = svc.ListFor(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list[0].PeerOnline {
		t.Fatalf("peer should be reported offline after clear")
	}
}
