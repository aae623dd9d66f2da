package realtime

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/cache"
)

func TestRegistryBroadcastRespectsRooms(t *testing.T) {
	registry := NewRegistry(cache.NewMemoryStore(), nil)
	tenantID := uuid.New()
	channelID := uuid.New()
	ctx := context.Background()

	subscribed := entities.NewSession(uuid.New(), tenantID, []string{"dispatcher"})
	subscribed.JoinRoom(entities.ChannelRoom(tenantID, channelID))
	subscribedFeed := registry.Add(ctx, subscribed)

	bystander := entities.NewSession(uuid.New(), tenantID, []string{"dispatcher"})
	bystander.JoinRoom(entities.OrgRoom(tenantID))
	bystanderFeed := registry.Add(ctx, bystander)

	foreign := entities.NewSession(uuid.New(), uuid.New(), []string{"dispatcher"})
	foreign.JoinRoom(entities.ChannelRoom(tenantID, channelID))
	foreignFeed := registry.Add(ctx, foreign)

	if registry.Count() != 3 {
		t.Fatalf("expected 3 connections, got %d", registry.Count())
	}

	event := entities.NewDomainEvent(entities.EventTransmissionCompleted, tenantID, "tm-1",
		entities.ChannelRoom(tenantID, channelID), nil)
	if delivered := registry.Broadcast(event); delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}

	select {
	case got := <-subscribedFeed:
		if got.Type != entities.EventTransmissionCompleted {
			t.Fatalf("unexpected event type %s", got.Type)
		}
	default:
		t.Fatal("subscribed session received nothing")
	}
	select {
	case <-bystanderFeed:
		t.Fatal("unsubscribed session received the event")
	default:
	}
	select {
	case <-foreignFeed:
		t.Fatal("foreign tenant received the event")
	default:
	}
}

func TestRegistryBroadcastSkipsFullBuffers(t *testing.T) {
	registry := NewRegistry(cache.NewMemoryStore(), nil)
	tenantID := uuid.New()
	ctx := context.Background()

	session := entities.NewSession(uuid.New(), tenantID, []string{"dispatcher"})
	room := entities.OrgRoom(tenantID)
	session.JoinRoom(room)
	registry.Add(ctx, session)

	event := entities.NewDomainEvent(entities.EventTransmissionCompleted, tenantID, "tm-1", room, nil)
	for i := 0; i < 64; i++ {
		if delivered := registry.Broadcast(event); delivered != 1 {
			t.Fatalf("delivery %d failed", i)
		}
	}
	// Buffer is full; the event is dropped instead of blocking.
	if delivered := registry.Broadcast(event); delivered != 0 {
		t.Fatalf("expected drop on full buffer, got %d deliveries", delivered)
	}
}

func TestRegistryRoomMembership(t *testing.T) {
	registry := NewRegistry(cache.NewMemoryStore(), nil)
	tenantID := uuid.New()
	ctx := context.Background()

	session := entities.NewSession(uuid.New(), tenantID, []string{"dispatcher"})
	registry.Add(ctx, session)

	room := entities.IncidentRoom(tenantID, "INC-9")
	if err := registry.AddRoom(ctx, session.ID, room); err != nil {
		t.Fatalf("add room failed: %v", err)
	}
	if !session.InRoom(room) {
		t.Fatal("session not subscribed after AddRoom")
	}
	if err := registry.RemoveRoom(ctx, session.ID, room); err != nil {
		t.Fatalf("remove room failed: %v", err)
	}
	if session.InRoom(room) {
		t.Fatal("session still subscribed after RemoveRoom")
	}

	if err := registry.AddRoom(ctx, "no-such-session", room); err != entities.ErrSessionNotFound {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestRegistryLookupFallsBackToStore(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	// Instance A holds the live connection and mirrors the session.
	instanceA := NewRegistry(store, nil)
	session := entities.NewSession(uuid.New(), uuid.New(), []string{"dispatcher"})
	session.JoinRoom(entities.OrgRoom(session.TenantID))
	instanceA.Add(ctx, session)

	// Instance B shares only the store.
	instanceB := NewRegistry(store, nil)
	got, err := instanceB.Lookup(ctx, session.ID)
	if err != nil {
		t.Fatalf("cross-instance lookup failed: %v", err)
	}
	if got.UserID != session.UserID || len(got.Rooms) != 1 {
		t.Fatalf("mirrored session incomplete: %+v", got)
	}

	// Removing the connection deletes the mirror.
	instanceA.Remove(ctx, session.ID)
	if _, err := instanceB.Lookup(ctx, session.ID); err != entities.ErrSessionNotFound {
		t.Fatalf("expected session not found after remove, got %v", err)
	}
}
