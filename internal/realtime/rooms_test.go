package realtime

import (
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/dispatchcrew/airdispatch/errors"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/pkg/jwt"
)

func TestParseRoom(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name    string
		id      string
		want    Room
		wantErr bool
	}{
		{
			name: "org room",
			id:   "org:" + tenantID.String(),
			want: Room{Scope: ScopeOrg, TenantID: tenantID},
		},
		{
			name: "admin room",
			id:   "admin:" + tenantID.String(),
			want: Room{Scope: ScopeAdmin, TenantID: tenantID},
		},
		{
			name: "channel room",
			id:   "channel:" + tenantID.String() + ":ch-42",
			want: Room{Scope: ScopeChannel, TenantID: tenantID, ResourceID: "ch-42"},
		},
		{
			name: "incident room",
			id:   "incident:" + tenantID.String() + ":INC-7",
			want: Room{Scope: ScopeIncident, TenantID: tenantID, ResourceID: "INC-7"},
		},
		{name: "single segment", id: "org", wantErr: true},
		{name: "too many segments", id: "channel:" + tenantID.String() + ":a:b", wantErr: true},
		{name: "bad tenant", id: "org:not-a-uuid", wantErr: true},
		{name: "nil tenant", id: "org:00000000-0000-0000-0000-000000000000", wantErr: true},
		{name: "unknown scope", id: "lobby:" + tenantID.String(), wantErr: true},
		{name: "org with resource", id: "org:" + tenantID.String() + ":extra", wantErr: true},
		{name: "channel without resource", id: "channel:" + tenantID.String(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoom(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %+v", tt.id, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q failed: %v", tt.id, err)
			}
			if got != tt.want {
				t.Fatalf("parse %q = %+v, want %+v", tt.id, got, tt.want)
			}
			if got.ID() != tt.id {
				t.Fatalf("round trip %q = %q", tt.id, got.ID())
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	tenantID := uuid.New()
	otherTenant := uuid.New()

	tests := []struct {
		name   string
		roles  []string
		room   Room
		denied bool
	}{
		{name: "org room any role", roles: []string{"dispatcher"}, room: Room{Scope: ScopeOrg, TenantID: tenantID}},
		{name: "channel room any role", roles: []string{"dispatcher"}, room: Room{Scope: ScopeChannel, TenantID: tenantID, ResourceID: "ch-1"}},
		{name: "incident room any role", roles: []string{"viewer"}, room: Room{Scope: ScopeIncident, TenantID: tenantID, ResourceID: "INC-1"}},
		{name: "admin room as dispatcher", roles: []string{"dispatcher"}, room: Room{Scope: ScopeAdmin, TenantID: tenantID}, denied: true},
		{name: "admin room as admin", roles: []string{"admin"}, room: Room{Scope: ScopeAdmin, TenantID: tenantID}},
		{name: "admin room as superadmin", roles: []string{"superadmin"}, room: Room{Scope: ScopeAdmin, TenantID: tenantID}},
		{name: "foreign tenant", roles: []string{"admin"}, room: Room{Scope: ScopeOrg, TenantID: otherTenant}, denied: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := &jwt.Claims{UserID: uuid.New(), TenantID: tenantID, Roles: tt.roles}
			err := Authorize(claims, tt.room)
			if tt.denied {
				appErr, ok := apperrors.AsAppError(err)
				if !ok || appErr.Code != apperrors.ErrorCode_PERMISSION_DENIED {
					t.Fatalf("expected permission denied, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("authorize failed: %v", err)
			}
		})
	}
}

func TestAuthorizeEvent(t *testing.T) {
	tenantID := uuid.New()
	session := entities.NewSession(uuid.New(), tenantID, []string{"dispatcher"})
	room := entities.OrgRoom(tenantID)
	session.JoinRoom(room)

	inRoom := entities.NewDomainEvent(entities.EventTransmissionCompleted, tenantID, "tm-1", room, nil)
	if !AuthorizeEvent(session, inRoom) {
		t.Fatal("subscribed session must receive its room's events")
	}

	otherRoom := entities.NewDomainEvent(entities.EventTransmissionCompleted, tenantID, "tm-1",
		entities.ChannelRoom(tenantID, uuid.New()), nil)
	if AuthorizeEvent(session, otherRoom) {
		t.Fatal("unsubscribed room must not leak events")
	}

	// An event mislabeled with this session's room but another tenant
	// must still be blocked.
	crossTenant := entities.NewDomainEvent(entities.EventTransmissionCompleted, uuid.New(), "tm-1", room, nil)
	if AuthorizeEvent(session, crossTenant) {
		t.Fatal("cross-tenant event must not be delivered")
	}
}
