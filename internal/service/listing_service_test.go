package service

import (
	"testing"
	"time"

	"hive/internal/domain"
)

func TestWantCreationBlocksHours(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 5)

	l := f.want(owner, 2)
	if l.BlockedHours != 2 {
		t.Errorf("BlockedHours = %d, want 2", l.BlockedHours)
	}
	f.assertBalance(owner, 3, 2)

	_, err := f.listings.Create(f.ctx, owner, ListingInput{Type: domain.ListingTypeWant, Title: "Too big", TimeRequired: 4})
	wantErr(t, err, domain.ErrInsufficientCredit)
	f.assertBalance(owner, 3, 2)

	mine, err := f.listings.ListMine(f.ctx, owner, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 {
		t.Errorf("listings = %d, want 1 (failed want must not persist)", len(mine))
	}
}

func TestOfferCreationLeavesLedger(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 0)
	l := f.offer(owner, 3)
	if l.BlockedHours != 0 || l.Status != domain.ListingStatusActive {
		t.Errorf("offer blocked=%d status=%s", l.BlockedHours, l.Status)
	}
	f.assertBalance(owner, 0, 0)
}

func TestWantEditAdjustsHold(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 5)
	l := f.want(owner, 2)

	steps := []struct {
		hours       int
		wantAvail   int
		wantBlocked int
	}{
		{4, 1, 4},
		{1, 4, 1},
		{5, 0, 5},
	}
	for _, s := range steps {
		hours := s.hours
		got, err := f.listings.Update(f.ctx, owner, l.ID, ListingPatch{TimeRequired: &hours})
		if err != nil {
			t.Fatalf("Update(time_required=%d): %v", s.hours, err)
		}
		if got.BlockedHours != s.hours {
			t.Errorf("BlockedHours = %d, want %d", got.BlockedHours, s.hours)
		}
		f.assertBalance(owner, s.wantAvail, s.wantBlocked)
	}

	six := 6
	_, err := f.listings.Update(f.ctx, owner, l.ID, ListingPatch{TimeRequired: &six})
	wantErr(t, err, domain.ErrInsufficientCredit)
	f.assertBalance(owner, 0, 5)
	if got := f.reload(l.ID).TimeRequired; got != 5 {
		t.Errorf("time_required after failed edit = %d, want 5", got)
	}

	if err := f.listings.Delete(f.ctx, owner, l.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	f.assertBalance(owner, 5, 0)
	if _, err := f.listings.Get(f.ctx, owner, l.ID, false); err == nil {
		t.Error("deleted listing still readable")
	}
}

func TestListingLockedByExchanges(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 5)
	helper := f.user("helper", 0)
	l := f.want(owner, 2)
	ex := f.request(helper, l.ID)

	title := "New title"
	_, err := f.listings.Update(f.ctx, owner, l.ID, ListingPatch{Title: &title})
	wantErr(t, err, domain.ErrListingLocked)
	wantErr(t, f.listings.Delete(f.ctx, owner, l.ID), domain.ErrListingLocked)

	if _, err := f.exchanges.Cancel(f.ctx, helper, ex.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	got, err := f.listings.Update(f.ctx, owner, l.ID, ListingPatch{Title: &title})
	if err != nil {
		t.Fatalf("Update after cancel: %v", err)
	}
	if got.Title != title {
		t.Errorf("Title = %q, want %q", got.Title, title)
	}
	f.assertBalance(owner, 3, 2)
}

func TestListingOwnerOnly(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 0)
	other := f.user("other", 0)
	l := f.offer(owner, 1)

	title := "Mine now"
	_, err := f.listings.Update(f.ctx, other, l.ID, ListingPatch{Title: &title})
	wantErr(t, err, domain.ErrNotAuthorized)
	wantErr(t, f.listings.Delete(f.ctx, other, l.ID), domain.ErrNotAuthorized)
}

func TestListingValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 10)
	lat := 41.0
	yesterday := time.Now().AddDate(0, 0, -1)
	later := time.Now().Add(2 * time.Hour)

	tests := []struct {
		name string
		in   ListingInput
		want error
	}{
		{"bad type", ListingInput{Type: "swap", Title: "x", TimeRequired: 1}, domain.ErrValidation},
		{"no title", ListingInput{Type: domain.ListingTypeOffer, Title: "  ", TimeRequired: 1}, domain.ErrValidation},
		{"zero hours", ListingInput{Type: domain.ListingTypeOffer, Title: "x"}, domain.ErrValidation},
		{"small group", ListingInput{Type: domain.ListingTypeOffer, Title: "x", TimeRequired: 1, ActivityType: domain.ActivityGroup, PersonCount: 1}, domain.ErrValidation},
		{"half a point", ListingInput{Type: domain.ListingTypeOffer, Title: "x", TimeRequired: 1, Latitude: &lat}, domain.ErrValidation},
		{"past date", ListingInput{Type: domain.ListingTypeOffer, Title: "x", TimeRequired: 1, Date: &yesterday}, domain.ErrPastDate},
		{"today", ListingInput{Type: domain.ListingTypeOffer, Title: "x", TimeRequired: 1, Date: &later}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.listings.Create(f.ctx, owner, tt.in)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Create: %v", err)
				}
				return
			}
			wantErr(t, err, tt.want)
		})
	}
	f.assertBalance(owner, 10, 0)
}

func TestUnverifiedOrBannedCannotList(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 0)
	if err := f.users.UpdateFields(owner, map[string]interface{}{"email_verified_at": nil}); err != nil {
		t.Fatal(err)
	}
	_, err := f.listings.Create(f.ctx, owner, ListingInput{Type: domain.ListingTypeOffer, Title: "x", TimeRequired: 1})
	wantErr(t, err, domain.ErrNotVerified)

	banned := f.user("banned", 0)
	if err := f.users.UpdateFields(banned, map[string]interface{}{"is_banned": true}); err != nil {
		t.Fatal(err)
	}
	_, err = f.listings.Create(f.ctx, banned, ListingInput{Type: domain.ListingTypeOffer, Title: "x", TimeRequired: 1})
	wantErr(t, err, domain.ErrUserBanned)
}

func TestBrowseWithinRadius(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 0)
	at := func(title string, lat, lng float64) {
		f.listing(owner, ListingInput{
			Type: domain.ListingTypeOffer, Title: title, TimeRequired: 1,
			Latitude: &lat, Longitude: &lng,
		})
	}
	// Kadikoy as the viewer; distances roughly 3km, 10km and 90km.
	at("near", 41.01, 29.06)
	at("mid", 41.06, 29.12)
	at("far", 40.77, 30.03)
	f.listing(owner, ListingInput{
		Type: domain.ListingTypeOffer, Title: "remote", TimeRequired: 1,
		LocationType: domain.LocationTypeRemote,
	})

	lat, lng := 40.99, 29.03
	items, err := f.listings.Browse(f.ctx, BrowseQuery{Latitude: &lat, Longitude: &lng})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Listing.Title)
	}
	want := []string{"near", "mid", "remote"}
	if len(titles) != len(want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("titles = %v, want %v", titles, want)
			break
		}
	}
	if items[0].DistanceKm == nil || *items[0].DistanceKm > 5 {
		t.Errorf("nearest distance = %v", items[0].DistanceKm)
	}
	if items[2].DistanceKm != nil {
		t.Errorf("remote listing has distance %v", *items[2].DistanceKm)
	}
	if items[0].Proximity == "" {
		t.Error("nearby listing has no proximity label")
	}

	all, err := f.listings.Browse(f.ctx, BrowseQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("browse without a point = %d listings, want 4", len(all))
	}
}

func TestBrowseHidesClosedListings(t *testing.T) {
	f := newFixture(t)
	provider := f.user("provider", 0)
	requester := f.user("requester", 2)
	open := f.offer(provider, 1)
	done := f.offer(provider, 1)
	f.complete(f.request(requester, done.ID))

	items, err := f.listings.Browse(f.ctx, BrowseQuery{Type: domain.ListingTypeOffer})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Listing.ID != open.ID {
		t.Errorf("browse returned %d listings, want only #%d", len(items), open.ID)
	}

	stranger := f.user("stranger", 0)
	if _, err := f.listings.Get(f.ctx, stranger, done.ID, false); err == nil {
		t.Error("stranger can read a completed listing")
	}
	if _, err := f.listings.Get(f.ctx, requester, done.ID, false); err != nil {
		t.Errorf("participant Get: %v", err)
	}
}

func TestBrowseOffsetOutOfRange(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner", 0)
	f.offer(owner, 1)
	f.offer(owner, 2)

	tests := []struct {
		name   string
		offset int
		want   int
	}{
		{"first page", 0, 2},
		{"second item", 1, 1},
		{"past the end", 40, 0},
		{"negative", -5, 2},
		{"overflowed page", -9223372036854775796, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := f.listings.Browse(f.ctx, BrowseQuery{Limit: 20, Offset: tt.offset})
			if err != nil {
				t.Fatalf("Browse: %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("Browse(offset=%d) returned %d listings, want %d", tt.offset, len(items), tt.want)
			}
		})
	}
}
