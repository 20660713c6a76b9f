package service

import (
	"testing"

	"hive/internal/domain"
	"hive/internal/models"
)

func TestBanUnwindsGroupOffer(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	provider := f.user("provider", 0)
	group := f.listing(provider, ListingInput{
		Type:         domain.ListingTypeOffer,
		Title:        "Bread baking class",
		TimeRequired: 2,
		ActivityType: domain.ActivityGroup,
		PersonCount:  3,
	})
	var requesters []uint
	var exchanges []*models.Exchange
	for _, name := range []string{"r1", "r2", "r3"} {
		id := f.user(name, 2)
		requesters = append(requesters, id)
		exchanges = append(exchanges, f.request(id, group.ID))
		f.assertBalance(id, 0, 2)
	}
	f.accept(provider, exchanges[0].ID)
	f.accept(provider, exchanges[1].ID)

	u, err := f.moderation.BanUser(f.ctx, admin, provider, BanInput{Reason: "no-shows", DurationDays: 7})
	if err != nil {
		t.Fatalf("BanUser: %v", err)
	}
	if !u.IsBanned || u.BanExpiresAt == nil {
		t.Errorf("banned=%v expires=%v, want temporary ban", u.IsBanned, u.BanExpiresAt)
	}
	for i, ex := range exchanges {
		if got := f.exchange(ex.ID).Status; got != domain.ExchangeStatusCancelled {
			t.Errorf("exchange %d status = %s, want CANCELLED", i, got)
		}
		f.assertBalance(requesters[i], 2, 0)
		if f.notes.count(requesters[i], domain.NotifExchangeCancelled) != 1 {
			t.Errorf("requester %d was not told about the cancellation", i)
		}
	}
	if got := f.reload(group.ID).Status; got != domain.ListingStatusInactive {
		t.Errorf("listing status = %s, want INACTIVE", got)
	}
	if f.notes.count(provider, domain.NotifBanned) != 1 {
		t.Error("provider was not told about the ban")
	}

	_, _, err = f.exchanges.Create(f.ctx, requesters[0], group.ID)
	wantErr(t, err, domain.ErrListingClosed)
	_, err = f.listings.Create(f.ctx, provider, ListingInput{Type: domain.ListingTypeOffer, Title: "again", TimeRequired: 1})
	wantErr(t, err, domain.ErrUserBanned)
}

func TestBanReleasesWantHolds(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	owner := f.user("owner", 6)
	helper := f.user("helper", 0)
	want := f.want(owner, 2)
	f.want(owner, 3)
	f.request(helper, want.ID)
	f.assertBalance(owner, 1, 5)

	if _, err := f.moderation.BanUser(f.ctx, admin, owner, BanInput{}); err != nil {
		t.Fatalf("BanUser: %v", err)
	}
	f.assertBalance(owner, 6, 0)
	f.assertBalance(helper, 0, 0)
	if got := f.reload(want.ID).BlockedHours; got != 0 {
		t.Errorf("listing blocked_hours = %d, want 0", got)
	}
}

func TestAdminCannotBeBanned(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	other := f.user("moderator", 0)
	if err := f.users.UpdateFields(other, map[string]interface{}{"role": domain.RoleAdmin}); err != nil {
		t.Fatal(err)
	}
	_, err := f.moderation.BanUser(f.ctx, admin, other, BanInput{})
	wantErr(t, err, domain.ErrNotAuthorized)

	_, err = f.moderation.BanUser(f.ctx, admin, other, BanInput{DurationDays: -1})
	wantErr(t, err, domain.ErrValidation)
}

func TestResolveReportRemovesListing(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	provider := f.user("provider", 0)
	requester := f.user("requester", 3)
	offer := f.offer(provider, 3)
	ex := f.request(requester, offer.ID)

	r, err := f.reports.Create(f.ctx, requester, ReportInput{
		TargetType: domain.ReportTargetOffer,
		TargetID:   offer.ID,
		Reason:     "spam",
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.ReportedUserID == nil || *r.ReportedUserID != provider {
		t.Fatalf("reported user = %v, want %d", r.ReportedUserID, provider)
	}

	res, err := f.moderation.ResolveReport(f.ctx, admin, r.ID, ResolveInput{
		RemoveContent: true,
		UserAction:    domain.UserActionWarn,
	})
	if err != nil {
		t.Fatalf("ResolveReport: %v", err)
	}
	want := []string{domain.ActionContentRemoved, domain.ActionUserWarned}
	if len(res.ActionsTaken) != 2 || res.ActionsTaken[0] != want[0] || res.ActionsTaken[1] != want[1] {
		t.Errorf("actions = %v, want %v", res.ActionsTaken, want)
	}
	if res.Report.Status != domain.ReportStatusResolved || res.Report.ResolvedByID == nil {
		t.Errorf("report status=%s resolved_by=%v", res.Report.Status, res.Report.ResolvedByID)
	}

	l := f.reload(offer.ID)
	if !l.IsFlagged || l.Status != domain.ListingStatusInactive {
		t.Errorf("listing flagged=%v status=%s, want flagged INACTIVE", l.IsFlagged, l.Status)
	}
	if got := f.exchange(ex.ID).Status; got != domain.ExchangeStatusCancelled {
		t.Errorf("exchange status = %s, want CANCELLED", got)
	}
	f.assertBalance(requester, 3, 0)

	u, err := f.users.GetByID(provider)
	if err != nil {
		t.Fatal(err)
	}
	if u.WarningCount != 1 || u.IsBanned {
		t.Errorf("warnings=%d banned=%v, want 1 false", u.WarningCount, u.IsBanned)
	}

	_, err = f.moderation.ResolveReport(f.ctx, admin, r.ID, ResolveInput{Action: "dismiss"})
	wantErr(t, err, domain.ErrInvalidTransition)
}

func TestResolveReportInput(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	reporter := f.user("reporter", 0)
	target := f.user("target", 0)
	r, err := f.reports.Create(f.ctx, reporter, ReportInput{TargetType: domain.ReportTargetUser, TargetID: target, Reason: "HARASSMENT"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   ResolveInput
	}{
		{"no action", ResolveInput{AdminNotes: "looked at it"}},
		{"unknown user action", ResolveInput{UserAction: "suspend"}},
		{"unknown action", ResolveInput{Action: "escalate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.moderation.ResolveReport(f.ctx, admin, r.ID, tt.in)
			wantErr(t, err, domain.ErrValidation)
		})
	}

	// remove_content has nothing to act on for a user report; the report stays pending.
	_, err = f.moderation.ResolveReport(f.ctx, admin, r.ID, ResolveInput{RemoveContent: true})
	wantErr(t, err, domain.ErrValidation)

	res, err := f.moderation.ResolveReport(f.ctx, admin, r.ID, ResolveInput{Action: "dismiss", AdminNotes: "no evidence"})
	if err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if res.Report.Status != domain.ReportStatusDismissed || len(res.ActionsTaken) != 1 || res.ActionsTaken[0] != domain.ActionDismissed {
		t.Errorf("dismiss = %s %v", res.Report.Status, res.ActionsTaken)
	}
}

func TestBanAndWarnCloseReport(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	reporter := f.user("reporter", 0)
	target := f.user("target", 0)
	bystander := f.user("bystander", 0)

	file := func(userID uint) uint {
		r, err := f.reports.Create(f.ctx, reporter, ReportInput{TargetType: domain.ReportTargetUser, TargetID: userID, Reason: "FRAUD"})
		if err != nil {
			t.Fatalf("report: %v", err)
		}
		return r.ID
	}
	onTarget := file(target)
	onBystander := file(bystander)

	_, err := f.moderation.WarnUser(f.ctx, admin, target, "be nice", &onBystander)
	wantErr(t, err, domain.ErrValidation)

	if _, err := f.moderation.WarnUser(f.ctx, admin, target, "be nice", &onTarget); err != nil {
		t.Fatalf("WarnUser: %v", err)
	}
	r, err := f.reportRep.GetByID(onTarget)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.ReportStatusResolved {
		t.Errorf("report status = %s, want RESOLVED", r.Status)
	}

	_, err = f.moderation.BanUser(f.ctx, admin, target, BanInput{ReportID: &onTarget})
	wantErr(t, err, domain.ErrInvalidTransition)
	if u, _ := f.users.GetByID(target); u.IsBanned {
		t.Error("ban applied although its report was already closed")
	}

	if _, err := f.moderation.BanUser(f.ctx, admin, bystander, BanInput{ReportID: &onBystander}); err != nil {
		t.Fatalf("BanUser: %v", err)
	}
	if r, _ := f.reportRep.GetByID(onBystander); r.Status != domain.ReportStatusResolved {
		t.Errorf("report status = %s, want RESOLVED", r.Status)
	}
}

func TestRemoveListingByAdmin(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	owner := f.user("owner", 4)
	helper := f.user("helper", 0)
	want := f.want(owner, 3)
	f.request(helper, want.ID)

	l, err := f.moderation.RemoveListing(f.ctx, admin, want.ID, "")
	if err != nil {
		t.Fatalf("RemoveListing: %v", err)
	}
	if l.Status != domain.ListingStatusCancelled || !l.IsFlagged {
		t.Errorf("listing status=%s flagged=%v, want CANCELLED flagged", l.Status, l.IsFlagged)
	}
	f.assertBalance(owner, 4, 0)
	if f.notes.count(owner, domain.NotifModeration) != 1 {
		t.Error("owner was not told about the removal")
	}

	// Flagged listings can no longer be edited by their owner.
	title := "back"
	_, err = f.listings.Update(f.ctx, owner, want.ID, ListingPatch{Title: &title})
	wantErr(t, err, domain.ErrListingClosed)
}

func TestEditAfterBanLapseKeepsCredit(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	owner := f.user("owner", 5)
	want := f.want(owner, 2)
	f.assertBalance(owner, 3, 2)

	if _, err := f.moderation.BanUser(f.ctx, admin, owner, BanInput{Reason: "spam", DurationDays: 1}); err != nil {
		t.Fatalf("BanUser: %v", err)
	}
	f.assertBalance(owner, 5, 0)
	if err := f.users.UpdateFields(owner, map[string]interface{}{"is_banned": false, "ban_expires_at": nil}); err != nil {
		t.Fatal(err)
	}

	title := "Still need a plumber"
	_, err := f.listings.Update(f.ctx, owner, want.ID, ListingPatch{Title: &title})
	wantErr(t, err, domain.ErrListingClosed)

	l := f.reload(want.ID)
	if l.Status != domain.ListingStatusInactive || l.BlockedHours != 0 {
		t.Errorf("listing = %s holding %dh, want INACTIVE holding 0h", l.Status, l.BlockedHours)
	}
	f.assertBalance(owner, 5, 0)

	if err := f.listings.Delete(f.ctx, owner, want.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	f.assertBalance(owner, 5, 0)
}

func TestBanPublishesCancelledExchanges(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	provider := f.user("provider", 0)
	requester := f.user("requester", 2)
	ex := f.request(requester, f.offer(provider, 2).ID)

	if _, err := f.moderation.BanUser(f.ctx, admin, provider, BanInput{Reason: "fraud"}); err != nil {
		t.Fatalf("BanUser: %v", err)
	}
	got := f.stream.statuses(ex.ID)
	if len(got) != 2 || got[1] != domain.ExchangeStatusCancelled {
		t.Errorf("published statuses = %v, want [PENDING CANCELLED]", got)
	}
}
