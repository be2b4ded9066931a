package lifecycle

import (
	"testing"

	"github.com/Aerovity/riglii-backend/internal/apperr"
	"github.com/Aerovity/riglii-backend/internal/models"
)

func TestStartConversationIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	client := createUser(t, svc, "Cl", models.RoleClient)
	freelancer := createUser(t, svc, "Fr", models.RoleFreelancer)

	first, created, err := svc.StartConversation(client.ID, freelancer.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !created {
		t.Error("expected created=true on first contact")
	}

	// same pair from the other side resolves the same row
	second, created, err := svc.StartConversation(freelancer.ID, client.ID)
	if err != nil {
		t.Fatalf("start again: %v", err)
	}
	if created {
		t.Error("expected created=false on second contact")
	}
	if first.ID != second.ID {
		t.Errorf("expected one conversation per pair, got %s and %s", first.ID, second.ID)
	}

	if second.ClientID != client.ID || second.FreelancerID != freelancer.ID {
		t.Error("participant columns should follow roles, not the initiator")
	}
}

func TestStartConversationWithSelf(t *testing.T) {
	svc := newTestService(t)
	u := createUser(t, svc, "Cl", models.RoleClient)

	_, _, err := svc.StartConversation(u.ID, u.ID)
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestStartConversationNeedsFreelancer(t *testing.T) {
	svc := newTestService(t)
	a := createUser(t, svc, "A", models.RoleClient)
	b := createUser(t, svc, "B", models.RoleClient)

	_, _, err := svc.StartConversation(a.ID, b.ID)
	if !apperr.IsPolicy(err) {
		t.Errorf("expected policy error, got %v", err)
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)

	for _, text := range []string{"hello", "two questions", "still there?"} {
		if _, err := f.svc.SendMessage(f.conv.ID, f.freelancer.ID, text, "", ""); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	count, err := f.svc.UnreadTotal(f.client.ID)
	if err != nil {
		t.Fatalf("unread total: %v", err)
	}
	// the proposal form message plus 3 texts; the accept system message is
	// addressed to the freelancer and must not count for the client
	if count != 4 {
		t.Errorf("expected 4 unread for client, got %d", count)
	}

	if err := f.svc.MarkRead(f.conv.ID, f.client.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, _ = f.svc.UnreadTotal(f.client.ID)
	if count != 0 {
		t.Errorf("expected 0 unread after mark read, got %d", count)
	}

	// idempotent
	if err := f.svc.MarkRead(f.conv.ID, f.client.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
}

func TestListConversationsDirectory(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)

	if _, err := f.svc.SendMessage(f.conv.ID, f.freelancer.ID, "draft attached", "", ""); err != nil {
		t.Fatalf("send: %v", err)
	}

	summaries, err := f.svc.ListConversations(f.client.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(summaries))
	}

	sum := summaries[0]
	if sum.Other == nil || sum.Other.ID != f.freelancer.ID {
		t.Error("expected the freelancer as counterpart")
	}
	if sum.LastMessage == nil || sum.LastMessage.Text != "draft attached" {
		t.Error("expected the latest message in the summary")
	}
	if sum.LatestForm == nil || sum.LatestForm.Status != models.FormStatusAccepted {
		t.Error("expected the accepted proposal as latest form")
	}
	if !sum.Gate.Open {
		t.Error("expected an open gate after proposal acceptance")
	}
	// the proposal form message and the text are both addressed to the client
	if sum.UnreadCount != 2 {
		t.Errorf("expected 2 unread, got %d", sum.UnreadCount)
	}
}

func TestMarkReadStranger(t *testing.T) {
	f := newFixture(t)
	stranger := createUser(t, f.svc, "St", models.RoleClient)

	if err := f.svc.MarkRead(f.conv.ID, stranger.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for stranger, got %v", err)
	}
}
