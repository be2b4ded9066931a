package lifecycle

import (
	"testing"

	"github.com/Aerovity/riglii-backend/internal/apperr"
	"github.com/Aerovity/riglii-backend/internal/models"
)

func TestSendMessageGateStartsClosed(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SendMessage(f.conv.ID, f.client.ID, "hi there", "", "")
	if !apperr.IsPolicy(err) {
		t.Errorf("expected policy error before any accepted proposal, got %v", err)
	}

	// a pending proposal is not enough
	f.proposal(t)
	_, err = f.svc.SendMessage(f.conv.ID, f.client.ID, "hi there", "", "")
	if !apperr.IsPolicy(err) {
		t.Errorf("expected policy error with proposal still pending, got %v", err)
	}
}

func TestSendMessageAfterAcceptance(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)

	msg, err := f.svc.SendMessage(f.conv.ID, f.client.ID, "thanks, when do we start?", "", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Kind != models.MessageText {
		t.Errorf("expected text kind, got %s", msg.Kind)
	}
	if msg.ReceiverID != f.freelancer.ID {
		t.Error("receiver should be the counterpart")
	}
	if msg.Seq == 0 {
		t.Error("expected a positive seq")
	}
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)

	if _, err := f.svc.SendMessage(f.conv.ID, f.client.ID, "   ", "", ""); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for empty text, got %v", err)
	}
	if _, err := f.svc.SendMessage(f.conv.ID, f.client.ID, "", "attachments/a.png", "weird"); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for bad attachment kind, got %v", err)
	}
}

func TestSendMessageAttachmentOnly(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)

	msg, err := f.svc.SendMessage(f.conv.ID, f.client.ID, "", "attachments/a.png", models.AttachmentImage)
	if err != nil {
		t.Fatalf("send attachment: %v", err)
	}
	if msg.AttachmentPath != "attachments/a.png" || msg.AttachmentKind != models.AttachmentImage {
		t.Error("attachment metadata not persisted")
	}
}

func TestMessageSeqIsGaplessAndOrdered(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)

	texts := []string{"one", "two", "three", "four"}
	for _, txt := range texts {
		if _, err := f.svc.SendMessage(f.conv.ID, f.client.ID, txt, "", ""); err != nil {
			t.Fatalf("send %q: %v", txt, err)
		}
	}

	msgs := f.messages(t)
	// proposal form message + accept system message + 4 texts
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Seq != int64(i+1) {
			t.Errorf("message %d: expected seq %d, got %d", i, i+1, m.Seq)
		}
	}
	if msgs[len(msgs)-1].Text != "four" {
		t.Error("expected insertion order preserved by seq")
	}
}

func TestMessagesHiddenFromStranger(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)
	stranger := createUser(t, f.svc, "St", models.RoleClient)

	if _, err := f.svc.ListMessages(f.conv.ID, stranger.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for stranger, got %v", err)
	}
	if _, err := f.svc.SendMessage(f.conv.ID, stranger.ID, "hello", "", ""); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for stranger send, got %v", err)
	}
}

func TestFormMessageCarriesLiveForm(t *testing.T) {
	f := newFixture(t)
	form := f.proposal(t)

	msgs := f.messages(t)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Kind != models.MessageForm {
		t.Fatalf("expected form message, got %s", msgs[0].Kind)
	}
	if msgs[0].FormID == nil || *msgs[0].FormID != form.ID {
		t.Fatal("form message should reference the form")
	}

	// the reference resolves to the current row, not a snapshot
	if _, err := f.svc.AcceptForm(form.ID, f.client.ID, "Jane Doe"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	msgs = f.messages(t)
	if msgs[0].Form == nil || msgs[0].Form.Status != models.FormStatusAccepted {
		t.Error("expected the form message to carry the live accepted form")
	}
}
