package lifecycle

import (
	"strings"
	"testing"

	"github.com/Aerovity/riglii-backend/internal/apperr"
	"github.com/Aerovity/riglii-backend/internal/models"
)

func TestCreateFormFreelancerOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateForm(f.conv.ID, f.client.ID, CreateFormInput{
		Kind:         models.FormProposal,
		Title:        "t",
		Description:  "d",
		Price:        10,
		TimeEstimate: "1 day",
	})
	if !apperr.IsPolicy(err) {
		t.Errorf("expected policy error for client sender, got %v", err)
	}
}

func TestCreateFormValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   CreateFormInput
	}{
		{"bad kind", CreateFormInput{Kind: "invoice", Title: "t", Description: "d", Price: 10, TimeEstimate: "1 day"}},
		{"no title", CreateFormInput{Kind: models.FormProposal, Description: "d", Price: 10, TimeEstimate: "1 day"}},
		{"no description", CreateFormInput{Kind: models.FormProposal, Title: "t", Price: 10, TimeEstimate: "1 day"}},
		{"no estimate", CreateFormInput{Kind: models.FormProposal, Title: "t", Description: "d", Price: 10}},
		{"zero price", CreateFormInput{Kind: models.FormProposal, Title: "t", Description: "d", TimeEstimate: "1 day"}},
		{"negative price", CreateFormInput{Kind: models.FormProposal, Title: "t", Description: "d", Price: -5, TimeEstimate: "1 day"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.CreateForm(f.conv.ID, f.freelancer.ID, tc.in); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAcceptRequiresSignature(t *testing.T) {
	f := newFixture(t)
	form := f.proposal(t)

	if _, err := f.svc.AcceptForm(form.ID, f.client.ID, "  "); !apperr.IsValidation(err) {
		t.Errorf("expected validation error without signature, got %v", err)
	}

	// the failed accept must not have touched the row
	got, err := f.svc.GetForm(form.ID, f.client.ID)
	if err != nil {
		t.Fatalf("get form: %v", err)
	}
	if got.Status != models.FormStatusPending {
		t.Errorf("expected form still pending, got %s", got.Status)
	}
}

func TestAcceptForm(t *testing.T) {
	f := newFixture(t)
	form := f.proposal(t)

	accepted, err := f.svc.AcceptForm(form.ID, f.client.ID, "Jane Doe")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.FormStatusAccepted {
		t.Errorf("expected accepted, got %s", accepted.Status)
	}
	if accepted.Signature != "Jane Doe" {
		t.Errorf("signature not stored: %q", accepted.Signature)
	}
	if accepted.RespondedAt == nil {
		t.Error("responded_at not set")
	}

	msg := lastMessage(t, f)
	if msg.Kind != models.MessageSystemAccept {
		t.Errorf("expected system accept message, got %s", msg.Kind)
	}
	if !strings.Contains(msg.Text, "accepted") {
		t.Errorf("unexpected system text: %q", msg.Text)
	}
	if msg.FormID == nil || *msg.FormID != form.ID {
		t.Error("system message should reference the form")
	}
}

func TestAcceptIsFinal(t *testing.T) {
	f := newFixture(t)
	form := f.proposal(t)

	if _, err := f.svc.AcceptForm(form.ID, f.client.ID, "Jane Doe"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.AcceptForm(form.ID, f.client.ID, "Jane Doe"); !apperr.IsPolicy(err) {
		t.Errorf("expected policy error on second accept, got %v", err)
	}
	if _, err := f.svc.RefuseForm(form.ID, f.client.ID, ""); !apperr.IsPolicy(err) {
		t.Errorf("expected policy error refusing an accepted form, got %v", err)
	}
}

func TestRefuseForm(t *testing.T) {
	f := newFixture(t)
	form := f.proposal(t)

	refused, err := f.svc.RefuseForm(form.ID, f.client.ID, "budget too high")
	if err != nil {
		t.Fatalf("refuse: %v", err)
	}
	if refused.Status != models.FormStatusRefused {
		t.Errorf("expected refused, got %s", refused.Status)
	}
	if refused.RespondedAt == nil {
		t.Error("responded_at not set")
	}

	msg := lastMessage(t, f)
	if msg.Kind != models.MessageSystemRefuse {
		t.Errorf("expected system refuse message, got %s", msg.Kind)
	}
	if !strings.Contains(msg.Text, "budget too high") {
		t.Errorf("expected the reason in the system text: %q", msg.Text)
	}
}

func TestSenderCannotRespond(t *testing.T) {
	f := newFixture(t)
	form := f.proposal(t)

	if _, err := f.svc.AcceptForm(form.ID, f.freelancer.ID, "Me"); !apperr.IsPolicy(err) {
		t.Errorf("expected policy error for sender accept, got %v", err)
	}
	if _, err := f.svc.RefuseForm(form.ID, f.freelancer.ID, ""); !apperr.IsPolicy(err) {
		t.Errorf("expected policy error for sender refuse, got %v", err)
	}
}

func TestCommercialRequiresAcceptedProposal(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateForm(f.conv.ID, f.freelancer.ID, CreateFormInput{
		Kind:         models.FormCommercial,
		Title:        "t",
		Description:  "d",
		Price:        10,
		TimeEstimate: "1 day",
	})
	if !apperr.IsPolicy(err) {
		t.Errorf("expected policy error without accepted proposal, got %v", err)
	}
}

func TestCommercialAfterRefusalIsAllowed(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)

	first := f.commercial(t)
	if _, err := f.svc.RefuseForm(first.ID, f.client.ID, "scope changed"); err != nil {
		t.Fatalf("refuse: %v", err)
	}

	// a refused commercial form is inert, the freelancer may re-propose
	second := f.commercial(t)
	if second.ID == first.ID {
		t.Fatal("expected a fresh form")
	}
	if second.Status != models.FormStatusPending {
		t.Errorf("expected pending, got %s", second.Status)
	}
}

func TestLiveCommercialBlocksAnother(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)
	f.commercial(t)

	_, err := f.svc.CreateForm(f.conv.ID, f.freelancer.ID, CreateFormInput{
		Kind:         models.FormCommercial,
		Title:        "t2",
		Description:  "d2",
		Price:        10,
		TimeEstimate: "1 day",
	})
	if !apperr.IsPolicy(err) {
		t.Errorf("expected policy error with a pending commercial, got %v", err)
	}
}

func TestFormHiddenFromStranger(t *testing.T) {
	f := newFixture(t)
	form := f.proposal(t)
	stranger := createUser(t, f.svc, "St", models.RoleClient)

	if _, err := f.svc.GetForm(form.ID, stranger.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for stranger, got %v", err)
	}
	if _, err := f.svc.AcceptForm(form.ID, stranger.ID, "X"); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for stranger accept, got %v", err)
	}
}

func TestListFormsNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.acceptedProposal(t)
	f.commercial(t)

	forms, err := f.svc.ListForms(f.conv.ID, f.client.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}
	if forms[0].Kind != models.FormCommercial {
		t.Error("expected the commercial form first")
	}
}
