package lifecycle

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Aerovity/riglii-backend/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.FreelancerProfile{},
		&models.Conversation{},
		&models.Message{},
		&models.Form{},
		&models.Review{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewService(gdb, nil, nil, nil)
}

func createUser(t *testing.T, s *Service, name string, role models.Role) models.User {
	t.Helper()

	u := models.User{
		Name:     name,
		Email:    uuid.New().String() + "@example.com",
		Phone:    uuid.New().String()[:12],
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	if err := s.DB.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// fixture is a client/freelancer pair with their conversation.
type fixture struct {
	svc        *Service
	client     models.User
	freelancer models.User
	conv       *models.Conversation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	svc := newTestService(t)
	client := createUser(t, svc, "Cl", models.RoleClient)
	freelancer := createUser(t, svc, "Fr", models.RoleFreelancer)

	conv, _, err := svc.StartConversation(client.ID, freelancer.ID)
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	return &fixture{svc: svc, client: client, freelancer: freelancer, conv: conv}
}

func (f *fixture) proposal(t *testing.T) *models.Form {
	t.Helper()

	form, err := f.svc.CreateForm(f.conv.ID, f.freelancer.ID, CreateFormInput{
		Kind:         models.FormProposal,
		Title:        "Logo design",
		Description:  "Three concepts, two rounds of revisions",
		Price:        150,
		TimeEstimate: "1 week",
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	return form
}

func (f *fixture) acceptedProposal(t *testing.T) *models.Form {
	t.Helper()

	form := f.proposal(t)
	accepted, err := f.svc.AcceptForm(form.ID, f.client.ID, "Jane Doe")
	if err != nil {
		t.Fatalf("accept proposal: %v", err)
	}
	return accepted
}

func (f *fixture) commercial(t *testing.T) *models.Form {
	t.Helper()

	form, err := f.svc.CreateForm(f.conv.ID, f.freelancer.ID, CreateFormInput{
		Kind:         models.FormCommercial,
		Title:        "Logo design - final agreement",
		Description:  "Full package as discussed",
		Price:        300,
		TimeEstimate: "2 weeks",
	})
	if err != nil {
		t.Fatalf("create commercial: %v", err)
	}
	return form
}

func (f *fixture) acceptedCommercial(t *testing.T) *models.Form {
	t.Helper()

	f.acceptedProposal(t)
	form := f.commercial(t)
	accepted, err := f.svc.AcceptForm(form.ID, f.client.ID, "Jane Doe")
	if err != nil {
		t.Fatalf("accept commercial: %v", err)
	}
	return accepted
}

func (f *fixture) messages(t *testing.T) []models.Message {
	t.Helper()

	msgs, err := f.svc.ListMessages(f.conv.ID, f.client.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	return msgs
}

func lastMessage(t *testing.T, f *fixture) models.Message {
	t.Helper()

	msgs := f.messages(t)
	if len(msgs) == 0 {
		t.Fatal("no messages in conversation")
	}
	return msgs[len(msgs)-1]
}
