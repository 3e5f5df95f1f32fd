package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/msp-api/internal/application/notification"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/infrastructure/memory"
)

type mockEmail struct{ mock.Mock }

func (m *mockEmail) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

func newStore() *memory.Store {
	store := memory.NewStore()
	store.AddUser(entity.User{ID: "u-2", Name: "Bruno", Email: "bruno@msp.test", Role: entity.RoleTech, IsActive: true})
	store.AddUser(entity.User{ID: "u-1", Name: "Ana", Email: "ana@msp.test", Role: entity.RoleAdmin, IsActive: true})
	store.AddUser(entity.User{ID: "u-3", Name: "Carla", Role: entity.RoleTech, IsActive: false})
	store.AddUser(entity.User{ID: "u-4", Name: "Cliente", Role: entity.RoleClient, IsActive: true})
	return store
}

func TestStaffRecipients_SoloPersonalActivo(t *testing.T) {
	store := newStore()
	d := notification.NewDispatcher(store.Users(), store.Notifications(), nil, nil, zerolog.Nop())

	got, err := d.StaffRecipients(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u-1", got[0].UserID)
	assert.Equal(t, "u-2", got[1].UserID)
	assert.Equal(t, notification.RecipientUser, got[0].Type)
}

func TestNotify_AvisoInternoConPrioridadPorDefecto(t *testing.T) {
	store := newStore()
	d := notification.NewDispatcher(store.Users(), store.Notifications(), nil, nil, zerolog.Nop())

	sent := d.Notify(context.Background(), []notification.Recipient{
		{Type: notification.RecipientUser, UserID: "u-1"},
	}, notification.Message{Subject: "Renewal invoice generated", Body: "Tenant", Link: "/invoices/x"})

	assert.Equal(t, 1, sent)
	list := store.AllNotifications()
	require.Len(t, list, 1)
	assert.Equal(t, entity.PriorityNormal, list[0].Priority)
	assert.Equal(t, "/invoices/x", list[0].Link)
	assert.NotEmpty(t, list[0].ID)
}

func TestNotify_CorreoUsaTextoPlanoSiNoHayHTML(t *testing.T) {
	store := newStore()
	mailer := &mockEmail{}
	mailer.On("Send", mock.Anything, "billing@acme.test", "Hola", "<p>a &amp; b</p>").Return(nil).Once()
	d := notification.NewDispatcher(store.Users(), store.Notifications(), mailer, nil, zerolog.Nop())

	sent := d.Notify(context.Background(), []notification.Recipient{
		{Type: notification.RecipientEmail, Email: "billing@acme.test"},
	}, notification.Message{Subject: "Hola", Body: "a & b"})

	assert.Equal(t, 1, sent)
	mailer.AssertExpectations(t)
}

func TestNotify_FalloDeCorreoNoDetieneElResto(t *testing.T) {
	store := newStore()
	mailer := &mockEmail{}
	mailer.On("Send", mock.Anything, "billing@acme.test", mock.Anything, mock.Anything).Return(errors.New("smtp 554"))
	d := notification.NewDispatcher(store.Users(), store.Notifications(), mailer, nil, zerolog.Nop())

	sent := d.Notify(context.Background(), []notification.Recipient{
		{Type: notification.RecipientEmail, Email: "billing@acme.test"},
		{Type: notification.RecipientUser, UserID: "u-1"},
		{Type: "sms", UserID: "u-2"},
	}, notification.Message{Subject: "Aviso", Body: "x", HTML: "<b>x</b>"})

	assert.Equal(t, 1, sent)
	assert.Len(t, store.AllNotifications(), 1)
	mailer.AssertNumberOfCalls(t, "Send", 1)
}

func TestNotify_SinSMTPOmiteCorreo(t *testing.T) {
	store := newStore()
	d := notification.NewDispatcher(store.Users(), store.Notifications(), nil, nil, zerolog.Nop())

	sent := d.Notify(context.Background(), []notification.Recipient{
		{Type: notification.RecipientEmail, Email: "billing@acme.test"},
	}, notification.Message{Subject: "Aviso", Body: "x"})

	assert.Equal(t, 0, sent)
}
