package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage_Cabeceras(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{From: "billing@msp.test", FromName: "MSP Billing"}, zerolog.Nop())

	msg, err := s.buildMessage("client@acme.test", "Renewal invoice: Tenant", "<p>hola</p>")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "client@acme.test")
	assert.Contains(t, raw, "Renewal invoice: Tenant")
	assert.Contains(t, raw, "text/html")
}

func TestBuildMessage_DestinoInvalido(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{From: "billing@msp.test"}, zerolog.Nop())
	_, err := s.buildMessage("no es un correo", "x", "y")
	assert.Error(t, err)
}

func TestSend_SinHost(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{From: "billing@msp.test", Port: 25}, zerolog.Nop())
	err := s.Send(context.Background(), "client@acme.test", "x", "<p>y</p>")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientOptions_PorPuerto(t *testing.T) {
	plain := NewSMTPSender(SMTPConfig{Port: 1025}, zerolog.Nop())
	auth := NewSMTPSender(SMTPConfig{Port: 587, Username: "u", Password: "p"}, zerolog.Nop())
	assert.Len(t, plain.clientOptions(), 3)
	assert.Len(t, auth.clientOptions(), 6)
}
