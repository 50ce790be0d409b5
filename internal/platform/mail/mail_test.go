package mail

import (
	"context"
	"testing"

	"github.com/nclex311/billing/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSender_NopWithoutHost(t *testing.T) {
	s := NewSender(&config.Config{}, zap.NewNop().Sugar())
	_, ok := s.(*NopSender)
	require.True(t, ok)
	require.NoError(t, s.Send(context.Background(), &Message{To: "a@b.c", Subject: "x", Body: "y"}))
}

func TestNewSender_SMTPWithHost(t *testing.T) {
	cfg := &config.Config{SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "billing@nclex311.com"}}
	s := NewSender(cfg, zap.NewNop().Sugar())
	smtpSender, ok := s.(*SMTPSender)
	require.True(t, ok)
	require.Equal(t, "smtp.example.com:587", smtpSender.addr)
	require.Equal(t, "billing@nclex311.com", smtpSender.from)
	require.NotNil(t, smtpSender.auth)
}

func TestNewSender_DefaultFrom(t *testing.T) {
	cfg := &config.Config{SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 25}}
	s := NewSender(cfg, zap.NewNop().Sugar())
	smtpSender, ok := s.(*SMTPSender)
	require.True(t, ok)
	require.Equal(t, "no-reply@nclex311.com", smtpSender.from)
	require.Nil(t, smtpSender.auth, "auth only when credentials are set")
}
