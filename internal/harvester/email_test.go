package harvester

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEmailSender_Validation(t *testing.T) {
	_, err := NewEmailSender("", "pw", []string{"a@b.com"})
	require.Error(t, err)

	_, err = NewEmailSender("me@gmail.com", "", []string{"a@b.com"})
	require.Error(t, err)

	_, err = NewEmailSender("me@gmail.com", "pw", nil)
	require.Error(t, err)

	_, err = NewEmailSender("me@gmail.com", "pw", []string{"  ", ""})
	require.Error(t, err)

	sender, err := NewEmailSender("me@gmail.com", "pw", []string{" a@b.com ", "c@d.com"})
	require.NoError(t, err)
	require.Equal(t, []string{"a@b.com", "c@d.com"}, sender.config.To)
}

func TestBuildMessage(t *testing.T) {
	sender, err := NewEmailSender("me@gmail.com", "pw", []string{"a@b.com", "c@d.com"})
	require.NoError(t, err)

	msg := string(sender.buildMessage("Resumen (2024-03-05)", "<html><body>hola</body></html>"))

	require.Contains(t, msg, "From: me@gmail.com\r\n")
	require.Contains(t, msg, "To: a@b.com, c@d.com\r\n")
	require.Contains(t, msg, "Subject: Resumen (2024-03-05)\r\n")
	require.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
	require.Contains(t, msg, "\r\n\r\n<html><body>hola</body></html>")
}
