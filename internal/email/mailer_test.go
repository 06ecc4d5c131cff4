package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/interview-ace/internal/logging"
)

func TestReportEmail(t *testing.T) {
	pdf := []byte("%PDF-1.4")
	msg, err := ReportEmail("jo@example.com", "Jo", "PM at <Acme>", pdf)
	require.NoError(t, err)

	assert.Equal(t, "jo@example.com", msg.To)
	assert.Equal(t, "Your InterviewAce report: PM at <Acme>", msg.Subject)
	assert.Contains(t, msg.HTML, "PM at &lt;Acme&gt;")
	assert.Contains(t, msg.Text, "Hi Jo,")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, ReportFilename, msg.Attachments[0].Filename)
	assert.Equal(t, pdf, msg.Attachments[0].Content)
}

func TestReportEmailDefaults(t *testing.T) {
	msg, err := ReportEmail("jo@example.com", "", "", nil)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Hi there,")
	assert.Equal(t, "Your InterviewAce report: your interview", msg.Subject)
}

func TestMessageValidate(t *testing.T) {
	assert.ErrorIs(t, Message{Subject: "s"}.Validate(), ErrInvalidMessage)
	assert.ErrorIs(t, Message{To: "a@b.c"}.Validate(), ErrInvalidMessage)
	assert.NoError(t, Message{To: "a@b.c", Subject: "s"}.Validate())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Send(context.Background(), Message{To: "a@b.c", Subject: "hi"}))
	assert.Error(t, r.Send(context.Background(), Message{}))
	assert.Len(t, r.Sent(), 1)

	r.Err = errors.New("smtp down")
	assert.Error(t, r.Send(context.Background(), Message{To: "a@b.c", Subject: "hi"}))
	assert.Len(t, r.Sent(), 1)
}

func TestNewSelectsImplementation(t *testing.T) {
	assert.IsType(t, &LogMailer{}, New(Config{}, logging.Discard()))
	assert.IsType(t, &MailgunMailer{}, New(Config{Domain: "mg.example.com", APIKey: "key", From: "a@b.c"}, logging.Discard()))

	assert.NoError(t, New(Config{}, logging.Discard()).Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
}
