package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/switchboard/ai/e2e/mocks"
)

func failingGenerator() *Generator {
	return NewGenerator(mocks.NewMockLLM().WithDefaultError(errors.New("provider down")), nil)
}

func TestEmailRegex_SendFallsBackOnGeneratorFailure(t *testing.T) {
	s := &EmailRegex{Generator: failingGenerator(), Now: fixedNow}

	op, err := s.Extract(context.Background(), "send email to john@example.com saying hello team")
	require.NoError(t, err)
	assert.Equal(t, OpSendEmail, op.Operation)
	assert.Equal(t, []string{"john@example.com"}, op.Recipients())
	assert.Equal(t, "hello team", op.StringParam("subject"))
	assert.Equal(t, "hello team", op.StringParam("body"))
}

func TestEmailRegex_SendIntent(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantIntent string
	}{
		{"after saying", "send email to john@example.com saying Hello Team", "Hello Team"},
		{"after that", "email to jane@example.org that the build is green", "the build is green"},
		{"remaining words", "send bob@example.com lunch plans", "lunch plans"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &EmailRegex{Generator: failingGenerator()}
			op, err := s.Extract(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, OpSendEmail, op.Operation)
			assert.Equal(t, tt.wantIntent, op.StringParam("body"))
		})
	}
}

func TestEmailRegex_SendUsesGeneratedContent(t *testing.T) {
	llmMock := mocks.NewMockLLM().
		WithResponse("You are an email writer", "```json\n{\"subject\": \"Team update\", \"body\": \"Hello team, quick update.\"}\n```")
	s := &EmailRegex{Generator: NewGenerator(llmMock, nil)}

	op, err := s.Extract(context.Background(), "send email to john@example.com saying hello team")
	require.NoError(t, err)
	assert.Equal(t, "Team update", op.StringParam("subject"))
	assert.Equal(t, "Hello team, quick update.", op.StringParam("body"))
	assert.Equal(t, 1, llmMock.CallCount("RECIPIENT: john@example.com"))
}

func TestEmailRegex_NeedsAddress(t *testing.T) {
	llmMock := mocks.NewMockLLM()
	s := &EmailRegex{Generator: NewGenerator(llmMock, nil)}

	op, err := s.Extract(context.Background(), "send an email saying hi")
	require.NoError(t, err)
	assert.True(t, op.NeedsAddress())
	assert.Equal(t, NeedsAddressMessage, op.Err)
	assert.Empty(t, llmMock.Calls())
}

func TestEmailRegex_ListAndSearch(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantOp    string
		wantQuery any
	}{
		{"sender filter", "show emails from Alice@Example.com", OpListEmails, "from:alice@example.com"},
		{"unread", "check unread messages", OpListEmails, "is:unread"},
		{"inbox", "list my inbox", OpListEmails, "in:inbox"},
		{"recent", "do i have new mail", OpListEmails, nil},
		{"list wins over send", "check mail from bob@example.com and send a reply", OpListEmails, "from:bob@example.com"},
		{"search for", "search emails for Invoice 42", OpSearchEmails, "Invoice 42"},
		{"search without for", "search receipts", OpSearchEmails, "receipts"},
	}

	s := &EmailRegex{Generator: failingGenerator()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := s.Extract(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOp, op.Operation)
			assert.Equal(t, tt.wantQuery, op.Params["query"])
			assert.Equal(t, 10, op.Params["max_results"])
		})
	}
}

func TestEmailRegex_EmptySearchFallsThrough(t *testing.T) {
	s := &EmailRegex{Generator: failingGenerator()}

	for _, q := range []string{"find receipts", "search for"} {
		t.Run(q, func(t *testing.T) {
			op, err := s.Extract(context.Background(), q)
			assert.Nil(t, op)
			assert.ErrorIs(t, err, ErrNoMatch)
		})
	}

	op, err := s.Extract(context.Background(), "find the notes and send them to bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, OpSendEmail, op.Operation)
	assert.Equal(t, []string{"bob@example.com"}, op.Params["to"])
}

func TestEmailRegex_NoMatch(t *testing.T) {
	s := &EmailRegex{Generator: failingGenerator()}
	op, err := s.Extract(context.Background(), "archive everything")
	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrNoMatch)
}
