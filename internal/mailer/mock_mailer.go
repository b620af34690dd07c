package mailer

import (
	"sync"
)

type Email struct {
	Recipient string
	Template  string
	Data      any
}

// MockMailer records outgoing mail instead of delivering it. Tests use it to
// assert on receipts sent by background goroutines.
type MockMailer struct {
	mu     sync.RWMutex
	emails []Email
	err    error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

// FailWith makes subsequent sends fail with err; nil restores delivery.
func (m *MockMailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *MockMailer) Send(recipient, templateFile string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.emails = append(m.emails, Email{
		Recipient: recipient,
		Template:  templateFile,
		Data:      data,
	})

	return nil
}

func (m *MockMailer) GetSentEmails() []Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make([]Email, len(m.emails))
	copy(emails, m.emails)
	return emails
}

// SentTo returns the mail delivered to recipient using templateFile.
func (m *MockMailer) SentTo(recipient, templateFile string) []Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Email
	for _, e := range m.emails {
		if e.Recipient == recipient && e.Template == templateFile {
			matched = append(matched, e)
		}
	}
	return matched
}

func (m *MockMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = nil
	m.err = nil
}
