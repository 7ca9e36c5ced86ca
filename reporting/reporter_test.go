package reporting

import (
	"autoblock/testutils"
	"autoblock/waf"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockNotifier struct {
	usernames []string
	texts     []string
	err       error
}

func (n *mockNotifier) Notify(ctx context.Context, username string, text string) error {
	n.usernames = append(n.usernames, username)
	n.texts = append(n.texts, text)
	return n.err
}

type mockHostnames map[string]string

func (m mockHostnames) LookupHostname(ctx context.Context, ipAddr string) string {
	if h, ok := m[ipAddr]; ok {
		return h
	}
	return UnknownHostname
}

type mockCountries map[string]string

func (m mockCountries) Country(ipAddr string) string {
	return m[ipAddr]
}

func TestReporterSkipsUnchangedSync(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	n := &mockNotifier{}
	r := NewReporter(testutils.NewTestLogger(t), "prod", n, nil, nil)

	// Act
	err := r.ReportSync(context.Background(), "Rate-Limiting-Processor", waf.SyncResult{Unchanged: []string{"1.1.1.1"}})

	// Assert
	assert.Nil(err)
	assert.Empty(n.texts)
}

func TestReporterAnnotatesAddedIPs(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	n := &mockNotifier{}
	hostnames := mockHostnames{"8.8.8.8": "dns.google"}
	countries := mockCountries{"8.8.8.8": "US"}
	r := NewReporter(testutils.NewTestLogger(t), "prod", n, hostnames, countries)
	result := waf.SyncResult{Added: []string{"8.8.8.8", "9.9.9.9"}, Removed: []string{"6.6.6.6"}}

	// Act
	err := r.ReportSync(context.Background(), "Rate-Limiting-Processor", result)

	// Assert
	assert.Nil(err)
	assert.Equal([]string{"Rate-Limiting-Processor"}, n.usernames)
	assert.Contains(n.texts[0], "8.8.8.8 (dns.google, US), 9.9.9.9 (hostname unknown)")
	assert.Contains(n.texts[0], "removed from auto block list: 6.6.6.6")
}

func TestReporterWithoutNotifier(t *testing.T) {
	assert := assert.New(t)

	r := NewReporter(testutils.NewTestLogger(t), "prod", nil, nil, nil)

	err := r.ReportSync(context.Background(), "p", waf.SyncResult{Added: []string{"1.1.1.1"}})

	assert.Nil(err)
}

func TestReporterNotifierError(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	n := &mockNotifier{err: errors.New("webhook down")}
	r := NewReporter(testutils.NewTestLogger(t), "prod", n, nil, nil)

	// Act
	err := r.ReportSync(context.Background(), "p", waf.SyncResult{Removed: []string{"1.1.1.1"}})

	// Assert
	assert.Error(err)
}
