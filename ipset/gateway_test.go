package ipset

import (
	"autoblock/testutils"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awswaf "github.com/aws/aws-sdk-go/service/waf"
	"github.com/stretchr/testify/assert"
	"gopkg.in/cenkalti/backoff.v1"
)

type mockWAFClient struct {
	descriptors  []*awswaf.IPSetDescriptor
	getErrs      []error
	getCalls     int
	tokenCalls   int
	updateInputs []*awswaf.UpdateIPSetInput
	cancelOnGet  context.CancelFunc
}

func (c *mockWAFClient) GetIPSetWithContext(ctx aws.Context, input *awswaf.GetIPSetInput, opts ...request.Option) (*awswaf.GetIPSetOutput, error) {
	c.getCalls++
	if c.cancelOnGet != nil {
		c.cancelOnGet()
	}
	if len(c.getErrs) > 0 {
		err := c.getErrs[0]
		if len(c.getErrs) > 1 {
			c.getErrs = c.getErrs[1:]
		}
		if err != nil {
			return nil, err
		}
	}
	return &awswaf.GetIPSetOutput{IPSet: &awswaf.IPSet{IPSetId: input.IPSetId, IPSetDescriptors: c.descriptors}}, nil
}

func (c *mockWAFClient) GetChangeTokenWithContext(ctx aws.Context, input *awswaf.GetChangeTokenInput, opts ...request.Option) (*awswaf.GetChangeTokenOutput, error) {
	c.tokenCalls++
	return &awswaf.GetChangeTokenOutput{ChangeToken: aws.String("token-1")}, nil
}

func (c *mockWAFClient) UpdateIPSetWithContext(ctx aws.Context, input *awswaf.UpdateIPSetInput, opts ...request.Option) (*awswaf.UpdateIPSetOutput, error) {
	c.updateInputs = append(c.updateInputs, input)
	return &awswaf.UpdateIPSetOutput{ChangeToken: input.ChangeToken}, nil
}

func ipv4(values ...string) (ds []*awswaf.IPSetDescriptor) {
	for _, v := range values {
		ds = append(ds, &awswaf.IPSetDescriptor{Type: aws.String(awswaf.IPSetDescriptorTypeIpv4), Value: aws.String(v)})
	}
	return
}

func internalError() error {
	return awserr.New(awswaf.ErrCodeInternalErrorException, "try again", nil)
}

func newTestGateway(t *testing.T, client Client, dryRun bool) *gatewayImpl {
	return NewGateway(testutils.NewTestLogger(t), client, Options{BackOff: &backoff.ZeroBackOff{}, DryRun: dryRun}).(*gatewayImpl)
}

func TestSyncAddsAndRemoves(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{descriptors: ipv4("6.6.6.6/32", "7.7.7.7/32")}
	g := newTestGateway(t, client, false)

	// Act
	result, err := g.Sync(context.Background(), "auto", []string{"7.7.7.7", "8.8.8.8"})

	// Assert
	assert.Nil(err)
	assert.Equal([]string{"8.8.8.8"}, result.Added)
	assert.Equal([]string{"6.6.6.6"}, result.Removed)
	assert.Equal([]string{"7.7.7.7"}, result.Unchanged)
	assert.Equal(1, client.tokenCalls)
	assert.Len(client.updateInputs, 1)

	update := client.updateInputs[0]
	assert.Equal("token-1", aws.StringValue(update.ChangeToken))
	assert.Equal("auto", aws.StringValue(update.IPSetId))
	assert.Len(update.Updates, 2)
	assert.Equal(awswaf.ChangeActionDelete, aws.StringValue(update.Updates[0].Action))
	assert.Equal("6.6.6.6/32", aws.StringValue(update.Updates[0].IPSetDescriptor.Value))
	assert.Equal(awswaf.ChangeActionInsert, aws.StringValue(update.Updates[1].Action))
	assert.Equal("8.8.8.8/32", aws.StringValue(update.Updates[1].IPSetDescriptor.Value))
	assert.Equal(awswaf.IPSetDescriptorTypeIpv4, aws.StringValue(update.Updates[1].IPSetDescriptor.Type))
}

func TestSyncNothingToChange(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{descriptors: ipv4("7.7.7.7/32")}
	g := newTestGateway(t, client, false)

	// Act
	result, err := g.Sync(context.Background(), "auto", []string{"7.7.7.7"})

	// Assert
	assert.Nil(err)
	assert.False(result.Changed())
	assert.Equal([]string{"7.7.7.7"}, result.Unchanged)
	assert.Equal(0, client.tokenCalls)
	assert.Empty(client.updateInputs)
}

func TestSyncMatchesNonCanonicalDesiredAddress(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{descriptors: ipv4("1.2.3.4/32")}
	g := newTestGateway(t, client, false)

	// Act
	result, err := g.Sync(context.Background(), "auto", []string{"01.2.3.4", "1.2.3.4"})

	// Assert
	assert.Nil(err)
	assert.False(result.Changed())
	assert.Equal([]string{"1.2.3.4"}, result.Unchanged)
	assert.Equal(0, client.tokenCalls)
	assert.Empty(client.updateInputs)
}

func TestSyncEmptyEverything(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{}
	g := newTestGateway(t, client, false)

	// Act
	result, err := g.Sync(context.Background(), "auto", nil)

	// Assert
	assert.Nil(err)
	assert.False(result.Changed())
	assert.Equal(0, client.tokenCalls)
}

func TestSyncDryRun(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{descriptors: ipv4("6.6.6.6/32")}
	g := newTestGateway(t, client, true)

	// Act
	result, err := g.Sync(context.Background(), "auto", []string{"8.8.8.8"})

	// Assert
	assert.Nil(err)
	assert.Equal([]string{"8.8.8.8"}, result.Added)
	assert.Equal([]string{"6.6.6.6"}, result.Removed)
	assert.Equal(0, client.tokenCalls)
	assert.Empty(client.updateInputs)
}

func TestSyncInvalidDesiredAddress(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{}
	g := newTestGateway(t, client, false)

	// Act
	_, err := g.Sync(context.Background(), "auto", []string{"8.8.8"})

	// Assert
	assert.Error(err)
	assert.Empty(client.updateInputs)
}

func TestDescriptorsSkipsIPv6(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	ds := ipv4("10.0.0.0/8")
	ds = append(ds, &awswaf.IPSetDescriptor{Type: aws.String(awswaf.IPSetDescriptorTypeIpv6), Value: aws.String("2001:db8::/32")})
	g := newTestGateway(t, &mockWAFClient{descriptors: ds}, false)

	// Act
	cidrs, err := g.Descriptors(context.Background(), "deny")

	// Assert
	assert.Nil(err)
	assert.Equal([]string{"10.0.0.0/8"}, cidrs)
}

func TestDescriptorsRetriesServiceErrors(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{descriptors: ipv4("1.1.1.1/32"), getErrs: []error{internalError(), internalError(), nil}}
	g := newTestGateway(t, client, false)

	// Act
	cidrs, err := g.Descriptors(context.Background(), "deny")

	// Assert
	assert.Nil(err)
	assert.Equal([]string{"1.1.1.1/32"}, cidrs)
	assert.Equal(3, client.getCalls)
}

func TestDescriptorsGivesUpAfterMaxAttempts(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{getErrs: []error{internalError()}}
	g := newTestGateway(t, client, false)

	// Act
	_, err := g.Descriptors(context.Background(), "deny")

	// Assert
	assert.Error(err)
	assert.Equal(DefaultMaxAttempts, client.getCalls)
	var aerr awserr.Error
	assert.True(errors.As(err, &aerr))
}

func TestDescriptorsDoesNotRetryOtherErrors(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{getErrs: []error{errors.New("no credentials")}}
	g := newTestGateway(t, client, false)

	// Act
	_, err := g.Descriptors(context.Background(), "deny")

	// Assert
	assert.Error(err)
	assert.Equal(1, client.getCalls)
}

func TestDescriptorsStopsOnCancelledContext(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	client := &mockWAFClient{getErrs: []error{internalError()}, cancelOnGet: cancel}
	g := newTestGateway(t, client, false)

	// Act
	_, err := g.Descriptors(ctx, "deny")

	// Assert
	assert.Error(err)
	assert.Equal(1, client.getCalls)
}

func TestSyncFetchFailureSubmitsNothing(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	client := &mockWAFClient{getErrs: []error{internalError()}}
	g := newTestGateway(t, client, false)

	// Act
	_, err := g.Sync(context.Background(), "auto", []string{"1.1.1.1"})

	// Assert
	assert.Error(err)
	assert.Equal(0, client.tokenCalls)
	assert.Empty(client.updateInputs)
}

func TestNewClientUnknownScope(t *testing.T) {
	assert := assert.New(t)

	_, err := NewClient("everywhere", "us-west-2")

	assert.Error(err)
}
