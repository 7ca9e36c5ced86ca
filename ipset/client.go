package ipset

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	awswaf "github.com/aws/aws-sdk-go/service/waf"
	"github.com/aws/aws-sdk-go/service/wafregional"
)

// Client is the part of the WAF Classic API used by the gateway. Both the global (CloudFront) and the
// regional (load balancer) WAF clients implement it.
type Client interface {
	GetIPSetWithContext(ctx aws.Context, input *awswaf.GetIPSetInput, opts ...request.Option) (*awswaf.GetIPSetOutput, error)
	GetChangeTokenWithContext(ctx aws.Context, input *awswaf.GetChangeTokenInput, opts ...request.Option) (*awswaf.GetChangeTokenOutput, error)
	UpdateIPSetWithContext(ctx aws.Context, input *awswaf.UpdateIPSetInput, opts ...request.Option) (*awswaf.UpdateIPSetOutput, error)
}

// Scope selects which WAF API an IP set lives in.
type Scope string

const (
	// Global is WAF Classic, used by CloudFront distributions.
	Global Scope = "global"

	// Regional is WAF Classic Regional, used by application load balancers.
	Regional Scope = "regional"
)

// NewClient creates a WAF client for the scope. Global IP sets are always served from us-east-1.
func NewClient(scope Scope, region string) (client Client, err error) {
	switch scope {
	case Global:
		var sess *session.Session
		if sess, err = session.NewSession(&aws.Config{Region: aws.String("us-east-1")}); err != nil {
			return
		}
		client = awswaf.New(sess)
	case Regional:
		var sess *session.Session
		if sess, err = session.NewSession(&aws.Config{Region: aws.String(region)}); err != nil {
			return
		}
		client = wafregional.New(sess)
	default:
		err = fmt.Errorf("unknown WAF scope: %q", scope)
	}
	return
}
