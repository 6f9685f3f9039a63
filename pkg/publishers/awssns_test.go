package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeSNSClient struct {
	calls []*sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func newTestSNSSender(client snsClient) *awsSNSSender {
	return &awsSNSSender{topicARN: "arn:aws:sns:us-west-2:000000000000:prices", client: client, log: discardLogger{}}
}

func TestAWSSNSSenderPublishesSubjectAndAttributes(t *testing.T) {
	client := &fakeSNSClient{}

	if err := newTestSNSSender(client).Send(context.Background(), NewEvent("crow", "Crow watch", "Old Crow", testPrice())); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected one Publish call, got %d", len(client.calls))
	}
	in := client.calls[0]
	if got := aws.ToString(in.TopicArn); got != "arn:aws:sns:us-west-2:000000000000:prices" {
		t.Fatalf("TopicArn = %s", got)
	}
	if got := aws.ToString(in.Subject); got != "Old Crow: $17.95" {
		t.Fatalf("Subject = %q", got)
	}
	for key, want := range map[string]string{"watch_id": "crow", "product_id": "1"} {
		attr, ok := in.MessageAttributes[key]
		if !ok || aws.ToString(attr.DataType) != "String" || aws.ToString(attr.StringValue) != want {
			t.Fatalf("attribute %s = %#v, want %q", key, attr, want)
		}
	}
	if msg := aws.ToString(in.Message); !strings.Contains(msg, `"price":{"id":7`) {
		t.Fatalf("Message missing price record: %s", msg)
	}
}

func TestAWSSNSSenderWrapsClientError(t *testing.T) {
	client := &fakeSNSClient{err: errors.New("throttled")}

	err := newTestSNSSender(client).Send(context.Background(), NewEvent("crow", "Crow watch", "", testPrice()))
	if err == nil || !strings.Contains(err.Error(), "publish to sns: throttled") {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestNewSNSPublisherRequiresConfig(t *testing.T) {
	if _, err := newSNSPublisher(context.Background(), PublisherConfig{ID: "topic", Type: TypeSNS}, nil); err == nil {
		t.Fatalf("expected error for missing sns block")
	}
}
