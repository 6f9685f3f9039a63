package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestAWSSQSSenderSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://example.com/queue",
		client:   client,
		log:      discardLogger{},
	}

	err := sender.Send(context.Background(), NewEvent("watch-1", "Watch", "Old Crow", testPrice()))
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["watch_id"]
	if !ok || attr.StringValue == nil || aws.ToString(attr.StringValue) != "watch-1" {
		t.Fatalf("watch_id attribute missing or wrong: %#v", attr)
	}
	if attr.DataType == nil || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if got := aws.ToString(client.input.MessageAttributes["product_id"].StringValue); got != "1" {
		t.Fatalf("product_id attribute = %q", got)
	}
	if client.input.MessageBody == nil || !strings.Contains(aws.ToString(client.input.MessageBody), `"watch_id":"watch-1"`) {
		t.Fatalf("MessageBody missing watch_id: %s", aws.ToString(client.input.MessageBody))
	}
	if client.input.MessageGroupId != nil || client.input.MessageDeduplicationId != nil {
		t.Fatalf("standard queues must not get FIFO fields")
	}
}

func TestAWSSQSSenderFIFOQueue(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://sqs.us-west-2.amazonaws.com/000000000000/prices.fifo",
		client:   client,
		log:      discardLogger{},
	}

	if err := sender.Send(context.Background(), NewEvent("watch-1", "Watch", "Old Crow", testPrice())); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got := aws.ToString(client.input.MessageGroupId); got != "1" {
		t.Fatalf("MessageGroupId = %q, want product id", got)
	}
	if got := aws.ToString(client.input.MessageDeduplicationId); got != "/api/v1/price/7/@2013-09-21T00:00:00Z" {
		t.Fatalf("MessageDeduplicationId = %q", got)
	}
}

func TestAWSSQSSenderSendError(t *testing.T) {
	client := &fakeSQSClient{err: errors.New("boom")}
	pub := &senderPublisher{
		id:  "queue",
		typ: TypeSQS,
		sender: &awsSQSSender{
			queueURL: "https://example.com/queue",
			client:   client,
			log:      discardLogger{},
		},
	}

	err := pub.Publish(context.Background(), NewEvent("watch-1", "Watch", "", testPrice()))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestNewSQSPublisherWithStaticCredentials(t *testing.T) {
	pub, err := newSQSPublisher(context.Background(), PublisherConfig{
		ID:   "queue",
		Type: TypeSQS,
		SQS: &SQSPublisherConfig{
			QueueURL:    "http://localhost:4566/000000000000/prices",
			Region:      "us-west-2",
			Endpoint:    "http://localhost:4566",
			Credentials: AWSCredentials{AccessKeyID: "test", SecretAccessKey: "test"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("newSQSPublisher: %v", err)
	}
	if pub.ID() != "queue" || pub.Type() != TypeSQS {
		t.Fatalf("unexpected publisher identity %s/%s", pub.ID(), pub.Type())
	}
}

func TestAWSSQSSenderFIFODeduplicationPerRevision(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		a, b catalog.Price
	}{
		{
			name: "records without uri",
			a:    catalog.Price{ID: 1, ProductURI: "/api/v1/product/1/"},
			b:    catalog.Price{ID: 2, ProductURI: "/api/v1/product/1/"},
		},
		{
			name: "revisions within one second",
			a:    catalog.Price{ID: 3, URI: "/api/v1/price/3/", ModifiedAt: base.Add(100 * time.Nanosecond)},
			b:    catalog.Price{ID: 3, URI: "/api/v1/price/3/", ModifiedAt: base.Add(500 * time.Millisecond)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeSQSClient{}
			sender := &awsSQSSender{queueURL: "https://sqs.us-west-2.amazonaws.com/000000000000/prices.fifo", client: client, log: discardLogger{}}

			var ids []string
			for _, p := range []catalog.Price{tc.a, tc.b} {
				if err := sender.Send(context.Background(), NewEvent("w", "w", "", p)); err != nil {
					t.Fatalf("Send: %v", err)
				}
				id := aws.ToString(client.input.MessageDeduplicationId)
				if id != p.RevisionKey() {
					t.Fatalf("MessageDeduplicationId = %q, want ledger key %q", id, p.RevisionKey())
				}
				ids = append(ids, id)
			}
			if ids[0] == ids[1] {
				t.Fatalf("distinct revisions share deduplication id %q", ids[0])
			}
		})
	}
}
