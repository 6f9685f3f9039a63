package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestLoadRegistrySanitizesAllTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers": [
		{"id": " q ", "type": "SQS", "sqs": {"uri": " https://sqs/q ", "region": "us-west-2"}},
		{"id": "t", "type": "sns", "sns": {"topic_arn": "arn:aws:sns:us-west-2:1:prices", "region": "us-west-2",
			"credentials": {"access_key_id": "AKIA", "secret_access_key": "secret"}}},
		{"id": "g", "type": "pubsub", "pubsub": {"project_id": "proj", "topic": "prices"}},
		{"id": "h", "type": "http", "http": {"url": "https://hook", "method": "put", "headers": {" X-A ": " 1 ", "X-Empty": " "}}}
	]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 4 {
		t.Fatalf("expected 4 publishers, got %d", len(reg.All()))
	}
	q, ok := reg.ByID("q")
	if !ok || q.Type != TypeSQS || q.SQS.QueueURL != "https://sqs/q" {
		t.Fatalf("sqs entry not sanitized: %#v", q)
	}
	h, _ := reg.ByID("h")
	if h.HTTP.Method != "PUT" || h.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", h.HTTP)
	}
	if len(h.HTTP.Headers) != 1 || h.HTTP.Headers["X-A"] != "1" {
		t.Fatalf("headers not sanitized: %#v", h.HTTP.Headers)
	}
	if _, ok := reg.ByID("missing"); ok {
		t.Fatalf("unexpected entry for unknown id")
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: a
    type: http
    http:
      url: https://one
  - id: a
    type: http
    http:
      url: https://two
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfigCases(t *testing.T) {
	cases := []struct {
		name string
		cfg  PublisherConfig
	}{
		{"missing id", PublisherConfig{Type: TypeHTTP}},
		{"unknown type", PublisherConfig{ID: "x", Type: "kafka"}},
		{"sqs region", PublisherConfig{ID: "x", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}}},
		{"sns arn", PublisherConfig{ID: "x", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "r"}}},
		{"half credentials", PublisherConfig{ID: "x", Type: TypeSNS, SNS: &SNSPublisherConfig{
			TopicARN: "arn", Region: "r", Credentials: AWSCredentials{AccessKeyID: "AKIA"},
		}}},
		{"pubsub topic", PublisherConfig{ID: "x", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validatePublisherConfig(tc.cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
