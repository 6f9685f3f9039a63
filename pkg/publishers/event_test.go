package publishers

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
)

func testPrice() catalog.Price {
	return catalog.Price{
		ID:         7,
		Amount:     17.95,
		ProductURI: "/api/v1/product/1/",
		URI:        "/api/v1/price/7/",
		ModifiedAt: time.Date(2013, 9, 21, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewEventCarriesPriceAndProduct(t *testing.T) {
	evt := NewEvent("crow", "Old Crow watch", "Old Crow", testPrice())

	if evt.ProductID != 1 {
		t.Fatalf("ProductID = %d, want 1", evt.ProductID)
	}
	if evt.ObservedAt.IsZero() || evt.ObservedAt.Location() != time.UTC {
		t.Fatalf("ObservedAt should be set in UTC, got %v", evt.ObservedAt)
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"watch_id":"crow"`, `"product_title":"Old Crow"`, `"amount":17.95`, `"resource_uri":"/api/v1/price/7/"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("payload %s missing %s", raw, want)
		}
	}

	attrs := evt.attributes()
	if attrs["watch_id"] != "crow" || attrs["product_id"] != "1" {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
}

func TestEventSubject(t *testing.T) {
	cases := []struct {
		name  string
		title string
		want  string
	}{
		{"titled", "Old Crow", "Old Crow: $17.95"},
		{"untitled", "", "product 1: $17.95"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewEvent("w", "w", tc.title, testPrice()).Subject(); got != tc.want {
				t.Fatalf("Subject() = %q, want %q", got, tc.want)
			}
		})
	}

	long := NewEvent("w", "w", strings.Repeat("é", 150), testPrice()).Subject()
	if n := len([]rune(long)); n != maxSubjectRunes {
		t.Fatalf("long subject has %d runes, want %d", n, maxSubjectRunes)
	}
}
