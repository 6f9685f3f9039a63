package publishers

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
)

// Event represents a newly observed price record published downstream.
type Event struct {
	WatchID      string        `json:"watch_id"`
	WatchName    string        `json:"watch_name"`
	ProductID    int           `json:"product_id"`
	ProductTitle string        `json:"product_title"`
	Price        catalog.Price `json:"price"`
	ObservedAt   time.Time     `json:"observed_at"`
}

// NewEvent constructs an Event for the given watch + price record.
func NewEvent(watchID, watchName, productTitle string, price catalog.Price) Event {
	return Event{
		WatchID:      watchID,
		WatchName:    watchName,
		ProductID:    price.ProductID(),
		ProductTitle: productTitle,
		Price:        price,
		ObservedAt:   time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"watch_id":   e.WatchID,
		"product_id": strconv.Itoa(e.ProductID),
	}
}

// maxSubjectRunes is the SNS limit for message subjects.
const maxSubjectRunes = 100

// Subject is a one line summary such as "Old Crow: $17.95".
func (e Event) Subject() string {
	title := e.ProductTitle
	if title == "" {
		title = "product " + strconv.Itoa(e.ProductID)
	}
	s := fmt.Sprintf("%s: $%.2f", title, e.Price.Amount)
	if utf8.RuneCountInString(s) <= maxSubjectRunes {
		return s
	}
	return string([]rune(s)[:maxSubjectRunes])
}

// dedupeID identifies the price revision carried by the event. It matches the
// watcher's ledger key.
func (e Event) dedupeID() string {
	return e.Price.RevisionKey()
}
