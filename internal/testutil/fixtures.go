package testutil

import "fmt"

// Test constants for consistent test data.
const (
	// TestToken is an API token used to check redaction.
	TestToken = "acb-5f1d2e7c9a0b4e3f"

	// TestEndpoint is the endpoint identity most tests run against.
	TestEndpoint = "acumbamail"

	// TestListID is a mailing list identifier.
	TestListID = 1042
)

// Subscriber is a bulk-import input item.
type Subscriber struct {
	Email  string `json:"email"`
	ListID int    `json:"list_id"`
}

// TestSubscribers returns n subscribers with distinct addresses.
func TestSubscribers(n int) []Subscriber {
	out := make([]Subscriber, n)
	for i := range out {
		out[i] = Subscriber{
			Email:  fmt.Sprintf("user%03d@example.com", i),
			ListID: TestListID,
		}
	}
	return out
}
