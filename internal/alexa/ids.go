package alexa

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the UTC layout used for timeOfSample and payload timestamps.
const TimestampLayout = "2006-01-02T15:04:05.00Z"

// Clock returns the current time. Responses use time.Now when none is given.
type Clock func() time.Time

// IDSource produces message identifiers and fallback endpoint identifiers
type IDSource interface {
	MessageID() string
	EndpointID() string
}

// randomIDs is the default IDSource: UUIDv4 message ids and a random
// six digit endpoint suffix. Endpoint ids are not guaranteed to be unique.
type randomIDs struct{}

func (randomIDs) MessageID() string {
	return uuid.NewString()
}

func (randomIDs) EndpointID() string {
	return fmt.Sprintf("endpoint_%06d", rand.Intn(1000000))
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
