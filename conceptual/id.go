package conceptual

import "github.com/google/uuid"

// TripID identifies one trip: the span from the first accepted sample
// after a reset until the next reset.
type TripID string

// NewTripID returns a fresh random TripID.
func NewTripID() TripID {
	return TripID(uuid.NewString())
}

func (t TripID) String() string {
	return string(t)
}

func (t TripID) Empty() bool {
	return t == ""
}
