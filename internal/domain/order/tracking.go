package order

import "time"

// TrackingResult is the outcome of one carrier status query
type TrackingResult struct {
	IsSigned      bool
	State         *int
	Status        string // machine readable, e.g. in_transit
	StatusDesc    string
	LatestTime    *time.Time
	LatestContext string
	TrackCount    int
}

// Patch converts the result into the logistics patch applied at checkedAt.
// The latest track time becomes the sign time only for signed parcels.
func (r *TrackingResult) Patch(checkedAt time.Time) LogisticsPatch {
	p := LogisticsPatch{
		IsSigned:            r.IsSigned,
		LogisticsStatus:     r.State,
		LogisticsStatusDesc: r.StatusDesc,
		CheckedAt:           checkedAt,
	}
	if r.IsSigned {
		p.SignTime = r.LatestTime
	}
	return p
}
