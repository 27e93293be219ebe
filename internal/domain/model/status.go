package model

import "time"

// RawStatus is the proxy-authoritative classification of a credential.
type RawStatus string

const (
	RawStatusNormal  RawStatus = "normal"
	RawStatusInvalid RawStatus = "invalid"
	RawStatusExpired RawStatus = "expired"
)

// DerivedStatus is the classification actually shown to and filtered by the
// user. It reconciles the proxy-supplied RawStatus with a locally computed
// expiry check, since the two can disagree (a credential can report normal
// while its token expiry has already passed).
type DerivedStatus string

const (
	StatusDisabled DerivedStatus = "disabled"
	StatusInvalid  DerivedStatus = "invalid"
	StatusExpired  DerivedStatus = "expired"
	StatusNormal   DerivedStatus = "normal"
)

// Bucket is a display grouping of derived statuses used for tab filtering.
// Invalid and disabled credentials share one bucket.
type Bucket string

const (
	BucketAll       Bucket = "all"
	BucketAvailable Bucket = "available"
	BucketExpired   Bucket = "expired"
	BucketInvalid   Bucket = "invalid"
)

// DeriveStatus classifies a credential for display. Precedence, first match
// wins: disabled, then raw invalid, then expired (raw expired or a non-nil
// expiry before now), then normal. A nil expiresAt never yields expired on
// its own. The function is pure; callers must pass a fresh now on every
// classification pass since elapsed wall-clock time alone can flip the result.
func DeriveStatus(disabled bool, raw RawStatus, expiresAt *time.Time, now time.Time) DerivedStatus {
	switch {
	case disabled:
		return StatusDisabled
	case raw == RawStatusInvalid:
		return StatusInvalid
	case raw == RawStatusExpired:
		return StatusExpired
	case expiresAt != nil && expiresAt.Before(now):
		return StatusExpired
	default:
		return StatusNormal
	}
}

// DerivedStatus classifies the credential against the given instant.
func (c Credential) DerivedStatus(now time.Time) DerivedStatus {
	return DeriveStatus(c.Disabled, c.RawStatus, c.ExpiresAt, now)
}

// InBucket reports whether the derived status belongs to the display bucket.
func (s DerivedStatus) InBucket(b Bucket) bool {
	switch b {
	case BucketAll:
		return true
	case BucketAvailable:
		return s == StatusNormal
	case BucketExpired:
		return s == StatusExpired
	case BucketInvalid:
		return s == StatusInvalid || s == StatusDisabled
	default:
		return false
	}
}

// ParseBucket maps a request string to a Bucket. Empty input means all.
func ParseBucket(raw string) (Bucket, bool) {
	switch Bucket(raw) {
	case BucketAvailable, BucketExpired, BucketInvalid, BucketAll:
		return Bucket(raw), true
	case "":
		return BucketAll, true
	default:
		return "", false
	}
}
