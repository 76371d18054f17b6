package timezone

import "time"

// Location is the single reference zone every emitted timestamp is
// normalized to.
var Location = time.UTC

// SetLocation changes the reference zone by IANA name, an empty name keeps
// the current one.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Location = loc
	return nil
}

func Now() time.Time {
	return time.Now().In(Location)
}

func Normalize(t time.Time) time.Time {
	return t.In(Location)
}

// NormalizePtr is Normalize for optional timestamps, nil stays nil.
func NormalizePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := t.In(Location)
	return &n
}
