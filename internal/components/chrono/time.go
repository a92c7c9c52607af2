package chrono

import (
	"sync"
	"time"
	_ "time/tzdata"
)

var amsterdam *time.Location

func init() {
	var err error
	amsterdam, err = time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		panic(err)
	}
}

// Amsterdam returns a [*time.Location] for Europe/Amsterdam, the club's home timezone.
func Amsterdam() *time.Location {
	return amsterdam
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time, the timezone of the time will default to Europe/Amsterdam.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(amsterdam)
}

// ManualTime is a TimeAPI whose clock only moves when told to.
type ManualTime struct {
	mutex sync.Mutex
	now   time.Time
}

func NewManualTime(start time.Time) *ManualTime {
	return &ManualTime{now: start}
}

func (m *ManualTime) Now() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *ManualTime) Advance(d time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.now = m.now.Add(d)
}
