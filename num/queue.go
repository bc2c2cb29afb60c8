package num

import (
	"fmt"
	"sort"
	"time"
)

// Device interface type
type Device interface {
	// Setup new op queue
	NewQueue() Queue
	// Allocate new n dimensional array
	NewArray(dtype DataType, dims ...int) Array
	NewArrayLike(a Array) Array
}

// Initialise a new CPU device
func NewDevice() Device {
	return cpuDevice{}
}

// A Queue processes a series of operations on a Device
type Queue interface {
	Device
	Dev() Device
	// Run the given ops in order
	Call(args ...Function) Queue
	// Wait for any pending requests to complete
	Finish()
	// Shutdown the queue and release any resources
	Shutdown()
	// Enable profiling
	Profiling(on bool)
	Profile() string
}

// Function is an op which may be called via the queue
type Function struct {
	name string
	fn   func()
}

type cpuDevice struct{}

type cpuQueue struct {
	cpuDevice
	*profile
}

func (d cpuDevice) NewQueue() Queue {
	return &cpuQueue{profile: newProfile()}
}

func (q *cpuQueue) Dev() Device { return q.cpuDevice }

func (q *cpuQueue) Call(args ...Function) Queue {
	if q.profile.enabled {
		for _, arg := range args {
			start := time.Now()
			arg.fn()
			q.profile.add(arg.name, time.Since(start))
		}
		return q
	}
	for _, arg := range args {
		arg.fn()
	}
	return q
}

func (q *cpuQueue) Finish() {}

func (q *cpuQueue) Shutdown() {
	if q.profile.enabled {
		fmt.Println(q.Profile())
	}
}

// profiling functions
type profile struct {
	prof    map[string]profileRec
	enabled bool
}

type profileRec struct {
	name  string
	calls int64
	msec  float64
}

func newProfile() *profile {
	return &profile{prof: make(map[string]profileRec)}
}

func (p *profile) Profiling(on bool) {
	p.enabled = on
}

func (p *profile) add(name string, elapsed time.Duration) {
	r := p.prof[name]
	r.name = name
	r.calls++
	r.msec += float64(elapsed.Microseconds()) / 1000
	p.prof[name] = r
}

func (p *profile) Profile() string {
	list := make([]profileRec, 0, len(p.prof))
	for _, v := range p.prof {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[j].msec < list[i].msec })
	s := "== Profile ==\n"
	totalCalls := int64(0)
	totalMsec := 0.0
	for _, r := range list {
		s += fmt.Sprintf("%-25s %8d calls %10.1f msec\n", r.name, r.calls, r.msec)
		totalCalls += r.calls
		totalMsec += r.msec
	}
	s += fmt.Sprintf("%-25s %8d calls %10.1f msec", "TOTAL", totalCalls, totalMsec)
	return s
}
