package loop

// Manual is a Host that runs nothing until told to. It is not safe for
// concurrent use.
//
//	host := loop.NewManual()
//	engine := bind.New(doc, bind.WithHost(host))
//	...
//	host.Frame() // run one animation frame
//	host.Drain() // run everything, including work queued while draining
type Manual struct {
	posted []func()
	frames []func()
	idle   []func()

	frameCount int
}

// NewManual creates an empty manual host.
func NewManual() *Manual {
	return &Manual{}
}

// Post queues fn for the next turn.
func (m *Manual) Post(fn func()) { m.posted = append(m.posted, fn) }

// RequestFrame queues fn for the next frame.
func (m *Manual) RequestFrame(fn func()) { m.frames = append(m.frames, fn) }

// RequestIdle queues fn for the next idle turn.
func (m *Manual) RequestIdle(fn func()) { m.idle = append(m.idle, fn) }

// Pending returns the number of queued callbacks of every kind.
func (m *Manual) Pending() int {
	return len(m.posted) + len(m.frames) + len(m.idle)
}

// Frames returns how many frames have run.
func (m *Manual) Frames() int { return m.frameCount }

// Turn runs every posted callback, including ones posted while running.
func (m *Manual) Turn() {
	for len(m.posted) > 0 {
		batch := m.posted
		m.posted = nil
		for _, fn := range batch {
			fn()
		}
	}
}

// Frame runs posted work, then the callbacks requested for this frame.
// Frame requests made while the frame runs wait for the next one.
func (m *Manual) Frame() {
	m.Turn()
	batch := m.frames
	m.frames = nil
	if len(batch) > 0 {
		m.frameCount++
	}
	for _, fn := range batch {
		fn()
	}
	m.Turn()
}

// Idle runs posted work, then one idle callback. It reports whether an idle
// callback ran.
func (m *Manual) Idle() bool {
	m.Turn()
	if len(m.idle) == 0 {
		return false
	}
	fn := m.idle[0]
	m.idle = m.idle[1:]
	fn()
	m.Turn()
	return true
}

// Drain runs frames and idle callbacks until nothing is queued.
func (m *Manual) Drain() {
	for m.Pending() > 0 {
		m.Turn()
		if len(m.frames) > 0 {
			m.Frame()
			continue
		}
		m.Idle()
	}
}
