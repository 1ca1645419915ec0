package uart

// Mask is the interrupt enable register of a link.
type Mask uint32

// Interrupt sources.
const (
	IntrRxData  Mask = 1 << iota // receive FIFO holds data
	IntrRxOver                   // receive FIFO overrun
	IntrTxEmpty                  // transmitter idle and FIFO empty
	IntrTimeout                  // receive timeout

	// IntrDefault is enabled by Driver.Start. IntrTxEmpty is left to SendByte.
	IntrDefault = IntrRxData | IntrRxOver | IntrTimeout
)

// Has checks if all bits of m are set.
func (m Mask) Has(bits Mask) bool {
	return m&bits == bits
}

// Event identifies why an interrupt fired.
type Event int

// Events delivered to InterruptHandler.
const (
	EventNone Event = iota
	EventRecvData
	EventSentData
	EventOverrun
	EventTimeout
)

func (e Event) String() string {
	switch e {
	case EventRecvData:
		return "recv-data"
	case EventSentData:
		return "sent-data"
	case EventOverrun:
		return "overrun"
	case EventTimeout:
		return "timeout"
	}
	return "none"
}

// Link is the register level view of a serial link used by handlers and
// the gateway. Implementations must tolerate calls from the interrupt
// dispatcher and tasks concurrently.
type Link interface {
	DataAvailable() bool
	ReadByte() byte
	TransmitFull() bool
	TransmitEmpty() bool
	WriteByte(b byte)
	InterruptMask() Mask
	SetInterruptMask(m Mask)
}

// InterruptHandler is invoked in interrupt context. The result asks the
// dispatcher to yield because a task became runnable.
type InterruptHandler interface {
	HandleInterrupt(Event) bool
}

// HandleInterruptFunc is the func form of InterruptHandler.
type HandleInterruptFunc func(Event) bool

// HandleInterrupt implements InterruptHandler.
func (f HandleInterruptFunc) HandleInterrupt(ev Event) bool {
	return f(ev)
}

// InterruptSource is implemented by links delivering interrupts.
type InterruptSource interface {
	SetInterruptHandler(InterruptHandler)
}

// Initializer is implemented by links requiring bring-up before use.
type Initializer interface {
	Init() error
}
