package session

// Command outcomes reported to a Recorder.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeIgnored = "ignored"
	OutcomeInvalid = "invalid"
)

// Recorder receives counters from the handler and fan-out.
type Recorder interface {
	CommandProcessed(command, outcome string)
	Delivered(n int)
	DeliveryDropped(envelope string)
	ConnectionOpened()
	ConnectionClosed()
	RoomsReaped(n int)
}

type nopRecorder struct{}

func (nopRecorder) CommandProcessed(string, string) {}
func (nopRecorder) Delivered(int)                   {}
func (nopRecorder) DeliveryDropped(string)          {}
func (nopRecorder) ConnectionOpened()               {}
func (nopRecorder) ConnectionClosed()               {}
func (nopRecorder) RoomsReaped(int)                 {}
