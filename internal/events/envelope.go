package events

// EndpointType identifies the audio endpoint a request concerns.
type EndpointType uint32

const (
	EndpointDSP EndpointType = iota
	EndpointSpeaker
	EndpointHeadphone
	EndpointMicrophone
)

func (t EndpointType) String() string {
	switch t {
	case EndpointDSP:
		return "dsp"
	case EndpointSpeaker:
		return "speaker"
	case EndpointHeadphone:
		return "headphone"
	case EndpointMicrophone:
		return "microphone"
	default:
		return "unknown"
	}
}

// Request is what the sender asks of, or announces about, an endpoint.
type Request uint32

const (
	RequestRegister Request = iota
	RequestStart
	RequestStop
	RequestOverride
)

func (r Request) String() string {
	switch r {
	case RequestRegister:
		return "register"
	case RequestStart:
		return "start"
	case RequestStop:
		return "stop"
	case RequestOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Envelope is one endpoint notification. From carries the sender's
// participant id so subscribers can ignore their own broadcasts.
type Envelope struct {
	From     string
	Endpoint EndpointType
	Request  Request
}
