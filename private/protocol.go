package private

import (
	"encoding/gob"
	"fmt"
	"io"
)

func init() {
	// Register payload types for gob encoding
	gob.Register(SetupPayload{})
	gob.Register(ScorePayload{})
	gob.Register(ResultPayload{})
}

// MessageType defines message types for the scoring protocol
type MessageType int

const (
	MsgSetup MessageType = iota
	MsgReady
	MsgScore
	MsgResult
	MsgDone
	MsgError
)

// Message represents a message in the scoring protocol
type Message struct {
	Type    MessageType
	Payload interface{}
}

// SetupPayload carries the client's parameters and public evaluation keys
type SetupPayload struct {
	Params   []byte
	EvalKeys []byte
}

// ScorePayload contains one encrypted feature vector
type ScorePayload struct {
	BatchID    int
	Ciphertext []byte
	Level      int
}

// ResultPayload contains one encrypted score vector
type ResultPayload struct {
	BatchID    int
	Ciphertext []byte
	Level      int
}

// Protocol handles scoring communication between client and server
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

// NewProtocol creates a new protocol handler
func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	return &Protocol{
		encoder: gob.NewEncoder(w),
		decoder: gob.NewDecoder(r),
	}
}

// Send sends a message
func (p *Protocol) Send(msg *Message) error {
	return p.encoder.Encode(msg)
}

// Receive receives a message
func (p *Protocol) Receive() (*Message, error) {
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendSetup sends the crypto setup to the scoring server
func (p *Protocol) SendSetup(paramsBytes, evalKeyBytes []byte) error {
	return p.Send(&Message{
		Type: MsgSetup,
		Payload: SetupPayload{
			Params:   paramsBytes,
			EvalKeys: evalKeyBytes,
		},
	})
}

// SendReady acknowledges a completed setup
func (p *Protocol) SendReady() error {
	return p.Send(&Message{Type: MsgReady})
}

// SendScore sends one encrypted feature vector for scoring
func (p *Protocol) SendScore(batchID int, ctBytes []byte, level int) error {
	return p.Send(&Message{
		Type: MsgScore,
		Payload: ScorePayload{
			BatchID:    batchID,
			Ciphertext: ctBytes,
			Level:      level,
		},
	})
}

// SendResult sends one encrypted score vector back
func (p *Protocol) SendResult(batchID int, ctBytes []byte, level int) error {
	return p.Send(&Message{
		Type: MsgResult,
		Payload: ResultPayload{
			BatchID:    batchID,
			Ciphertext: ctBytes,
			Level:      level,
		},
	})
}

// SendDone signals completion
func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

// SendError sends an error message
func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{
		Type:    MsgError,
		Payload: err.Error(),
	})
}

// ReceiveSetup receives the crypto setup
func (p *Protocol) ReceiveSetup() (*SetupPayload, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	if msg.Type == MsgError {
		return nil, fmt.Errorf("remote error: %v", msg.Payload)
	}
	if msg.Type != MsgSetup {
		return nil, fmt.Errorf("expected setup message, got %d", msg.Type)
	}
	payload, ok := msg.Payload.(SetupPayload)
	if !ok {
		return nil, fmt.Errorf("invalid setup payload type")
	}
	return &payload, nil
}

// ReceiveReady waits for the setup acknowledgement
func (p *Protocol) ReceiveReady() error {
	msg, err := p.Receive()
	if err != nil {
		return err
	}
	if msg.Type == MsgError {
		return fmt.Errorf("remote error: %v", msg.Payload)
	}
	if msg.Type != MsgReady {
		return fmt.Errorf("expected ready message, got %d", msg.Type)
	}
	return nil
}

// ReceiveScore receives a scoring request. Returns io.EOF when the peer is
// done.
func (p *Protocol) ReceiveScore() (*ScorePayload, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	if msg.Type == MsgError {
		return nil, fmt.Errorf("remote error: %v", msg.Payload)
	}
	if msg.Type == MsgDone {
		return nil, io.EOF
	}
	if msg.Type != MsgScore {
		return nil, fmt.Errorf("expected score message, got %d", msg.Type)
	}
	payload, ok := msg.Payload.(ScorePayload)
	if !ok {
		return nil, fmt.Errorf("invalid score payload type")
	}
	return &payload, nil
}

// ReceiveResult receives a scoring result
func (p *Protocol) ReceiveResult() (*ResultPayload, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	if msg.Type == MsgError {
		return nil, fmt.Errorf("remote error: %v", msg.Payload)
	}
	if msg.Type == MsgDone {
		return nil, io.EOF
	}
	if msg.Type != MsgResult {
		return nil, fmt.Errorf("expected result message, got %d", msg.Type)
	}
	payload, ok := msg.Payload.(ResultPayload)
	if !ok {
		return nil, fmt.Errorf("invalid result payload type")
	}
	return &payload, nil
}
