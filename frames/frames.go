// Package frames contains convenience constructors for STOMP frames.
//
// The constructors build plain frames and do not apply protocol-version
// rules; version legality lives in the client package.
package frames

import (
	"bytes"

	"github.com/disaster37/onstomp"
)

// Empty is an empty STOMP frame and is provided as a convenience.
//
// On the wire an empty frame is a heartbeat.
var Empty onstomp.Frame

// Heartbeat returns the heartbeat frame.
func Heartbeat() onstomp.Frame {
	return Empty
}

// Connect creates a CONNECT frame using the given credentials.
func Connect(login, passcode string) onstomp.Frame {
	f := onstomp.Frame{
		Command: onstomp.CommandConnect,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderLogin, Value: login},
			{Name: onstomp.HeaderPasscode, Value: passcode},
		},
	}
	return f
}

// Connected creates a CONNECTED frame.
func Connected(session, version string) onstomp.Frame {
	f := onstomp.Frame{
		Command: onstomp.CommandConnected,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderSession, Value: session},
		},
	}
	if version != "" {
		f.Headers = f.Headers.Append(onstomp.HeaderVersion, version)
	}
	return f
}

// Disconnect creates a DISCONNECT frame.
func Disconnect() onstomp.Frame {
	return onstomp.Frame{Command: onstomp.CommandDisconnect}
}

// Error creates an ERROR frame from an existing frame.
//
// message becomes the message header in the returned frame which should
// be a short description of the error.
//
// If present body becomes the leading portion of the frame body.
//
// If frame is a non-empty frame then it will be partially inserted into the returned
// frame's body to allow for contextual information about a frame causing the error.
func Error(message string, body string, frame onstomp.Frame) onstomp.Frame {
	f := onstomp.Frame{
		Command: onstomp.CommandError,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderMessage, Value: message},
		},
	}
	buf := &bytes.Buffer{}
	if !frame.Empty() {
		buf.WriteString("The frame\n----\n")
		_, _ = frame.WriteTo(buf)
		buf.WriteString("\n----\n")
	}
	if body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	if buf.Len() > 0 {
		f.Body = buf.Bytes()
	}
	return f
}

// Message creates a MESSAGE frame as a broker would deliver for a
// subscription.  subscription and messageID are optional.
func Message(dest, subscription, messageID string, body []byte) onstomp.Frame {
	f := onstomp.Frame{
		Command: onstomp.CommandMessage,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderDestination, Value: dest},
		},
		Body: body,
	}
	if messageID != "" {
		f.Headers = f.Headers.Append(onstomp.HeaderMessageID, messageID)
	}
	if subscription != "" {
		f.Headers = f.Headers.Append(onstomp.HeaderSubscription, subscription)
	}
	return f
}

// Ack creates an ACK frame from identifying headers.  Which headers identify
// a message depends on the protocol version and is decided by the caller.
func Ack(identifiers onstomp.Headers) onstomp.Frame {
	return onstomp.Frame{
		Command: onstomp.CommandAck,
		Headers: identifiers,
	}
}

// Nack creates a NACK frame from identifying headers; see Ack.
func Nack(identifiers onstomp.Headers) onstomp.Frame {
	return onstomp.Frame{
		Command: onstomp.CommandNack,
		Headers: identifiers,
	}
}

// Receipt creates a RECEIPT frame acknowledging receiptID.
func Receipt(receiptID string) onstomp.Frame {
	return onstomp.Frame{
		Command: onstomp.CommandReceipt,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderReceiptID, Value: receiptID},
		},
	}
}

// Send creates a SEND frame.
//
// dest is required by STOMP protocol but not enforced by this function.
func Send(dest string, body []byte) onstomp.Frame {
	f := onstomp.Frame{
		Command: onstomp.CommandSend,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderDestination, Value: dest},
		},
		Body: body,
	}
	return f
}

// SendString creates a SEND frame from a string message body.
//
// dest is required by STOMP protocol but not enforced by this function.
func SendString(dest string, body string) onstomp.Frame {
	return Send(dest, []byte(body))
}

// Subscribe creates a SUBSCRIBE frame.
//
// dest is required by STOMP protocol but not enforced by this function.
// ack and id are optional and should be set according to STOMP protocol.
func Subscribe(dest, ack, id string) onstomp.Frame {
	f := onstomp.Frame{
		Command: onstomp.CommandSubscribe,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderDestination, Value: dest},
		},
	}
	if ack != "" {
		f.Headers = f.Headers.Append(onstomp.HeaderAck, ack)
	}
	if id != "" {
		f.Headers = f.Headers.Append(onstomp.HeaderID, id)
	}
	return f
}

// Transaction creates a BEGIN, COMMIT, or ABORT frame for the transaction id.
func Transaction(command Command, tx string) onstomp.Frame {
	return onstomp.Frame{
		Command: string(command),
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderTransaction, Value: tx},
		},
	}
}

// Command is re-exported so Transaction call sites read naturally.
type Command = onstomp.Command

// Unsubscribe creates an UNSUBSCRIBE frame.
//
// One of dest or id is required and they are mutually exclusive; however this is not
// enforced by this function.
func Unsubscribe(dest, id string) onstomp.Frame {
	f := onstomp.Frame{
		Command: onstomp.CommandUnsubscribe,
	}
	if dest != "" {
		f.Headers = f.Headers.Append(onstomp.HeaderDestination, dest)
	}
	if id != "" {
		f.Headers = f.Headers.Append(onstomp.HeaderID, id)
	}
	return f
}
