package client_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/disaster37/onstomp"
	"github.com/disaster37/onstomp/client"
)

func TestVersion_Supports(t *testing.T) {
	type SupportsTest struct {
		Version   client.Version
		Command   string
		Supported bool
	}
	tests := []SupportsTest{
		{Version: client.V10, Command: onstomp.CommandAck, Supported: true},
		{Version: client.V10, Command: onstomp.CommandNack, Supported: false},
		{Version: client.V10, Command: onstomp.CommandStomp, Supported: false},
		{Version: client.V11, Command: onstomp.CommandNack, Supported: true},
		{Version: client.V12, Command: onstomp.CommandNack, Supported: true},
		{Version: client.V11, Command: onstomp.CommandSend, Supported: true},
	}
	for _, test := range tests {
		t.Run(string(test.Version)+" "+test.Command, func(t *testing.T) {
			chk := assert.New(t)
			chk.Equal(test.Supported, test.Version.Supports(test.Command))
		})
	}
}

func TestVersion_SupportsHeartbeat(t *testing.T) {
	chk := assert.New(t)
	chk.False(client.V10.SupportsHeartbeat())
	chk.True(client.V11.SupportsHeartbeat())
	chk.True(client.V12.SupportsHeartbeat())
}

func TestVersion_AckHeaders(t *testing.T) {
	type AckHeadersTest struct {
		Name         string
		Version      client.Version
		MessageID    string
		Subscription string
		Expect       onstomp.Headers
		Error        error
	}
	tests := []AckHeadersTest{
		{
			Name:      "1.0 message-id only",
			Version:   client.V10,
			MessageID: "m-1",
			Expect: onstomp.Headers{
				{Name: onstomp.HeaderMessageID, Value: "m-1"},
			},
		},
		{
			Name:         "1.1 both",
			Version:      client.V11,
			MessageID:    "m-1",
			Subscription: "s-1",
			Expect: onstomp.Headers{
				{Name: onstomp.HeaderMessageID, Value: "m-1"},
				{Name: onstomp.HeaderSubscription, Value: "s-1"},
			},
		},
		{
			Name:      "1.1 missing subscription",
			Version:   client.V11,
			MessageID: "m-1",
			Error:     onstomp.ErrMissingHeader,
		},
		{
			Name:         "1.2 id",
			Version:      client.V12,
			MessageID:    "ack-7",
			Subscription: "s-1",
			Expect: onstomp.Headers{
				{Name: onstomp.HeaderID, Value: "ack-7"},
			},
		},
		{
			Name:    "missing message id",
			Version: client.V10,
			Error:   onstomp.ErrMissingHeader,
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			chk := assert.New(t)
			h, err := test.Version.AckHeaders(test.MessageID, test.Subscription)
			chk.Equal(test.Expect, h)
			chk.ErrorIs(err, test.Error)
		})
	}
}

func TestVersion_Known(t *testing.T) {
	chk := assert.New(t)
	chk.True(client.V10.Known())
	chk.True(client.V11.Known())
	chk.True(client.V12.Known())
	chk.False(client.Version("2.0").Known())
	chk.False(client.Version("").Known())
}
