package wsrelay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"messageID":42,"type":"message","roomID":"lobby","message":{"text":"hi"}}`))
	require.NoError(t, err)

	assert.Equal(t, TypeMessage, msg.Type)
	assert.Equal(t, "lobby", msg.RoomID)
	assert.Equal(t, "42", msg.ID.String())
	assert.JSONEq(t, `{"text":"hi"}`, string(msg.Body))
}

func TestDecodeMessage_Invalid(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"messageID":`))
	assert.Error(t, err)
}

func TestDecodeMessage_RejectsNonScalarID(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"messageID":{"a":1},"type":"message"}`))
	assert.Error(t, err)
}

func TestMessageID_RoundTripsVerbatim(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "number", in: `{"messageID":42,"type":"subscribe","roomID":"a"}`},
		{name: "negative number", in: `{"messageID":-7,"type":"subscribe","roomID":"a"}`},
		{name: "string", in: `{"messageID":"req-1","type":"subscribe","roomID":"a"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tt.in))
			require.NoError(t, err)

			out, err := ackMessage(msg.ID).Encode()
			require.NoError(t, err)

			echoed, err := DecodeMessage(out)
			require.NoError(t, err)
			assert.Equal(t, TypeAck, echoed.Type)
			assert.Equal(t, msg.ID.String(), echoed.ID.String())
		})
	}
}

func TestAckMessage_OmitsUnsetFields(t *testing.T) {
	out, err := ackMessage(NumberID(3)).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"messageID":3,"type":"ack"}`, string(out))
}

func TestErrorMessage(t *testing.T) {
	out, err := errorMessage("Internal server error").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"Internal server error"}`, string(out))
}
