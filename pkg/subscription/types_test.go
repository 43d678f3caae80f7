package subscription

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateInactive, "INACTIVE"},
		{StateHighPrioritySendQueued, "HIGH_PRIORITY_SEND_QUEUED"},
		{StateNormalSendQueued, "NORMAL_SEND_QUEUED"},
		{StateResponseWaiting, "RESPONSE_WAITING"},
		{StateSubscribed, "SUBSCRIBED"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStatePredicates(t *testing.T) {
	assert.True(t, StateHighPrioritySendQueued.Queued())
	assert.True(t, StateNormalSendQueued.Queued())
	assert.False(t, StateResponseWaiting.Queued())
	assert.True(t, StateResponseWaiting.Correlated())
	assert.True(t, StateSubscribed.Correlated())
	assert.False(t, StateInactive.Correlated())
	assert.False(t, StateNormalSendQueued.Correlated())
}

func TestLaneValid(t *testing.T) {
	for _, l := range Lanes {
		if !l.Valid() {
			t.Errorf("%s.Valid() = false, want true", l)
		}
	}
	if Lane(2).Valid() {
		t.Error("Lane(2).Valid() = true, want false")
	}
}

func TestParseLane(t *testing.T) {
	l, err := ParseLane(" High ")
	require.NoError(t, err)
	assert.Equal(t, LaneHigh, l)

	var u Lane
	require.NoError(t, u.UnmarshalText([]byte("normal")))
	assert.Equal(t, LaneNormal, u)

	_, err = ParseLane("urgent")
	assert.Error(t, err)
}

func TestParseThrottleMode(t *testing.T) {
	m, err := ParseThrottleMode("STRICT")
	require.NoError(t, err)
	assert.Equal(t, ThrottleStrict, m)
	assert.Equal(t, "BURST", ThrottleBurst.String())

	var v ThrottleMode
	assert.Error(t, v.UnmarshalText([]byte("leaky")))
}

func TestErrorKindClassification(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		severity  Severity
		warning   bool
		retryable bool
	}{
		{ErrorInternal, SeverityError, false, false},
		{ErrorInvalidRequest, SeverityError, false, false},
		{ErrorOfflined, SeverityError, false, false},
		{ErrorRequestTimeout, SeveritySuspect, false, true},
		{ErrorSubscription, SeverityError, false, true},
		{ErrorPublishRequest, SeverityError, false, true},
		{ErrorSubscriptionWarning, SeveritySuspect, true, false},
		{ErrorData, SeveritySuspect, true, false},
		{ErrorUserNotAuthorised, SeverityError, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.severity, tt.kind.Severity())
			assert.Equal(t, tt.warning, tt.kind.Warning())
			assert.Equal(t, tt.retryable, tt.kind.Retryable())
		})
	}
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("boom")
	ie := &InternalError{Err: cause}
	assert.ErrorIs(t, ie, cause)
	assert.Contains(t, ie.Error(), "boom")

	assert.Equal(t, "invalid request: no market", (&InvalidRequestError{Reason: "no market"}).Error())
	assert.Equal(t, "DATA_ERROR: stale", ServerError{Kind: ErrorData, Text: "stale"}.Error())
	assert.Equal(t, "SUBSCRIPTION_ERROR", ServerError{Kind: ErrorSubscription}.Error())
}

func TestCounterSkipsZero(t *testing.T) {
	c := &Counter{last: ^uint32(0) - 1}
	assert.Equal(t, ^uint32(0), c.Next())
	assert.Equal(t, uint32(1), c.Next())
}

func TestDefinitionReferencable(t *testing.T) {
	assert.True(t, Definition{ReferencableKey: "AAPL"}.Referencable())
	assert.False(t, Definition{}.Referencable())
}

func TestNotificationString(t *testing.T) {
	n := Notification{
		Kind:       NotifyRequestTimeout,
		DataItemID: 2,
		Severity:   SeveritySuspect,
		ErrorKind:  ErrorRequestTimeout,
		Text:       "5 seconds",
	}
	assert.Equal(t, `REQUEST_TIMEOUT id=2 seq=0 REQUEST_TIMEOUT/SUSPECT "5 seconds"`, n.String())
}
