package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDecision(t *testing.T) {
	allow := AuthzDecisions.WithLabelValues("role", "allow")
	deny := AuthzDecisions.WithLabelValues("role", "deny")
	beforeAllow, beforeDeny := testutil.ToFloat64(allow), testutil.ToFloat64(deny)

	ObserveDecision("role", true)
	ObserveDecision("role", false)
	ObserveDecision("role", false)

	assert.Equal(t, beforeAllow+1, testutil.ToFloat64(allow))
	assert.Equal(t, beforeDeny+2, testutil.ToFloat64(deny))
}

func TestObserveLogin(t *testing.T) {
	c := Logins.WithLabelValues(LoginThrottled)
	before := testutil.ToFloat64(c)

	ObserveLogin(LoginThrottled)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
