package resilience

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"captcha", errors.New("CAPTCHA challenge shown"), ClassSession},
		{"login required", errors.New("login required to continue"), ClassSession},
		{"401", errors.New("server returned 401"), ClassSession},
		{"bot detection", errors.New("Bot Detection triggered"), ClassSession},
		{"404", errors.New("page returned 404"), ClassPermanent},
		{"not found", errors.New("product not found"), ClassPermanent},
		{"out of stock", errors.New("item out of stock"), ClassPermanent},
		{"timeout", errors.New("request timeout after 15s"), ClassTransient},
		{"503", errors.New("upstream 503"), ClassTransient},
		{"429", errors.New("429 too many requests"), ClassTransient},
		{"connection reset", errors.New("connection reset by peer"), ClassTransient},
		{"api key", errors.New("API key missing"), ClassConfig},
		{"not configured", errors.New("associate tag not configured"), ClassConfig},
		{"unknown defaults transient", errors.New("mysterious failure"), ClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_Priority(t *testing.T) {
	// config outranks transient
	assert.Equal(t, ClassConfig, Classify(errors.New("API key timeout")))
	// session outranks permanent
	assert.Equal(t, ClassSession, Classify(errors.New("CAPTCHA not found")))
	// permanent outranks transient
	assert.Equal(t, ClassPermanent, Classify(errors.New("404 after timeout")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 301, 400, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
