package require

import (
	"testing"

	"typedis/internal/assert"
)

func WantError(t testing.TB, want bool, err error) {
	t.Helper()

	if !assert.WantError(t, want, err) {
		t.FailNow()
	}
}

func NoError(t testing.TB, err error) {
	t.Helper()

	if !assert.WantError(t, false, err) {
		t.FailNow()
	}
}

func Equal(t testing.TB, want, got interface{}) {
	t.Helper()

	if !assert.Equal(t, want, got) {
		t.FailNow()
	}
}
