package assert

import (
	"errors"
	"reflect"
	"testing"
)

func Equal(t testing.TB, want, got interface{}) bool {
	t.Helper()

	if reflect.DeepEqual(want, got) {
		return true
	}

	t.Errorf("not equal\n  want:%#v\n  got: %#v", want, got)
	return false
}

func WantError(t testing.TB, want bool, err error) bool {
	t.Helper()

	switch {
	case want && err == nil:
		t.Error("want error but nil")
		return false
	case !want && err != nil:
		t.Errorf("unexpected error: %v", err)
		return false
	default:
		return true
	}
}

func ErrorIs(t testing.TB, want error, err error) bool {
	t.Helper()

	if errors.Is(err, want) {
		return true
	}

	t.Errorf("error mismatch\n  want:%v\n  got: %v", want, err)
	return false
}

func ErrorAs(t testing.TB, target interface{}, err error) bool {
	t.Helper()

	if errors.As(err, target) {
		return true
	}

	t.Errorf("error %v is not a %T", err, target)
	return false
}
