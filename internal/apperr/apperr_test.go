package apperr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus_Mapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindAuthRequired, http.StatusUnauthorized},
		{KindInvalidCredentials, http.StatusUnauthorized},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInsufficientBalance, http.StatusBadRequest},
		{KindBadInput, http.StatusBadRequest},
		{KindVenueError, http.StatusBadGateway},
		{KindTimeout, http.StatusGatewayTimeout},
	}
	for _, c := range cases {
		err := New(c.kind, "x")
		if got := HTTPStatus(err); got != c.want {
			t.Errorf("%v: status = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestHTTPStatus_NonAppError(t *testing.T) {
	if got := HTTPStatus(fmt.Errorf("plain")); got != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", got)
	}
}

func TestIs_WrappedError(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(KindVenueError, "binance", cause)
	if !Is(err, KindVenueError) {
		t.Error("Is should match wrapped kind")
	}
	if Is(err, KindTimeout) {
		t.Error("Is should not match a different kind")
	}
}
