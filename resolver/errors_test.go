package resolver

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/justapithecus/amiresolve/types"
)

func TestError_IsSentinel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", notFound("find image by name", "eu-west-1", "golden-image"), ErrNotFound},
		{"lookup", lookupFailed("describe image", "eu-west-1", "ami-1", errors.New("boom")), ErrLookup},
		{"enumeration", enumerationFailed("eu-west-1", errors.New("expired")), ErrEnumeration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.want)
			}
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !errors.Is(wrapped, tt.want) {
				t.Error("sentinel must survive wrapping")
			}
		})
	}
}

func TestError_DoesNotMatchOtherSentinels(t *testing.T) {
	err := notFound("find image by name", "eu-west-1", "golden-image")
	if errors.Is(err, ErrLookup) || errors.Is(err, ErrEnumeration) || errors.Is(err, ErrMalformedRequest) {
		t.Error("not-found error matched an unrelated sentinel")
	}
}

func TestError_Message(t *testing.T) {
	err := notFound("find image by name", "eu-west-1", "golden-image")
	msg := err.Error()
	for _, want := range []string{"golden-image", "eu-west-1", "image not found"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	cause := errors.New("RequestExpired")
	err = enumerationFailed("eu-west-1", cause)
	if !strings.Contains(err.Error(), "RequestExpired") {
		t.Errorf("message should include cause, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause must be reachable via Unwrap")
	}
}

func TestMalformedRequest_IsSharedSentinel(t *testing.T) {
	err := types.ResolutionRequest{HomePartition: "eu-west-1"}.Validate()
	if !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("validation error %v should match resolver.ErrMalformedRequest", err)
	}
}
