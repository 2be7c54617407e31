package relay

import (
	"context"
	"errors"
	"testing"
)

func TestFakeActuator_RecordsCommands(t *testing.T) {
	f := NewFakeActuator()
	ctx := context.Background()

	if err := f.Set(ctx, true); err != nil {
		t.Fatalf("Set(true): %v", err)
	}
	if !f.IsOn() {
		t.Fatalf("expected on")
	}

	f.Fail(errors.New("stuck"))
	if err := f.Set(ctx, false); err == nil {
		t.Fatalf("expected error")
	}
	if !f.IsOn() {
		t.Fatalf("failed command must not change state")
	}

	f.Fail(nil)
	_ = f.Set(ctx, false)
	if f.Count(true) != 1 || f.Count(false) != 2 {
		t.Fatalf("unexpected counts: on=%d off=%d", f.Count(true), f.Count(false))
	}

	if err := f.Close(); err != nil || !f.Closed || f.IsOn() {
		t.Fatalf("Close should switch off and mark closed")
	}
}
