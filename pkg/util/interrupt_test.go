package util

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitForInterruptWithCallback(t *testing.T) {
	cases := []struct {
		name      string
		cancelled bool // parent already done before the wait starts
		callback  bool
	}{
		{name: "parent cancelled while waiting", callback: true},
		{name: "parent already cancelled", cancelled: true, callback: true},
		{name: "nil callback", cancelled: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tc.cancelled {
				cancel()
			}

			var calls atomic.Int32
			var cb func()
			if tc.callback {
				cb = func() {
					if ctx.Err() == nil {
						t.Error("shutdown callback ran before the context ended")
					}
					calls.Add(1)
				}
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				WaitForInterruptWithCallback(ctx, cb)
			}()

			if !tc.cancelled {
				select {
				case <-done:
					t.Fatal("wait returned before the context ended")
				case <-time.After(20 * time.Millisecond):
				}
				cancel()
			}

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("wait did not return after the context ended")
			}

			want := int32(0)
			if tc.callback {
				want = 1
			}
			if got := calls.Load(); got != want {
				t.Fatalf("callback ran %d times, want %d", got, want)
			}
		})
	}
}
