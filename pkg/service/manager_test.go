package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) wrap(name string, priority ServicePriority, deps []string, startErr error) *ServiceWrapper {
	return NewServiceWrapper(name, priority, deps,
		func(context.Context) error {
			r.add("start:" + name)
			return startErr
		},
		func(context.Context) error {
			r.add("stop:" + name)
			return nil
		},
	)
}

func TestStartAllOrdersByDependencyAndPriority(t *testing.T) {
	rec := &recorder{}
	sm := NewServiceManager()
	for _, s := range []Service{
		rec.wrap("control", PriorityNormal, []string{"store"}, nil),
		rec.wrap("sweeper", PriorityLow, []string{"store"}, nil),
		rec.wrap("store", PriorityLow, nil, nil),
		rec.wrap("gateway", PriorityHigh, nil, nil),
	} {
		if err := sm.Register(s); err != nil {
			t.Fatalf("register %s: %v", s.Name(), err)
		}
	}

	if err := sm.StartAll(context.Background()); err != nil {
		t.Fatalf("start all: %v", err)
	}
	if err := sm.StopAll(context.Background()); err != nil {
		t.Fatalf("stop all: %v", err)
	}

	got := strings.Join(rec.events, ",")
	want := "start:gateway,start:store,start:control,start:sweeper,stop:sweeper,stop:control,stop:store,stop:gateway"
	if got != want {
		t.Fatalf("unexpected lifecycle order:\n got %s\nwant %s", got, want)
	}
	for _, info := range sm.Services() {
		if info.State != StateStopped {
			t.Fatalf("service %s in state %s after StopAll", info.Name, info.State)
		}
	}
}

func TestStartAllRollsBackOnFailure(t *testing.T) {
	rec := &recorder{}
	sm := NewServiceManager()
	_ = sm.Register(rec.wrap("store", PriorityHigh, nil, nil))
	_ = sm.Register(rec.wrap("control", PriorityNormal, []string{"store"}, errors.New("address in use")))

	err := sm.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Fatalf("expected start failure, got %v", err)
	}
	got := strings.Join(rec.events, ",")
	if got != "start:store,start:control,stop:store" {
		t.Fatalf("unexpected events: %s", got)
	}
}

func TestRegisterRejectsDuplicatesAndUnknownDeps(t *testing.T) {
	sm := NewServiceManager()
	if err := sm.Register(NewServiceWrapper("a", PriorityLow, []string{"missing"}, nil, nil)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := sm.Register(NewServiceWrapper("a", PriorityLow, nil, nil, nil)); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := sm.StartAll(context.Background()); err == nil {
		t.Fatalf("expected unknown dependency error")
	}
}

func TestCircularDependency(t *testing.T) {
	sm := NewServiceManager()
	_ = sm.Register(NewServiceWrapper("a", PriorityLow, []string{"b"}, nil, nil))
	_ = sm.Register(NewServiceWrapper("b", PriorityLow, []string{"a"}, nil, nil))
	if err := sm.StartAll(context.Background()); err == nil || !strings.Contains(err.Error(), "circular") {
		t.Fatalf("expected circular dependency error, got %v", err)
	}
}
