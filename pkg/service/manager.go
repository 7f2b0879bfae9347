// Package service coordinates the start and stop order of the long-running
// parts of the process.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/small-frappuccino/botdash/pkg/log"
)

// ServiceState represents the current state of a service
type ServiceState string

const (
	StateRegistered ServiceState = "registered"
	StateRunning    ServiceState = "running"
	StateStopped    ServiceState = "stopped"
	StateError      ServiceState = "error"
)

// ServicePriority breaks ties between services without a dependency between
// them; higher starts first and stops last.
type ServicePriority int

const (
	PriorityLow    ServicePriority = 1
	PriorityNormal ServicePriority = 5
	PriorityHigh   ServicePriority = 10
)

// Service is a long-running component with an explicit lifecycle.
type Service interface {
	Name() string
	Priority() ServicePriority
	Dependencies() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServiceInfo is a snapshot of a registered service.
type ServiceInfo struct {
	Name      string       `json:"name"`
	State     ServiceState `json:"state"`
	StartedAt *time.Time   `json:"startedAt,omitempty"`
	StoppedAt *time.Time   `json:"stoppedAt,omitempty"`
	LastError string       `json:"lastError,omitempty"`
}

// ServiceWrapper adapts a pair of start and stop functions to Service.
type ServiceWrapper struct {
	name     string
	priority ServicePriority
	deps     []string
	start    func(ctx context.Context) error
	stop     func(ctx context.Context) error
}

// NewServiceWrapper wraps start and stop; either may be nil.
func NewServiceWrapper(name string, priority ServicePriority, deps []string, start, stop func(ctx context.Context) error) *ServiceWrapper {
	return &ServiceWrapper{name: name, priority: priority, deps: deps, start: start, stop: stop}
}

func (w *ServiceWrapper) Name() string { return w.name }
func (w *ServiceWrapper) Priority() ServicePriority { return w.priority }
func (w *ServiceWrapper) Dependencies() []string { return w.deps }

func (w *ServiceWrapper) Start(ctx context.Context) error {
	if w.start == nil {
		return nil
	}
	return w.start(ctx)
}

func (w *ServiceWrapper) Stop(ctx context.Context) error {
	if w.stop == nil {
		return nil
	}
	return w.stop(ctx)
}

type entry struct {
	svc  Service
	info ServiceInfo
}

// ServiceManager coordinates the lifecycle of all services
type ServiceManager struct {
	mu       sync.Mutex
	services map[string]*entry
	started  []string
}

// NewServiceManager creates a new service manager
func NewServiceManager() *ServiceManager {
	return &ServiceManager{services: make(map[string]*entry)}
}

// Register adds a service to the manager
func (sm *ServiceManager) Register(svc Service) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	name := svc.Name()
	if _, exists := sm.services[name]; exists {
		return fmt.Errorf("service '%s' is already registered", name)
	}
	sm.services[name] = &entry{svc: svc, info: ServiceInfo{Name: name, State: StateRegistered}}
	log.ApplicationLogger().Debug("Service registered", "service", name, "priority", svc.Priority(), "dependencies", svc.Dependencies())
	return nil
}

// StartAll starts all services in dependency order. When one fails, the
// services already started are stopped again in reverse order.
func (sm *ServiceManager) StartAll(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	order, err := sm.calculateStartOrder()
	if err != nil {
		return fmt.Errorf("failed to calculate start order: %w", err)
	}

	for _, name := range order {
		e := sm.services[name]
		if e.info.State == StateRunning {
			continue
		}
		if err := e.svc.Start(ctx); err != nil {
			e.info.State = StateError
			e.info.LastError = err.Error()
			startErr := fmt.Errorf("failed to start service '%s': %w", name, err)
			if stopErr := sm.stopStartedLocked(ctx); stopErr != nil {
				return errors.Join(startErr, stopErr)
			}
			return startErr
		}
		now := time.Now().UTC()
		e.info.State = StateRunning
		e.info.StartedAt = &now
		e.info.LastError = ""
		sm.started = append(sm.started, name)
		log.ApplicationLogger().Info("Service started", "service", name)
	}
	return nil
}

// StopAll stops all running services in reverse start order.
func (sm *ServiceManager) StopAll(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.stopStartedLocked(ctx)
}

func (sm *ServiceManager) stopStartedLocked(ctx context.Context) error {
	var errs []error
	for i := len(sm.started) - 1; i >= 0; i-- {
		name := sm.started[i]
		e := sm.services[name]
		now := time.Now().UTC()
		e.info.StoppedAt = &now
		if err := e.svc.Stop(ctx); err != nil {
			e.info.State = StateError
			e.info.LastError = err.Error()
			errs = append(errs, fmt.Errorf("failed to stop service '%s': %w", name, err))
			continue
		}
		e.info.State = StateStopped
		log.ApplicationLogger().Info("Service stopped", "service", name)
	}
	sm.started = nil
	if len(errs) > 0 {
		log.ErrorLoggerRaw().Error("Some services failed to stop cleanly", "err", errors.Join(errs...))
	}
	return errors.Join(errs...)
}

// Services returns a snapshot of every registered service, sorted by name.
func (sm *ServiceManager) Services() []ServiceInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	out := make([]ServiceInfo, 0, len(sm.services))
	for _, e := range sm.services {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// calculateStartOrder sorts services topologically. Among services whose
// dependencies are satisfied, higher priority comes first, then name.
func (sm *ServiceManager) calculateStartOrder() ([]string, error) {
	names := make([]string, 0, len(sm.services))
	for name := range sm.services {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := sm.services[names[i]].svc.Priority(), sm.services[names[j]].svc.Priority()
		if pi != pj {
			return pi > pj
		}
		return names[i] < names[j]
	})

	visited := make(map[string]bool)
	temp := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if temp[name] {
			return fmt.Errorf("circular dependency detected involving service '%s'", name)
		}
		if visited[name] {
			return nil
		}

		temp[name] = true
		for _, dep := range sm.services[name].svc.Dependencies() {
			if _, exists := sm.services[dep]; !exists {
				return fmt.Errorf("service '%s' depends on unknown service '%s'", name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		temp[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
