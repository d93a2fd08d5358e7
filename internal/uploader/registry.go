package uploader

import (
	"context"
	"strings"
	"sync"
)

// Registry routes chip identifiers to adapters and drives auto-detection.
// Construct one and inject it; there is no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Key builds the registry key for a chip and optional variant.
func Key(chipID, variant string) string {
	id := strings.ToLower(strings.TrimSpace(chipID))
	v := strings.ToLower(strings.TrimSpace(variant))
	if v == "" {
		return id
	}
	return id + ":" + v
}

// Register adds an adapter under its chip and variant. Registering the
// same key again replaces the earlier adapter in place.
func (r *Registry) Register(a Adapter) {
	key := Key(a.ChipID(), a.ChipVariant())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[key]; !exists {
		r.order = append(r.order, key)
	}
	r.adapters[key] = a
}

// Get resolves a chip and variant. A missing (chip, variant) entry falls
// back to the chip's variant-less adapter.
func (r *Registry) Get(chipID, variant string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[Key(chipID, variant)]; ok {
		return a, true
	}
	if variant != "" {
		if a, ok := r.adapters[Key(chipID, "")]; ok {
			return a, true
		}
	}
	return nil, false
}

// Adapters returns the registered adapters in registration order.
func (r *Registry) Adapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.adapters[k])
	}
	return out
}

// Chips returns the registered chip keys in registration order.
func (r *Registry) Chips() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Detect probes for a device, trying each adapter in registration order
// and stopping at the first match. Adapters release a port before the
// next one opens it.
func (r *Registry) Detect(ctx context.Context, port string) (Adapter, DeviceInfo, bool) {
	for _, a := range r.Adapters() {
		if ctx.Err() != nil {
			return nil, DeviceInfo{}, false
		}
		if info, ok := a.DetectDevice(ctx, port); ok {
			return a, info, true
		}
	}
	return nil, DeviceInfo{}, false
}

// DefaultRegistry registers every built-in adapter, specific variants
// ahead of their chip families so detection matches them first.
func DefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry()
	r.Register(NewESP32S2(opts...))
	r.Register(NewESP32C3(opts...))
	r.Register(NewESP32(opts...))
	r.Register(NewESP8266(opts...))
	r.Register(NewATmega328P(opts...))
	r.Register(NewATmega2560(opts...))
	r.Register(NewSTM32F1(opts...))
	r.Register(NewPIC16F877A(opts...))
	r.Register(NewNuMicroM031(opts...))
	return r
}
