package material

import (
	"fmt"
	"sync"
)

// MaterialHandle addresses a material across packages: the low 16 bits are
// the material handle, the high 16 bits the owning package UID or a
// sentinel.
type MaterialHandle uint32

// Sentinel UIDs.
const (
	UIDNull    uint16 = 0xCCCC
	UIDGlobal  uint16 = 0xF00D
	UIDGlobal2 uint16 = 0xFFFC
	UIDLocal   uint16 = 0xFFFD
	UIDGlobal3 uint16 = 0xFFFE
	UIDDefault uint16 = 0xFFFF
)

// PackHandle builds a MaterialHandle from its parts.
func PackHandle(handle, uid uint16) MaterialHandle {
	return MaterialHandle(uint32(handle) | uint32(uid)<<16)
}

func (h MaterialHandle) Handle() uint16 { return uint16(h) }

func (h MaterialHandle) UID() uint16 { return uint16(h >> 16) }

func (h MaterialHandle) String() string {
	return fmt.Sprintf("%04x:%04x", h.UID(), h.Handle())
}

// Status is the outcome of resolving a MaterialHandle.
type Status uint8

const (
	StatusOK Status = iota
	StatusNotFound
	StatusMissingPackage
	StatusDefaultMaterial
	StatusNullMaterial
	StatusLocalWithoutContext
	StatusUnimplemented
)

var statusNames = [...]string{
	StatusOK:                  "OK",
	StatusNotFound:            "NotFound",
	StatusMissingPackage:      "MissingPackage",
	StatusDefaultMaterial:     "DefaultMaterial",
	StatusNullMaterial:        "NullMaterial",
	StatusLocalWithoutContext: "LocalWithoutContext",
	StatusUnimplemented:       "Unimplemented",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Resolution is the result of ResolveHandle. Package and Index are set only
// when Status is StatusOK.
type Resolution struct {
	Status  Status
	Package *Package
	Index   int
}

// OK reports whether the handle resolved to a material.
func (r Resolution) OK() bool {
	return r.Status == StatusOK
}

// Material returns the resolved material or nil.
func (r Resolution) Material() *Material {
	if !r.OK() {
		return nil
	}
	return &r.Package.Materials[r.Index]
}

// PackageLookup finds loaded material packages by UID.
type PackageLookup interface {
	LookupPackage(uid uint16) (*Package, bool)
}

// ResolveHandle resolves h. owner is the package the handle was read from
// and may be nil; lookup may be nil when no other packages are loaded.
//
// Global sentinel UIDs name an engine-wide package set that this library
// does not model; they resolve to StatusUnimplemented.
func ResolveHandle(h MaterialHandle, owner *Package, lookup PackageLookup) Resolution {
	switch uid := h.UID(); uid {
	case UIDNull:
		return Resolution{Status: StatusNullMaterial}
	case UIDDefault:
		return Resolution{Status: StatusDefaultMaterial}
	case UIDGlobal, UIDGlobal2, UIDGlobal3:
		return Resolution{Status: StatusUnimplemented}
	case UIDLocal:
		if owner == nil {
			return Resolution{Status: StatusLocalWithoutContext}
		}
		return find(owner, h.Handle())
	default:
		if lookup == nil {
			return Resolution{Status: StatusMissingPackage}
		}
		pkg, ok := lookup.LookupPackage(uid)
		if !ok || pkg == nil {
			return Resolution{Status: StatusMissingPackage}
		}
		return find(pkg, h.Handle())
	}
}

func find(pkg *Package, handle uint16) Resolution {
	i, ok := pkg.FindHandle(handle)
	if !ok {
		return Resolution{Status: StatusNotFound}
	}
	return Resolution{Status: StatusOK, Package: pkg, Index: i}
}

// Registry is a concurrency-safe set of loaded packages keyed by UID.
type Registry struct {
	mu       sync.RWMutex
	packages map[uint16]*Package
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{packages: make(map[uint16]*Package)}
}

// Add registers pkg under uid, replacing any previous package. Sentinel
// UIDs cannot be registered.
func (r *Registry) Add(uid uint16, pkg *Package) error {
	switch uid {
	case UIDNull, UIDGlobal, UIDGlobal2, UIDLocal, UIDGlobal3, UIDDefault:
		return fmt.Errorf("uid 0x%04x is reserved", uid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[uid] = pkg
	return nil
}

// Remove unregisters uid.
func (r *Registry) Remove(uid uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.packages, uid)
}

// Len returns the number of registered packages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.packages)
}

// LookupPackage returns the package registered under uid. A nil registry
// holds no packages.
func (r *Registry) LookupPackage(uid uint16) (*Package, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.packages[uid]
	return pkg, ok
}

// Resolve resolves h against the registry.
func (r *Registry) Resolve(h MaterialHandle, owner *Package) Resolution {
	return ResolveHandle(h, owner, r)
}
