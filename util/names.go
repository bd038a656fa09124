// Package util contains misc utils
package util

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation"
)

var (
	// ErrInvalidGroupVersionKindFormat group/version/kind format error
	ErrInvalidGroupVersionKindFormat = errors.New("invalid format, expect group/version/Kind or version/Kind")
	// ErrEmptyName indicates the resource must be non-empty
	ErrEmptyName = errors.New("resource name cannot be blank")
)

// ParseGroupVersionKind parses "group/version/Kind", or "version/Kind" for the core group
func ParseGroupVersionKind(s string) (schema.GroupVersionKind, error) {
	if s == "" {
		return schema.GroupVersionKind{}, ErrEmptyName
	}

	parts := strings.Split(s, "/")
	var gvk schema.GroupVersionKind
	switch len(parts) {
	case 2:
		gvk.Version, gvk.Kind = parts[0], parts[1]
	case 3:
		gvk.Group, gvk.Version, gvk.Kind = parts[0], parts[1], parts[2]
	default:
		return schema.GroupVersionKind{}, ErrInvalidGroupVersionKindFormat
	}

	if gvk.Version == "" || gvk.Kind == "" {
		return schema.GroupVersionKind{}, ErrInvalidGroupVersionKindFormat
	}
	if gvk.Group != "" {
		if errs := validation.IsDNS1123Subdomain(gvk.Group); len(errs) > 0 {
			return schema.GroupVersionKind{}, fmt.Errorf("group %q: %s", gvk.Group, strings.Join(errs, "; "))
		}
	}
	return gvk, nil
}

// ParseNamespaceList trims, validates and de-duplicates namespace names.
// Blank entries are ignored.
func ParseNamespaceList(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	for _, ns := range in {
		ns = strings.TrimSpace(ns)
		if ns == "" {
			continue
		}
		if errs := validation.IsDNS1123Label(ns); len(errs) > 0 {
			return nil, fmt.Errorf("namespace %q: %s", ns, strings.Join(errs, "; "))
		}
		seen[ns] = true
	}

	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out, nil
}
