package model

import (
	"fmt"

	discoveryv1 "k8s.io/api/discovery/v1"
)

// EndpointSliceReady returns true if and only if at least one of the slice endpoints
// reports an explicit Ready condition set to true.
// Empty slices, missing conditions and Ready=false are all treated as not ready.
func EndpointSliceReady(slice *discoveryv1.EndpointSlice) bool {
	if slice == nil {
		return false
	}
	for _, endpoint := range slice.Endpoints {
		if endpoint.Conditions.Ready != nil && *endpoint.Conditions.Ready {
			return true
		}
	}
	return false
}

// CountReadyEndpoints returns the number of endpoints with Ready=true and the total number of endpoints
func CountReadyEndpoints(slice *discoveryv1.EndpointSlice) (ready, total int) {
	if slice == nil {
		return 0, 0
	}
	for _, endpoint := range slice.Endpoints {
		if endpoint.Conditions.Ready != nil && *endpoint.Conditions.Ready {
			ready++
		}
	}
	return ready, len(slice.Endpoints)
}

// StatusDescription is a human readable summary of the slice readiness
// that accompanies every status record
func StatusDescription(slice *discoveryv1.EndpointSlice) string {
	ready, total := CountReadyEndpoints(slice)
	return fmt.Sprintf("%d/%d endpoints ready (EndpointSlice %s/%s)", ready, total, slice.Namespace, slice.Name)
}
