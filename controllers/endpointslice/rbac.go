package endpointslice

// https://book.kubebuilder.io/reference/markers/rbac.html

//+kubebuilder:rbac:groups=discovery.k8s.io,resources=endpointslices,verbs=get;list;watch

//+kubebuilder:rbac:groups=nais.io,resources=applications,verbs=get;list;watch

//+kubebuilder:rbac:groups="",resources=events,verbs=create;patch

//+kubebuilder:rbac:groups=coordination.k8s.io,resources=leases,verbs=get;list;watch;create;update;patch;delete
