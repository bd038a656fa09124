package mock_test

//go:generate go run github.com/golang/mock/mockgen -package mock_test -destination lookup.go github.com/navikt/statusplattform-operator/controllers/authority Lookup
//go:generate go run github.com/golang/mock/mockgen -package mock_test -destination registry.go github.com/navikt/statusplattform-operator/statusplattform Registry
