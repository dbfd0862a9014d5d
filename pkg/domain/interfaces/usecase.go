package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . ProvisionUseCase

import (
	"context"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// ProvisionUseCase turns a catalog into a populated, indexed font directory
type ProvisionUseCase interface {
	// Provision fetches, verifies and installs the catalog, then rebuilds the
	// font index once. The report is returned even when err is not nil,
	// except for an invalid catalog.
	Provision(ctx context.Context, catalog *model.Catalog, strategy model.Strategy) (*model.ProvisionReport, error)
}

// ReportStore persists provisioning reports
type ReportStore interface {
	Put(ctx context.Context, report *model.ProvisionReport) error
}

// Notifier tells humans about a provisioning report
type Notifier interface {
	Notify(ctx context.Context, report *model.ProvisionReport) error
}
