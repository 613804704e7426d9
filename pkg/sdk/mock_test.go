package venuedex

import (
	"context"

	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
	listinguc "github.com/kailas-cloud/venuedex/internal/usecase/listing"
	searchuc "github.com/kailas-cloud/venuedex/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, fs spec.FilterSpec) (searchuc.Page, error)
	getFn    func(ctx context.Context, id string) (*domvenue.Document, error)
	indexFn  func(ctx context.Context, id string) (string, error)
	statsFn  func(ctx context.Context) (searchuc.Stats, error)
}

func (m *mockSearchUC) Surface() spec.Surface { return domvenue.SearchSurface(10) }

func (m *mockSearchUC) Search(ctx context.Context, fs spec.FilterSpec) (searchuc.Page, error) {
	return m.searchFn(ctx, fs)
}

func (m *mockSearchUC) GetByID(ctx context.Context, id string) (*domvenue.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockSearchUC) IndexOne(ctx context.Context, id string) (string, error) {
	return m.indexFn(ctx, id)
}

func (m *mockSearchUC) Stats(ctx context.Context) (searchuc.Stats, error) {
	return m.statsFn(ctx)
}

// --- listingUseCase mock ---

type mockListingUC struct {
	listFn func(ctx context.Context, fs spec.FilterSpec) (listinguc.Page, error)
}

func (m *mockListingUC) Surface() spec.Surface { return domvenue.ListingSurface(20) }

func (m *mockListingUC) List(ctx context.Context, fs spec.FilterSpec) (listinguc.Page, error) {
	return m.listFn(ctx, fs)
}

// --- venueUseCase mock ---

type mockVenueUC struct {
	createFn func(ctx context.Context, v domvenue.Venue) (*domvenue.Venue, error)
	updateFn func(ctx context.Context, id string, v domvenue.Venue) (*domvenue.Venue, error)
	getFn    func(ctx context.Context, id string) (*domvenue.Venue, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockVenueUC) Create(ctx context.Context, v domvenue.Venue) (*domvenue.Venue, error) {
	return m.createFn(ctx, v)
}

func (m *mockVenueUC) Update(ctx context.Context, id string, v domvenue.Venue) (*domvenue.Venue, error) {
	return m.updateFn(ctx, id, v)
}

func (m *mockVenueUC) Get(ctx context.Context, id string) (*domvenue.Venue, error) {
	return m.getFn(ctx, id)
}

func (m *mockVenueUC) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

// --- reindexUseCase mock ---

type mockReindexUC struct {
	fn func(ctx context.Context, filters map[string]any) (batch.Report, error)
}

func (m *mockReindexUC) ReindexAll(ctx context.Context, filters map[string]any) (batch.Report, error) {
	return m.fn(ctx, filters)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }
