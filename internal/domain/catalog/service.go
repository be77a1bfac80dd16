package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/xenking/product-catalog/internal/domain/catalog"

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tp = tp }
}

// WithMeterProvider sets the meter provider used for operation counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.mp = mp }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the only component that mutates product records. It
// serializes every mutation behind a single lock so the load/save pair of
// the repository is never interleaved with another writer.
type Service struct {
	mu     sync.RWMutex
	repo   Repository
	assets Assets
	now    func() time.Time

	tp              trace.TracerProvider
	mp              metric.MeterProvider
	tracer          trace.Tracer
	operations      metric.Int64Counter
	cleanupFailures metric.Int64Counter
}

// NewService creates a Service over the given repository and asset storage.
func NewService(repo Repository, assets Assets, opts ...Option) (*Service, error) {
	s := &Service{
		repo:   repo,
		assets: assets,
		now:    time.Now,
		tp:     otel.GetTracerProvider(),
		mp:     otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tp.Tracer(instrumentationName)
	meter := s.mp.Meter(instrumentationName)

	var err error
	if s.operations, err = meter.Int64Counter("catalog.operations",
		metric.WithDescription("Catalog operations by name and result kind"),
	); err != nil {
		return nil, errors.Wrap(err, "create operations counter")
	}
	if s.cleanupFailures, err = meter.Int64Counter("catalog.media.cleanup_failures",
		metric.WithDescription("Image removals that failed and were ignored"),
	); err != nil {
		return nil, errors.Wrap(err, "create cleanup failures counter")
	}
	return s, nil
}

// Create validates fields, stores the optional image and appends a new record.
func (s *Service) Create(ctx context.Context, f Fields, img *Upload) (_ *Product, rerr error) {
	ctx, span := s.start(ctx, "Create")
	defer func() { s.finish(ctx, span, "create", rerr) }()

	in, err := f.Validate()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.repo.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}

	var ref string
	if img != nil {
		if ref, err = s.assets.Store(ctx, *img); err != nil {
			return nil, errors.Wrap(err, "store image")
		}
	}

	now := s.now()
	p := Product{
		ID:          nextID(products, now),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageRef:    ref,
		CreatedAt:   now,
	}
	products = append(products, p)

	if err := s.repo.Save(ctx, products); err != nil {
		if ref != "" {
			s.removeAsset(ctx, ref)
		}
		return nil, errors.Wrap(err, "save products")
	}

	zctx.From(ctx).Info("Product created",
		zap.String("id", p.ID),
		zap.Bool("image", p.HasImage()),
	)
	return &p, nil
}

// Get returns the product with the given id.
func (s *Service) Get(ctx context.Context, id string) (_ *Product, rerr error) {
	ctx, span := s.start(ctx, "Get", attribute.String("product.id", id))
	defer func() { s.finish(ctx, span, "get", rerr) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	products, err := s.repo.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	i := indexOf(products, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := products[i]
	return &p, nil
}

// List returns every product in insertion order.
func (s *Service) List(ctx context.Context) (_ []Product, rerr error) {
	ctx, span := s.start(ctx, "List")
	defer func() { s.finish(ctx, span, "list", rerr) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	products, err := s.repo.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	return products, nil
}

// Update replaces the editable fields of a product and, when img is set,
// swaps its image. The new image is stored before the old one is touched,
// so a failed upload leaves the previous image in place.
func (s *Service) Update(ctx context.Context, id string, f Fields, img *Upload) (_ *Product, rerr error) {
	ctx, span := s.start(ctx, "Update", attribute.String("product.id", id))
	defer func() { s.finish(ctx, span, "update", rerr) }()

	in, err := f.Validate()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.repo.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	i := indexOf(products, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	p := products[i].apply(in, s.now())
	oldRef := p.ImageRef
	if img != nil {
		ref, err := s.assets.Store(ctx, *img)
		if err != nil {
			return nil, errors.Wrap(err, "store image")
		}
		p.ImageRef = ref
	}
	products[i] = p

	if err := s.repo.Save(ctx, products); err != nil {
		if p.ImageRef != oldRef {
			s.removeAsset(ctx, p.ImageRef)
		}
		return nil, errors.Wrap(err, "save products")
	}

	if oldRef != "" && oldRef != p.ImageRef {
		s.removeAsset(ctx, oldRef)
	}

	zctx.From(ctx).Info("Product updated",
		zap.String("id", p.ID),
		zap.Bool("image_replaced", p.ImageRef != oldRef),
	)
	return &p, nil
}

// RemoveImage detaches and deletes the image of a product.
func (s *Service) RemoveImage(ctx context.Context, id string) (rerr error) {
	ctx, span := s.start(ctx, "RemoveImage", attribute.String("product.id", id))
	defer func() { s.finish(ctx, span, "remove_image", rerr) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.repo.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load products")
	}
	i := indexOf(products, id)
	if i < 0 {
		return ErrNotFound
	}
	if !products[i].HasImage() {
		return ErrNoImage
	}

	ref := products[i].ImageRef
	products[i].ImageRef = ""
	products[i].ModifiedAt = s.now()

	// The record is persisted before the file goes away so a failed save
	// never leaves it pointing at a deleted asset.
	if err := s.repo.Save(ctx, products); err != nil {
		return errors.Wrap(err, "save products")
	}
	s.removeAsset(ctx, ref)

	zctx.From(ctx).Info("Product image removed", zap.String("id", id))
	return nil
}

// Delete removes a product and, best-effort, its image.
func (s *Service) Delete(ctx context.Context, id string) (rerr error) {
	ctx, span := s.start(ctx, "Delete", attribute.String("product.id", id))
	defer func() { s.finish(ctx, span, "delete", rerr) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.repo.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load products")
	}
	i := indexOf(products, id)
	if i < 0 {
		return ErrNotFound
	}

	ref := products[i].ImageRef
	products = append(products[:i], products[i+1:]...)

	if err := s.repo.Save(ctx, products); err != nil {
		return errors.Wrap(err, "save products")
	}
	if ref != "" {
		s.removeAsset(ctx, ref)
	}

	zctx.From(ctx).Info("Product deleted", zap.String("id", id))
	return nil
}

// removeAsset deletes an image, logging instead of failing.
func (s *Service) removeAsset(ctx context.Context, ref string) {
	if err := s.assets.Remove(ctx, ref); err != nil {
		s.cleanupFailures.Add(ctx, 1)
		zctx.From(ctx).Warn("Image cleanup failed",
			zap.String("ref", ref),
			zap.Error(err),
		)
	}
}

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "catalog."+name, trace.WithAttributes(attrs...))
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	s.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", result),
	))
	span.End()
}

func indexOf(products []Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// nextID derives an id from the creation time in milliseconds, stepping
// forward while it collides with an existing record.
func nextID(products []Product, now time.Time) string {
	taken := make(map[string]struct{}, len(products))
	for _, p := range products {
		taken[p.ID] = struct{}{}
	}
	n := now.UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		n++
	}
}
