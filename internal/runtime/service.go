package runtime

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/drblury/kafkaflow/internal/runtime/codec"
	configpkg "github.com/drblury/kafkaflow/internal/runtime/config"
	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/kafkaflow/internal/runtime/logging"
	parserpkg "github.com/drblury/kafkaflow/internal/runtime/parser"
	transportpkg "github.com/drblury/kafkaflow/internal/runtime/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to get the defaults.
type ServiceDependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
	// ParserOptions apply to every handler's parser. A decoder set here is
	// overridden by the per-handler one.
	ParserOptions []parserpkg.Option
	// Resolver is the default decoder. A fresh one with an empty proto
	// registry is used when nil.
	Resolver *codec.Resolver
	// Registry collects the pipeline and router metrics.
	Registry *prometheus.Registry
	Hooks    JobHooks
}

// Service wires a Watermill router for record handlers, batch loops, the
// reply publisher and the middleware chain.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	transports transportpkg.Set
	router     *message.Router

	resolver   *codec.Resolver
	parserOpts []parserpkg.Option
	metrics    *pipelineMetrics
	registry   *prometheus.Registry
	hooks      JobHooks

	handlers       []HandlerInfo
	batchLoops     []*batchLoop
	recordHandlers int
	handlersMu     sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService constructs a Service for the supplied configuration. Register handlers
// on the returned Service before calling Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating event service",
		loggingpkg.LogFields{
			"transport":       conf.GetTransport(),
			"reply_transport": conf.ReplyTransportName(),
			"config":          conf,
		})

	s := &Service{
		Conf:       conf,
		Logger:     log,
		resolver:   deps.Resolver,
		parserOpts: slices.Clone(deps.ParserOptions),
		registry:   deps.Registry,
		hooks:      deps.Hooks,
	}
	if s.resolver == nil {
		s.resolver = codec.NewResolver(codec.NewRegistry())
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	metrics, err := newPipelineMetrics(s.registry)
	if err != nil {
		panic(err)
	}
	s.metrics = metrics

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transports, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		panic(err)
	}
	s.transports = transports

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		panic(err)
	}

	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	s.registerConfiguredMiddlewares(deps)

	if conf.MetricsEnabled && conf.MetricsPort > 0 {
		s.RegisterHTTPHandler(conf.MetricsPort, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		s.RegisterHTTPHandler(conf.MetricsPort, "/handlers", http.HandlerFunc(s.handleGetHandlers))
	}

	return s
}

// Start runs the router and every batch loop until ctx is cancelled or one
// of them fails.
func (s *Service) Start(ctx context.Context) error {
	s.startHTTPServers()

	s.handlersMu.RLock()
	loops := slices.Clone(s.batchLoops)
	runRouter := s.recordHandlers > 0
	s.handlersMu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	if runRouter {
		g.Go(func() error {
			return routerRun(s.router, gctx)
		})
	}
	for _, loop := range loops {
		g.Go(func() error {
			return loop.run(gctx)
		})
	}
	return g.Wait()
}

// Running is closed once the router consumes. It never closes when only
// batch handlers are registered.
func (s *Service) Running() chan struct{} {
	return s.router.Running()
}

// Close stops the router and releases the transports.
func (s *Service) Close() error {
	routerErr := s.router.Close()
	if err := s.transports.Close(); err != nil {
		return err
	}
	return routerErr
}

// Resolver returns the default codec resolver.
func (s *Service) Resolver() *codec.Resolver {
	return s.resolver
}

// Handlers returns the registered handlers in registration order.
func (s *Service) Handlers() []HandlerInfo {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	return slices.Clone(s.handlers)
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			panic(fmt.Sprintf("failed to register middleware %s: %v", name, err))
		}
	}
}

func (s *Service) addHandlerInfo(info HandlerInfo) error {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	for _, existing := range s.handlers {
		if existing.Name == info.Name {
			return fmt.Errorf("%w: %s", errspkg.ErrDuplicateHandler, info.Name)
		}
	}
	s.handlers = append(s.handlers, info)
	return nil
}

// parserFor builds the parser a handler runs with. decoder may be nil.
func (s *Service) parserFor(decoder parserpkg.Decoder) *parserpkg.Parser {
	if decoder == nil {
		decoder = s.resolver
	}
	opts := append(slices.Clone(s.parserOpts), parserpkg.WithDecoder(decoder))
	return parserpkg.NewParser(opts...)
}

// poisonPublisher is where unprocessable messages go: the consuming
// transport when it can publish, the reply transport otherwise.
func (s *Service) poisonPublisher() message.Publisher {
	if s.transports.Consume.Publisher != nil {
		return s.transports.Consume.Publisher
	}
	return s.transports.Reply
}

func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
