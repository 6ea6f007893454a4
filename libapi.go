package kafkaflow

import (
	"google.golang.org/protobuf/proto"

	runtimepkg "github.com/drblury/kafkaflow/internal/runtime"
	"github.com/drblury/kafkaflow/internal/runtime/codec"
	configpkg "github.com/drblury/kafkaflow/internal/runtime/config"
	"github.com/drblury/kafkaflow/internal/runtime/confluent"
	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	"github.com/drblury/kafkaflow/internal/runtime/headers"
	idspkg "github.com/drblury/kafkaflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/kafkaflow/internal/runtime/logging"
	messagepkg "github.com/drblury/kafkaflow/internal/runtime/message"
	parserpkg "github.com/drblury/kafkaflow/internal/runtime/parser"
	"github.com/drblury/kafkaflow/internal/runtime/records"
	"github.com/drblury/kafkaflow/internal/runtime/response"
	transportpkg "github.com/drblury/kafkaflow/internal/runtime/transport"
	newtransport "github.com/drblury/kafkaflow/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	TransportFactory    = transportpkg.Factory
	TransportSet        = transportpkg.Set

	// Canonical messages
	Record         = messagepkg.Record
	RawRecord      = records.Raw
	Header         = messagepkg.Header
	TimestampType  = messagepkg.TimestampType
	Message        = messagepkg.Message
	BatchMessage   = messagepkg.BatchMessage
	Consumer       = messagepkg.Consumer
	AckPolicy      = messagepkg.AckPolicy
	HandlerContext = messagepkg.HandlerContext
	Headers        = headers.Headers

	// Normalization and decoding
	Parser        = parserpkg.Parser
	ParserOption  = parserpkg.Option
	Decoder       = parserpkg.Decoder
	DecoderFunc   = parserpkg.DecoderFunc
	Resolver      = codec.Resolver
	ProtoRegistry = codec.Registry

	// Replies
	Response        = response.Response
	ResponseHeaders = response.Headers
	HeaderOption    = response.HeaderOption

	// Handlers
	Handler                                   = runtimepkg.Handler
	HandlerRegistration                       = runtimepkg.HandlerRegistration
	JSONHandler[T any]                        = runtimepkg.JSONHandler[T]
	JSONHandlerRegistration[T any]            = runtimepkg.JSONHandlerRegistration[T]
	ProtoHandler[T proto.Message]             = runtimepkg.ProtoHandler[T]
	ProtoHandlerRegistration[T proto.Message] = runtimepkg.ProtoHandlerRegistration[T]
	BatchHandler                              = runtimepkg.BatchHandler
	BatchHandlerRegistration                  = runtimepkg.BatchHandlerRegistration
	BatchSource                               = runtimepkg.BatchSource
	HandlerInfo                               = runtimepkg.HandlerInfo
	HandlerKind                               = runtimepkg.HandlerKind

	// Batch consumption over confluent-kafka-go
	BatchConsumer       = confluent.BatchConsumer
	BatchConsumerConfig = confluent.Config

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	UnprocessableMessageError = runtimepkg.UnprocessableMessageError
	ConfigValidationError     = errspkg.ConfigValidationError

	// Job lifecycle hooks
	JobContext = runtimepkg.JobContext
	JobHooks   = runtimepkg.JobHooks

	// Modular transport types
	TransportBuilder      = newtransport.Builder
	TransportConfig       = newtransport.Config
	TransportRegistry     = newtransport.Registry
	TransportCapabilities = newtransport.Capabilities
	Transport             = newtransport.Transport
)

const (
	AckPolicyUnset  = messagepkg.AckPolicyUnset
	AckPolicyManual = messagepkg.AckPolicyManual
	AckPolicyAuto   = messagepkg.AckPolicyAuto

	TimestampNotAvailable  = messagepkg.TimestampNotAvailable
	TimestampCreateTime    = messagepkg.TimestampCreateTime
	TimestampLogAppendTime = messagepkg.TimestampLogAppendTime

	HandlerKindRecord = runtimepkg.HandlerKindRecord
	HandlerKindBatch  = runtimepkg.HandlerKindBatch

	// Header keys read by the parser.
	HeaderCorrelationID = headers.KeyCorrelationID
	HeaderReplyTo       = headers.KeyReplyTo
	HeaderContentType   = headers.KeyContentType
	HeaderEventSchema   = headers.KeyEventSchema
)

var (
	NewService        = runtimepkg.NewService
	LoadConfigFromEnv = configpkg.LoadFromEnv
	LoadConfigFile    = configpkg.LoadFile
	ValidateConfig    = configpkg.ValidateConfig

	RegisterHandler      = runtimepkg.RegisterHandler
	RegisterBatchHandler = runtimepkg.RegisterBatchHandler

	// Parsing
	NewParser          = parserpkg.NewParser
	WithDecoder        = parserpkg.WithDecoder
	WithIDGenerator    = parserpkg.WithIDGenerator
	RawDecoder         = parserpkg.RawDecoder
	NewResolver        = codec.NewResolver
	NewProtoRegistry   = codec.NewRegistry
	WithHandler        = messagepkg.WithHandler
	HandlerFromContext = messagepkg.HandlerFromContext
	FakeConsumer       = messagepkg.FakeConsumer
	TextHeader         = messagepkg.TextHeader
	BytesHeader        = messagepkg.BytesHeader

	// Record adapters
	FromConfluent  = records.FromConfluent
	FromSarama     = records.FromSarama
	FromWatermill  = records.FromWatermill
	ConfluentBatch = records.ConfluentBatch

	// Replies
	NewResponse     = response.New
	EnsureResponse  = response.EnsureResponse
	WithoutOverride = response.WithoutOverride
	EncodeBody      = codec.Encode

	NewBatchConsumer           = confluent.New
	BatchConsumerConfigFor     = confluent.ConfigFromService

	DefaultMiddlewares    = runtimepkg.DefaultMiddlewares
	LogMessagesMiddleware = runtimepkg.LogMessagesMiddleware
	TracerMiddleware      = runtimepkg.TracerMiddleware
	MetricsMiddleware     = runtimepkg.MetricsMiddleware
	RetryMiddleware       = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware   = runtimepkg.RecovererMiddleware
	IsUnprocessable       = runtimepkg.IsUnprocessable

	// Job lifecycle hooks
	LoggingHooks  = runtimepkg.LoggingHooks
	MetricsHooks  = runtimepkg.MetricsHooks
	AlertingHooks = runtimepkg.AlertingHooks

	// Modular transport registry. Import individual transports via
	// _ "github.com/drblury/kafkaflow/transport/kafka".
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
	GetCapabilities          = newtransport.GetCapabilities
	NewTransportFactory      = transportpkg.NewFactory

	Marshal       = codec.Marshal
	MarshalIndent = codec.MarshalIndent
	Unmarshal     = codec.Unmarshal

	ErrServiceRequired     = errspkg.ErrServiceRequired
	ErrHandlerRequired     = errspkg.ErrHandlerRequired
	ErrTopicRequired       = errspkg.ErrTopicRequired
	ErrHandlerNameRequired = errspkg.ErrHandlerNameRequired
	ErrPublisherRequired   = errspkg.ErrPublisherRequired
	ErrConfigRequired      = errspkg.ErrConfigRequired
	ErrBatchSourceRequired = errspkg.ErrBatchSourceRequired
	ErrProtoTypeRequired   = errspkg.ErrProtoTypeRequired
	ErrDuplicateHandler    = errspkg.ErrDuplicateHandler
	ErrEmptyBatch          = errspkg.ErrEmptyBatch
	ErrOffsetsUnsupported  = errspkg.ErrOffsetsUnsupported
	ErrMalformedHeader     = messagepkg.ErrMalformedHeader

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewJSONLogger        = loggingpkg.NewJSONLogger
	NewNopLogger         = loggingpkg.NewNopLogger

	CreateULID = idspkg.CreateULID
	CreateUUID = idspkg.CreateUUID
)

func RegisterJSONHandler[T any](svc *Service, cfg JSONHandlerRegistration[T]) error {
	return runtimepkg.RegisterJSONHandler(svc, cfg)
}

func RegisterProtoHandler[T proto.Message](svc *Service, cfg ProtoHandlerRegistration[T]) error {
	return runtimepkg.RegisterProtoHandler(svc, cfg)
}

func JSONDecoder[T any]() Decoder {
	return runtimepkg.JSONDecoder[T]()
}

func ProtoDecoder[T proto.Message]() Decoder {
	return runtimepkg.ProtoDecoder[T]()
}

func NewProtoMessage[T proto.Message]() (T, error) {
	return runtimepkg.NewProtoMessage[T]()
}

func MustProtoMessage[T proto.Message]() T {
	return runtimepkg.MustProtoMessage[T]()
}
