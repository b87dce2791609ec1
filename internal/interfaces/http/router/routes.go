package router

import (
	"github.com/erp/servicedesk/internal/infrastructure/logger"
	"github.com/erp/servicedesk/internal/interfaces/http/handler"
	"github.com/erp/servicedesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig carries everything NewEngine needs
type EngineConfig struct {
	Logger           *zap.Logger
	ServiceName      string
	TracingEnabled   bool
	CORSAllowOrigins []string
	TrustedProxies   []string
	MaxBodySize      int64
	Auth             middleware.TokenValidator

	// Meter feeds the HTTP request metrics; nil disables them
	Meter           metric.Meter
	// ProfilingLabels tags profile samples with the matched route
	ProfilingLabels bool

	Health       *handler.HealthHandler
	ServiceOrder *handler.ServiceOrderHandler
	Kanban       *handler.KanbanHandler
}

// NewEngine builds the gin engine with the global middleware chain and every
// service desk route.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		middleware.HTTPMetrics(cfg.Meter, log),
		middleware.Profiling(cfg.ProfilingLabels, "/health"),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.SpanErrorMarker(),
		middleware.Secure(),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowOrigins)),
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	engine.GET("/health", cfg.Health.Health)

	authenticated := []gin.HandlerFunc{
		middleware.JWTAuth(cfg.Auth, log),
		middleware.TracingAttributeInjector(),
	}

	NewRouter(engine).
		Register(ServiceOrderRoutes(cfg.ServiceOrder).Use(authenticated...)).
		Register(KanbanRoutes(cfg.Kanban).Use(authenticated...)).
		Register(PublicRoutes(cfg.ServiceOrder)).
		Setup()

	return engine, nil
}

// ServiceOrderRoutes declares the order endpoints
func ServiceOrderRoutes(h *handler.ServiceOrderHandler) *DomainGroup {
	return NewDomainGroup("service-orders", "/service-orders").
		POST("", h.Create).
		GET("/:id", h.GetByID).
		GET("/:id/history", h.ListHistory).
		POST("/:id/items", h.AddItem).
		PUT("/:id/status", h.ChangeStatus)
}

// KanbanRoutes declares the board endpoints
func KanbanRoutes(h *handler.KanbanHandler) *DomainGroup {
	return NewDomainGroup("kanban", "/kanban").
		GET("/board", h.GetBoard).
		POST("/columns", h.CreateColumn).
		PUT("/columns/:id", h.UpdateColumn).
		POST("/columns/:id/move", h.MoveColumn).
		DELETE("/columns/:id", h.DeleteColumn).
		POST("/cards", h.CreateCard).
		PUT("/cards/:id", h.UpdateCard).
		POST("/cards/:id/move", h.MoveCard).
		DELETE("/cards/:id", h.DeleteCard)
}

// PublicRoutes declares the unauthenticated customer endpoints
func PublicRoutes(h *handler.ServiceOrderHandler) *DomainGroup {
	return NewDomainGroup("public", "/public").
		GET("/service-orders/:token", h.GetPublic)
}
