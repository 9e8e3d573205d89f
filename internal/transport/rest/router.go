package rest

import (
	"net/http"
	"os"

	"carepath/internal/service"
	"carepath/internal/transport/rest/handler"
	"carepath/internal/transport/rest/middleware"
	"carepath/internal/transport/ws"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	ProgramService *service.ProgramService
	ContentService *service.ContentService
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	programHandler := handler.NewProgramHandler(c.ProgramService, c.ContentService)
	contentHandler := handler.NewContentHandler(c.ContentService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/operators", wsHandler.OperatorWS).Methods("GET")
	v1.HandleFunc("/ws/participant", wsHandler.ParticipantWS).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Operator routes
	opRoutes := v1.NewRoute().Subrouter()
	opRoutes.Use(authMW.RequireOperator)

	opRoutes.HandleFunc("/programs", programHandler.Enroll).Methods("POST", "OPTIONS")
	opRoutes.HandleFunc("/programs/escalated", programHandler.Escalated).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/programs/{participantId}", programHandler.Get).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/programs/{participantId}/days/{day}/unlock", programHandler.ManualUnlock).Methods("POST", "OPTIONS")
	opRoutes.HandleFunc("/programs/{participantId}/wait-overrides", programHandler.SetWaitOverrides).Methods("PUT", "OPTIONS")
	opRoutes.HandleFunc("/sweep", programHandler.Sweep).Methods("POST", "OPTIONS")

	opRoutes.HandleFunc("/content/days", contentHandler.List).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}", contentHandler.Get).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}/structure", contentHandler.PutStructure).Methods("PUT", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}/tasks", contentHandler.UpsertTask).Methods("POST", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}/tasks/{taskId}", contentHandler.RemoveTask).Methods("DELETE", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}/levels/{levelKey}/order", contentHandler.ReorderTasks).Methods("PUT", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}/translations/{language}", contentHandler.PutTranslation).Methods("PUT", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}/composed", contentHandler.Composed).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}/legacy", contentHandler.Legacy).Methods("GET", "OPTIONS")
	opRoutes.HandleFunc("/content/days/{day}/legacy/sync", contentHandler.SyncLegacy).Methods("POST", "OPTIONS")

	// Participant routes
	meRoutes := v1.PathPrefix("/me").Subrouter()
	meRoutes.Use(authMW.RequireParticipant)

	meRoutes.HandleFunc("/program", programHandler.MyProgram).Methods("GET", "OPTIONS")
	meRoutes.HandleFunc("/assessment", programHandler.SubmitAssessment).Methods("POST", "OPTIONS")
	meRoutes.HandleFunc("/days/{day}/tasks/{taskId}/response", programHandler.RecordResponse).Methods("PUT", "OPTIONS")
	meRoutes.HandleFunc("/days/{day}/complete", programHandler.CompleteDay).Methods("POST", "OPTIONS")
	meRoutes.HandleFunc("/days/{day}/content", programHandler.DayContent).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
