package main

import (
	"encoding/json"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/loopyhq/loopy/internal/api"
	"github.com/loopyhq/loopy/internal/generation"
	"github.com/loopyhq/loopy/internal/middleware"
	"github.com/loopyhq/loopy/internal/services"
	"github.com/loopyhq/loopy/internal/store"
	"github.com/loopyhq/loopy/internal/utils"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	addr := utils.SafeEnv("LOOPY_ADDR", ":8080")
	dataDir := utils.SafeEnv("LOOPY_DATA_DIR", "./data")
	baseURL := utils.SafeEnv("LOOPY_BASE_URL", "http://localhost:8080")

	st, err := store.Open(dataDir, logger)
	if err != nil {
		logger.Fatal("open loop store", zap.String("dir", dataDir), zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	gen := generation.NewClient(generation.Config{
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		Model:      os.Getenv("OPENAI_MODEL"),
		ImageModel: os.Getenv("OPENAI_IMAGE_MODEL"),
	}, logger)

	loops := services.NewLoopService(st, logger)
	collation := services.NewCollationService(loops, gen, logger)
	editions := services.NewEditionService(loops)
	submissions := services.NewSubmissionService(loops)

	mux := http.NewServeMux()
	api.NewRouter(loops, collation, editions, submissions, baseURL, logger).Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":    true,
			"name":  "Loopy API",
			"loops": len(loops.List()),
		})
	})

	// Serve the built frontend when configured (fullstack image).
	if staticDir := os.Getenv("LOOPY_STATIC_DIR"); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	handler := middleware.NoStore(middleware.CORS(mux))

	logger.Info("Loopy server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
