package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CampusTrade/config"
	"CampusTrade/core/auth"
	"CampusTrade/db"
	"CampusTrade/logger"
	"CampusTrade/model"
	"CampusTrade/repository"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	// 商品模块使用 GORM 连接
	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database with GORM: %v", err)
	}
	defer db.CloseGormDB()

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.AutoMigrateModels(&model.Goods{}); err != nil {
		log.Fatalf("Failed to migrate goods model: %v", err)
	}

	// 确保上传目录存在
	ensureDirExists(cfg.UploadDir)

	userRepo := repository.NewMySQLUserRepository(db.DB)
	goodsRepo := repository.NewGormGoodsRepository(db.GormDB)

	userHandler := NewUserHandler(userRepo)
	goodsHandler := NewGoodsHandler(goodsRepo, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 商品相关的API端点
	// 固定路径先于 /api/goods/{goodid} 注册，避免被路径变量吞掉
	router.HandleFunc("/api/goods/list", goodsHandler.ListGoodsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/goods/upload", goodsHandler.UploadGoodsHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/goods/update", goodsHandler.UpdateGoodsHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/goods/user/{username}", goodsHandler.UserGoodsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/goods/sold/seller/{username}", goodsHandler.SoldBySellerHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/goods/sold/buyer/{username}", goodsHandler.SoldByBuyerHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/goods/confirm-sale/{goodid}", goodsHandler.ConfirmSaleHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/goods/{goodid}", goodsHandler.GoodsDetailHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/goods/{goodid}", goodsHandler.DeleteGoodsHandler).Methods(http.MethodDelete)

	// 订单相关的API端点
	router.HandleFunc("/api/order/place", goodsHandler.PlaceOrderHandler).Methods(http.MethodPost)

	// 用户相关的API端点
	router.HandleFunc("/api/login", userHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/register", userHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/username", userHandler.CheckUsernameHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/user/info", userHandler.GetUserInfoHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/user/update", userHandler.UpdateUserHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/user/changePassword", userHandler.ChangePasswordHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/user/checkUsernameAndEmail", userHandler.CheckUsernameAndEmailHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/user/resetPassword", userHandler.ResetPasswordHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/profile", AuthMiddleware(userHandler.ProfileHandler)).Methods(http.MethodGet)

	// 上传图片的静态资源服务
	imgFileServer := http.FileServer(http.Dir(cfg.UploadDir))
	router.PathPrefix("/uploads/img/").Handler(http.StripPrefix("/uploads/img/", imgFileServer))

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		log.Printf("Server starting on %s...", cfg.ServerAddr)
		log.Println("Browse goods via GET /api/goods/list")
		log.Println("Upload goods via POST /api/goods/upload")
		log.Println("Login via POST /api/login, register via POST /api/register")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Creating directory: %s", path)
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", path, err)
		}
	} else if err != nil {
		log.Fatalf("Failed to check directory %s: %v", path, err)
	}
}
